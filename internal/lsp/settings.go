package lsp

import "encoding/json"

// handleDidChangeConfiguration applies client settings, reloads the rule set
// and re-runs validation for every open document.
func (s *Server) handleDidChangeConfiguration(msg *rpcMessage) error {
	var params didChangeConfigurationParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return nil
	}
	if len(params.Settings) == 0 {
		return nil
	}
	var settings lspSettings
	if err := json.Unmarshal(params.Settings, &settings); err != nil {
		s.logf("failed to parse settings: %v", err)
		return nil
	}
	s.applySettings(settings.Yangls)
	s.reloadRules()
	return nil
}

func (s *Server) applySettings(settings yanglsSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if settings.Rules.Path != nil {
		s.rulesPath = *settings.Rules.Path
	}
	if settings.Rules.Schema != nil {
		s.schemaPath = *settings.Rules.Schema
	}
	if settings.MaxDiagnostics != nil && *settings.MaxDiagnostics > 0 {
		s.maxDiagnostics = *settings.MaxDiagnostics
	}
}
