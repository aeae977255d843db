// Package lsp implements the stdio JSON-RPC language server.
//
// Validation is synchronous: every didOpen/didChange/didSave runs the brace
// scan, extraction, and rule evaluation inline before the handler returns,
// and publishes the resulting diagnostics immediately. There is no debounce
// and no background analysis queue; a full pass over a single document is
// cheap enough that serialized handling keeps results trivially consistent
// with the newest text.
package lsp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"yangls/internal/diag"
	"yangls/internal/driver"
	"yangls/internal/fix"
	"yangls/internal/project"
	"yangls/internal/rules"
	"yangls/internal/source"
	"yangls/internal/yang"
)

var (
	// ErrExit signals a graceful shutdown after receiving "exit".
	ErrExit = errors.New("lsp exit")
	// ErrExitWithoutShutdown signals an "exit" without a preceding "shutdown".
	ErrExitWithoutShutdown = errors.New("lsp exit without shutdown")
)

// ServerOptions configures LSP server behavior.
type ServerOptions struct {
	Engine         *rules.Engine
	MaxDiagnostics int
	RulesPath      string // overrides manifest/default rule discovery
	SchemaPath     string
}

// document is the server-side state of one open text document.
type document struct {
	text    string
	version int
	file    *source.File
	diags   []diag.Diagnostic
}

// Server handles stdio JSON-RPC for the yangls language server.
type Server struct {
	in     *bufio.Reader
	out    *bufio.Writer
	sendMu sync.Mutex
	mu     sync.Mutex

	docs      map[string]*document
	published map[string]struct{}

	workspaceRoot     string
	shutdownRequested bool

	engine         *rules.Engine
	maxDiagnostics int
	rulesPath      string
	schemaPath     string
}

// NewServer constructs a new LSP server.
func NewServer(in io.Reader, out io.Writer, opts ServerOptions) *Server {
	engine := opts.Engine
	if engine == nil {
		engine = rules.NewEngine()
	}
	maxDiagnostics := opts.MaxDiagnostics
	if maxDiagnostics <= 0 {
		maxDiagnostics = 100
	}
	return &Server{
		in:             bufio.NewReader(in),
		out:            bufio.NewWriter(out),
		docs:           make(map[string]*document),
		published:      make(map[string]struct{}),
		engine:         engine,
		maxDiagnostics: maxDiagnostics,
		rulesPath:      opts.RulesPath,
		schemaPath:     opts.SchemaPath,
	}
}

// Run serves LSP requests until shutdown.
func (s *Server) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		payload, err := readMessage(s.in)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var msg rpcMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logf("failed to parse message: %v", err)
			continue
		}
		if msg.Method == "" {
			continue
		}
		if err := s.handleMessage(&msg); err != nil {
			return err
		}
	}
}

func (s *Server) handleMessage(msg *rpcMessage) error {
	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "initialized":
		return nil
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		if s.shutdownRequested {
			return ErrExit
		}
		return ErrExitWithoutShutdown
	case "workspace/didChangeConfiguration":
		return s.handleDidChangeConfiguration(msg)
	case "textDocument/didOpen":
		return s.handleDidOpen(msg)
	case "textDocument/didChange":
		return s.handleDidChange(msg)
	case "textDocument/didSave":
		return s.handleDidSave(msg)
	case "textDocument/didClose":
		return s.handleDidClose(msg)
	case "textDocument/codeAction":
		return s.handleCodeAction(msg)
	default:
		if len(msg.ID) > 0 {
			return s.sendError(msg.ID, -32601, "method not found")
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *rpcMessage) error {
	var params initializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			return s.sendError(msg.ID, -32602, "invalid params")
		}
	}
	root := ""
	if params.RootURI != "" {
		root = uriToPath(params.RootURI)
	}
	if root == "" && params.RootPath != "" {
		root = params.RootPath
	}
	if root == "" && len(params.WorkspaceFolders) > 0 {
		root = uriToPath(params.WorkspaceFolders[0].URI)
	}
	if root != "" {
		if abs, err := filepath.Abs(root); err == nil {
			root = abs
		}
	}
	s.mu.Lock()
	s.workspaceRoot = root
	s.mu.Unlock()

	s.reloadRules()

	result := initializeResult{
		Capabilities: serverCapabilities{
			TextDocumentSync: textDocumentSyncOptions{
				OpenClose: true,
				Change:    2,
				Save: saveOptions{
					IncludeText: true,
				},
			},
			CodeActionProvider: &codeActionOptions{
				CodeActionKinds: []string{"quickfix"},
			},
		},
	}
	return s.sendResponse(msg.ID, result)
}

func (s *Server) handleShutdown(msg *rpcMessage) error {
	s.mu.Lock()
	s.shutdownRequested = true
	s.mu.Unlock()
	s.clearPublishedDiagnostics()
	return s.sendResponse(msg.ID, nil)
}

func (s *Server) handleDidOpen(msg *rpcMessage) error {
	var params didOpenTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	s.docs[uri] = &document{
		text:    params.TextDocument.Text,
		version: params.TextDocument.Version,
	}
	s.mu.Unlock()
	s.validate(uri)
	return nil
}

func (s *Server) handleDidChange(msg *rpcMessage) error {
	var params didChangeTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil {
		doc = &document{}
		s.docs[uri] = doc
	}
	doc.text = applyChanges(doc.text, params.ContentChanges)
	doc.version = params.TextDocument.Version
	s.mu.Unlock()
	s.validate(uri)
	return nil
}

func (s *Server) handleDidSave(msg *rpcMessage) error {
	var params didSaveTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil {
		s.mu.Unlock()
		return nil
	}
	if params.Text != nil {
		doc.text = *params.Text
	}
	s.mu.Unlock()
	s.validate(uri)
	return nil
}

func (s *Server) handleDidClose(msg *rpcMessage) error {
	var params didCloseTextDocumentParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return err
	}
	uri := canonicalURI(params.TextDocument.URI)
	if uri == "" {
		return nil
	}
	s.mu.Lock()
	delete(s.docs, uri)
	_, hadDiagnostics := s.published[uri]
	delete(s.published, uri)
	s.mu.Unlock()
	s.engine.DropDocument(uri)
	if hadDiagnostics {
		if err := s.sendPublish(uri, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
	return nil
}

func (s *Server) handleCodeAction(msg *rpcMessage) error {
	var params codeActionParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		return s.sendError(msg.ID, -32602, "invalid params")
	}
	uri := canonicalURI(params.TextDocument.URI)

	s.mu.Lock()
	doc := s.docs[uri]
	var file *source.File
	var diags []diag.Diagnostic
	if doc != nil {
		file = doc.file
		diags = doc.diags
	}
	s.mu.Unlock()

	actions := make([]codeAction, 0, 1)
	if file == nil {
		return s.sendResponse(msg.ID, actions)
	}

	seen := make(map[string]bool)
	for _, d := range diags {
		if d.GroupID == "" || seen[d.GroupID] {
			continue
		}
		if !rangesOverlap(rangeForSpan(file, d.Primary), params.Range) {
			continue
		}
		spans, ok := s.engine.DeviationGroup(uri, d.GroupID)
		if !ok {
			continue
		}
		f, ok := fix.MergeDeviations(file, d.GroupID, spans)
		if !ok {
			continue
		}
		seen[d.GroupID] = true

		edits := make([]textEdit, len(f.Edits))
		for i, e := range f.Edits {
			edits[i] = textEdit{Range: rangeForSpan(file, e.Span), NewText: e.NewText}
		}
		actions = append(actions, codeAction{
			Title:       f.Title,
			Kind:        "quickfix",
			IsPreferred: f.IsPreferred,
			Diagnostics: []lspDiagnostic{toLSPDiagnostic(file, d)},
			Edit:        &workspaceEdit{Changes: map[string][]textEdit{uri: edits}},
		})
	}
	return s.sendResponse(msg.ID, actions)
}

// validate runs the full analysis pass for one document and publishes the
// result. Diagnostics keep the engine's enumeration order.
func (s *Server) validate(uri string) {
	s.mu.Lock()
	doc := s.docs[uri]
	if doc == nil {
		s.mu.Unlock()
		return
	}
	fileSet := source.NewFileSet()
	id := fileSet.AddVirtual(uriToPath(uri), []byte(doc.text))
	file := fileSet.Get(id)
	doc.file = file
	maxDiagnostics := s.maxDiagnostics
	s.mu.Unlock()

	ast := yang.Parse(file)
	res := s.engine.Validate(uri, ast)
	if res.Suppressed > 0 {
		s.logf("%s: %d rule evaluation error(s) suppressed", uri, res.Suppressed)
	}

	s.mu.Lock()
	if cur := s.docs[uri]; cur != doc {
		// closed or replaced while validating
		s.mu.Unlock()
		return
	}
	doc.diags = res.Diagnostics
	s.published[uri] = struct{}{}
	s.mu.Unlock()

	list := make([]lspDiagnostic, 0, len(res.Diagnostics))
	for _, d := range res.Diagnostics {
		if len(list) >= maxDiagnostics {
			break
		}
		list = append(list, toLSPDiagnostic(file, d))
	}
	if err := s.sendPublish(uri, list); err != nil {
		s.logf("failed to publish diagnostics: %v", err)
	}
}

func (s *Server) revalidateAll() {
	s.mu.Lock()
	uris := make([]string, 0, len(s.docs))
	for uri := range s.docs {
		uris = append(uris, uri)
	}
	s.mu.Unlock()
	for _, uri := range uris {
		s.validate(uri)
	}
}

// reloadRules installs the rule set from the explicit overrides, else from
// the nearest project manifest, else the embedded defaults. A failed load
// empties the active set; the client hears about it once per attempt.
func (s *Server) reloadRules() {
	s.mu.Lock()
	rulesPath, schemaPath, root := s.rulesPath, s.schemaPath, s.workspaceRoot
	s.mu.Unlock()

	var err error
	if rulesPath != "" || schemaPath != "" {
		err = s.loadRuleFiles(rulesPath, schemaPath)
	} else {
		var manifest *project.Manifest
		if root != "" {
			if m, ok, mErr := project.LoadNearest(root); mErr != nil {
				s.showMessage(1, "yangls: "+mErr.Error())
			} else if ok {
				manifest = m
			}
		}
		err = driver.LoadProjectRules(s.engine, manifest)
	}
	if err != nil {
		s.showMessage(1, "yangls: rule set load failed: "+err.Error())
	}
	s.revalidateAll()
}

func (s *Server) loadRuleFiles(rulesPath, schemaPath string) error {
	rulesData := rules.DefaultRules()
	schemaData := rules.DefaultSchema()
	if rulesPath != "" {
		data, err := os.ReadFile(rulesPath)
		if err != nil {
			_ = s.engine.Load(nil, nil)
			return err
		}
		rulesData = data
	}
	if schemaPath != "" {
		data, err := os.ReadFile(schemaPath)
		if err != nil {
			_ = s.engine.Load(nil, nil)
			return err
		}
		schemaData = data
	}
	return s.engine.Load(rulesData, schemaData)
}

func toLSPDiagnostic(file *source.File, d diag.Diagnostic) lspDiagnostic {
	out := lspDiagnostic{
		Range:    rangeForSpan(file, d.Primary),
		Severity: lspSeverity(d.Severity),
		Code:     d.SourceID(),
		Source:   "yangls",
		Message:  d.Message,
	}
	if d.GroupID != "" {
		out.Data = &diagnosticData{GroupID: d.GroupID}
	}
	return out
}

func lspSeverity(sev diag.Severity) int {
	switch sev {
	case diag.SevError:
		return 1
	case diag.SevWarning:
		return 2
	default:
		return 3
	}
}

func (s *Server) clearPublishedDiagnostics() {
	s.mu.Lock()
	if len(s.published) == 0 {
		s.mu.Unlock()
		return
	}
	prev := s.published
	s.published = make(map[string]struct{})
	s.mu.Unlock()
	for uri := range prev {
		if err := s.sendPublish(uri, nil); err != nil {
			s.logf("failed to clear diagnostics: %v", err)
		}
	}
}

func (s *Server) sendResponse(id json.RawMessage, result any) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"result":  result,
	}
	return s.send(msg)
}

func (s *Server) sendError(id json.RawMessage, code int, message string) error {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"id":      json.RawMessage(id),
		"error": rpcError{
			Code:    code,
			Message: message,
		},
	}
	return s.send(msg)
}

func (s *Server) sendPublish(uri string, list []lspDiagnostic) error {
	if list == nil {
		list = []lspDiagnostic{}
	}
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  "textDocument/publishDiagnostics",
		"params": publishDiagnosticsParams{
			URI:         uri,
			Diagnostics: list,
		},
	}
	return s.send(msg)
}

func (s *Server) showMessage(kind int, text string) {
	msg := map[string]any{
		"jsonrpc": "2.0",
		"method":  "window/showMessage",
		"params": showMessageParams{
			Type:    kind,
			Message: text,
		},
	}
	if err := s.send(msg); err != nil {
		s.logf("failed to send showMessage: %v", err)
	}
}

func (s *Server) send(msg any) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if err := writeMessage(s.out, payload); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *Server) logf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "lsp: "+format+"\n", args...)
}
