package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"yangls/internal/diagfmt"
	"yangls/internal/driver"
	"yangls/internal/observ"
	"yangls/internal/source"
)

var lintCmd = &cobra.Command{
	Use:   "lint [flags] <file.yang|directory>",
	Short: "Check YANG modules against the active rule set",
	Long:  `Run the rule set over a single YANG module or every *.yang file under a directory. Rules come from the nearest yangls.toml manifest, falling back to the built-in set.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runLint,
}

func init() {
	lintCmd.Flags().String("format", "pretty", "output format (pretty|json)")
	lintCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	lintCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	lintCmd.Flags().Bool("suggest", false, "include fix suggestions in output")
	lintCmd.Flags().Bool("fullpath", false, "emit absolute file paths in output")
	lintCmd.Flags().Bool("no-cache", false, "disable the persistent result cache")
}

func runLint(cmd *cobra.Command, args []string) error {
	targetPath := args[0]

	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	suggest, err := cmd.Flags().GetBool("suggest")
	if err != nil {
		return fmt.Errorf("failed to get suggest flag: %w", err)
	}
	fullPath, err := cmd.Flags().GetBool("fullpath")
	if err != nil {
		return fmt.Errorf("failed to get fullpath flag: %w", err)
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return fmt.Errorf("failed to get no-cache flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	st, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	startDir := targetPath
	if !st.IsDir() {
		startDir = filepath.Dir(targetPath)
	}

	timer := observ.NewTimer()

	phase := timer.Begin("rules")
	engine, manifest, err := setupEngine(startDir)
	if err != nil {
		return err
	}
	timer.End(phase, fmt.Sprintf("%d rules", engine.RuleCount()))

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	if !cmd.Root().PersistentFlags().Changed("max-diagnostics") && manifest != nil {
		maxDiagnostics = manifest.Config.Lint.MaxDiagnostics
	}

	opts := driver.Options{
		MaxDiagnostics: maxDiagnostics,
		Jobs:           jobs,
	}
	if manifest != nil {
		opts.Exclude = manifest.Config.Lint.Exclude
	}
	if !noCache {
		if cache, cacheErr := driver.OpenDiskCache("yangls"); cacheErr == nil {
			opts.Cache = cache
		}
	}

	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))
	pathMode := diagfmt.PathModeAuto
	if fullPath {
		pathMode = diagfmt.PathModeAbsolute
	}
	prettyOpts := diagfmt.PrettyOpts{
		Color:     useColor,
		Context:   2,
		PathMode:  pathMode,
		ShowNotes: withNotes,
		ShowFixes: suggest,
	}
	jsonOpts := diagfmt.JSONOpts{
		IncludePositions: true,
		PathMode:         pathMode,
		IncludeNotes:     withNotes,
		IncludeFixes:     suggest,
		IncludePreviews:  suggest,
	}

	var (
		fileSet *source.FileSet
		results []driver.FileResult
	)

	phase = timer.Begin("lint")
	if st.IsDir() {
		fileSet, results, err = driver.LintDir(cmd.Context(), targetPath, engine, opts)
		if err != nil {
			return fmt.Errorf("lint failed: %w", err)
		}
	} else {
		fileSet = source.NewFileSetWithBase(startDir)
		fileID, loadErr := fileSet.Load(targetPath)
		if loadErr != nil {
			return fmt.Errorf("failed to load file: %w", loadErr)
		}
		results = []driver.FileResult{driver.LintFile(fileSet, fileID, engine, opts)}
	}
	timer.End(phase, fmt.Sprintf("%d files", len(results)))

	// one position-ordered view across all files for terminal output
	merged := driver.CollectSorted(results)

	exit := 0
	if merged.HasErrors() {
		exit = 1
	}

	switch format {
	case "pretty":
		if merged.Len() > 0 || merged.Suppressed() > 0 {
			diagfmt.Pretty(os.Stdout, merged, fileSet, prettyOpts)
		}
	case "json":
		output := make(map[string]diagfmt.DiagnosticsOutput, len(results))
		for _, r := range results {
			displayPath := r.Path
			if file := fileSet.Get(r.FileID); file != nil {
				mode := "auto"
				if fullPath {
					mode = "absolute"
				}
				displayPath = file.FormatPath(mode, fileSet.BaseDir())
			}
			r.Bag.Sort()
			r.Bag.Dedup()
			output[displayPath] = diagfmt.BuildDiagnosticsOutput(r.Bag, fileSet, jsonOpts)
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(output); err != nil {
			return fmt.Errorf("failed to encode diagnostics output: %w", err)
		}
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	if showTimings && !quiet {
		fmt.Fprint(os.Stderr, timer.Summary())
	}

	if exit != 0 {
		// diagnostics already printed, keep cobra quiet
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("")
	}
	return nil
}
