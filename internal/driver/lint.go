// Package driver orchestrates lint runs for the CLI: rule loading, document
// scanning, rule evaluation, fix synthesis, and the on-disk result cache.
package driver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"yangls/internal/diag"
	"yangls/internal/fix"
	"yangls/internal/project"
	"yangls/internal/rules"
	"yangls/internal/source"
	"yangls/internal/yang"
)

// Options configures a lint run.
type Options struct {
	MaxDiagnostics int
	Jobs           int        // 0 means GOMAXPROCS
	Cache          *DiskCache // nil disables caching
	Exclude        []string   // manifest [lint].exclude patterns
}

// FileResult is the outcome for one document.
type FileResult struct {
	Path   string
	FileID source.FileID
	Bag    *diag.Bag
	Cached bool
}

// listYANGFiles returns a sorted list of all *.yang files under dir.
func listYANGFiles(dir string, exclude []string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".yang") {
			return nil
		}
		rel, relErr := filepath.Rel(dir, path)
		if relErr != nil {
			rel = path
		}
		if excluded(filepath.ToSlash(rel), exclude) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	// deterministic order
	sort.Strings(files)
	return files, nil
}

// excluded matches a slash-relative path against manifest exclude patterns.
// "dir/**" excludes everything under dir; other patterns go through
// filepath.Match against the full relative path and the basename.
func excluded(rel string, patterns []string) bool {
	for _, pat := range patterns {
		if strings.HasSuffix(pat, "/**") {
			if strings.HasPrefix(rel, strings.TrimSuffix(pat, "**")) {
				return true
			}
			continue
		}
		if ok, _ := filepath.Match(pat, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(rel)); ok {
			return true
		}
	}
	return false
}

// LoadProjectRules installs the rule set named by the manifest, falling back
// to the embedded defaults for whichever of the two documents the manifest
// does not name. A nil manifest means both defaults.
func LoadProjectRules(e *rules.Engine, manifest *project.Manifest) error {
	rulesData := rules.DefaultRules()
	schemaData := rules.DefaultSchema()

	if manifest != nil {
		if p := manifest.RulesPath(); p != "" {
			data, err := os.ReadFile(p)
			if err != nil {
				_ = e.Load(nil, nil) // clear the active set
				return err
			}
			rulesData = data
		}
		if p := manifest.SchemaPath(); p != "" {
			data, err := os.ReadFile(p)
			if err != nil {
				_ = e.Load(nil, nil)
				return err
			}
			schemaData = data
		}
	}
	return e.Load(rulesData, schemaData)
}

// LintDir lints every *.yang file under dir in parallel and returns the
// per-file outcomes in sorted path order.
func LintDir(ctx context.Context, dir string, engine *rules.Engine, opts Options) (*source.FileSet, []FileResult, error) {
	files, err := listYANGFiles(dir, opts.Exclude)
	if err != nil {
		return nil, nil, err
	}
	fileSet := source.NewFileSetWithBase(dir)
	if len(files) == 0 {
		return fileSet, nil, nil
	}

	// preload sequentially, the FileSet is not safe for concurrent Add
	fileIDs := make(map[string]source.FileID, len(files))
	loadErrors := make(map[string]error, len(files))
	for _, path := range files {
		fileID, err := fileSet.Load(path)
		if err != nil {
			loadErrors[path] = err
			continue
		}
		fileIDs[path] = fileID
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// per-index slots, no mutex needed
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(files)))

	for i, path := range files {
		i, path := i, path
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bag := diag.NewBag(opts.MaxDiagnostics)
			if loadErr, hadError := loadErrors[path]; hadError {
				bag.Add(diag.Diagnostic{
					Severity: diag.SevError,
					Code:     diag.IOLoadFileError,
					Message:  "failed to load file: " + loadErr.Error(),
				})
				results[i] = FileResult{Path: path, Bag: bag}
				return nil
			}

			fileID := fileIDs[path]
			results[i] = lintOne(fileSet.Get(fileID), engine, opts, bag)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fileSet, results, err
	}
	return fileSet, results, nil
}

// LintFile lints a single document that is already in the set.
func LintFile(fileSet *source.FileSet, id source.FileID, engine *rules.Engine, opts Options) FileResult {
	bag := diag.NewBag(opts.MaxDiagnostics)
	return lintOne(fileSet.Get(id), engine, opts, bag)
}

func lintOne(file *source.File, engine *rules.Engine, opts Options, bag *diag.Bag) FileResult {
	docKey := file.Path
	rulesetHash := engine.RulesetHash()
	key := cacheKey(file.Hash, rulesetHash)

	var res *rules.Result
	cached := false
	if opts.Cache != nil {
		var payload DiskPayload
		if ok, err := opts.Cache.Get(key, &payload); ok && err == nil {
			res = diskPayloadToResult(&payload, rulesetHash, file.ID)
			cached = res != nil
		}
	}

	if res == nil {
		fresh := engine.Validate(docKey, yang.Parse(file))
		res = &fresh
		if opts.Cache != nil {
			_ = opts.Cache.Put(key, resultToDiskPayload(fresh, rulesetHash))
		}
	} else if hasGroups(res.Diagnostics) {
		// cached findings reference deviation groups; rebuild the index so
		// fix synthesis still has the occurrence spans
		engine.IndexDeviations(docKey, yang.Parse(file))
	}

	reportWithFixes(file, engine, res, diag.BagReporter{Bag: bag})
	bag.AddSuppressed(res.Suppressed)

	return FileResult{Path: file.Path, FileID: file.ID, Bag: bag, Cached: cached}
}

// reportWithFixes delivers engine findings to sink, attaching the merge fix
// to each grouped finding whose occurrence spans are indexed.
func reportWithFixes(file *source.File, engine *rules.Engine, res *rules.Result, sink diag.Reporter) {
	for _, d := range res.Diagnostics {
		if d.GroupID != "" {
			if spans, ok := engine.DeviationGroup(file.Path, d.GroupID); ok {
				if f, ok := fix.MergeDeviations(file, d.GroupID, spans); ok {
					d = d.WithFix(f)
				}
			}
		}
		sink.Report(d)
	}
}

func hasGroups(diags []diag.Diagnostic) bool {
	for _, d := range diags {
		if d.GroupID != "" {
			return true
		}
	}
	return false
}

// MergeResults folds per-file bags into one bag sized to hold everything.
func MergeResults(results []FileResult) *diag.Bag {
	total := 0
	for _, r := range results {
		if r.Bag != nil {
			total += r.Bag.Len()
		}
	}
	merged := diag.NewBag(max(total, 1))
	for _, r := range results {
		if r.Bag != nil {
			merged.Merge(r.Bag)
		}
	}
	return merged
}

// CollectSorted merges per-file bags into one bag ordered for terminal
// output: file, then span, with repeated (source, span) pairs dropped.
func CollectSorted(results []FileResult) *diag.Bag {
	merged := MergeResults(results)
	merged.Sort()
	merged.Dedup()
	return merged
}
