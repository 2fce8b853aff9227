package driver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"codespice/internal/config"
	"codespice/internal/diag"
	"codespice/internal/engine"
	"codespice/internal/observ"
	"codespice/internal/source"
	"codespice/internal/trace"
)

// Options configures a diagnose run.
type Options struct {
	Config config.Config
	// MaxDiagnostics caps Result.Bag; <= 0 means no limit.
	MaxDiagnostics int
	// Jobs bounds parallel file analysis; <= 0 means GOMAXPROCS.
	Jobs int
	// Exclude adds doublestar globs to Config.Files.Exclude.
	Exclude []string
	// BaseDir anchors relative display paths; empty means the working directory.
	BaseDir string
	Cache   *DiskCache
	Timings bool
	// Progress receives per-file events.
	Progress ProgressSink
}

// FileResult is the outcome for one file.
type FileResult struct {
	Path        string
	FileID      source.FileID
	Diagnostics []diag.Diagnostic
	Cached      bool
	Err         error
}

// Result holds everything a host needs to render a run.
type Result struct {
	FileSet *source.FileSet
	Files   []FileResult
	// Bag holds every diagnostic of the run, sorted and capped.
	Bag    *diag.Bag
	Timing *observ.Report
}

// CachedCount reports how many files were served by the disk cache.
func (r *Result) CachedCount() int {
	n := 0
	for _, f := range r.Files {
		if f.Cached {
			n++
		}
	}
	return n
}

// Errs joins the per-file load errors.
func (r *Result) Errs() error {
	var errs []error
	for _, f := range r.Files {
		if f.Err != nil {
			errs = append(errs, f.Err)
		}
	}
	return errors.Join(errs...)
}

// DiagnoseFile analyzes a single file.
func DiagnoseFile(ctx context.Context, path string, opts Options) (*Result, error) {
	return Diagnose(ctx, []string{path}, opts)
}

// DiagnoseDir analyzes every C/C++ file under dir.
func DiagnoseDir(ctx context.Context, dir string, opts Options) (*Result, error) {
	return Diagnose(ctx, []string{dir}, opts)
}

// Diagnose analyzes files and directories. Directories are walked for
// supported extensions; explicit files are always taken as given.
func Diagnose(ctx context.Context, paths []string, opts Options) (*Result, error) {
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "diagnose")
	defer span.End()

	cfg := opts.Config.Normalize()
	exclude := append(append([]string(nil), cfg.Files.Exclude...), opts.Exclude...)
	for _, p := range exclude {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}

	emit(opts.Progress, Event{Stage: StageWalk, Status: StatusWorking})
	files, err := collectFiles(paths, exclude)
	if err != nil {
		emit(opts.Progress, Event{Stage: StageWalk, Status: StatusError, Err: err})
		return nil, err
	}
	span.Set("files", strconv.Itoa(len(files)))
	for _, f := range files {
		emit(opts.Progress, Event{File: f, Stage: StageLoad, Status: StatusQueued})
	}

	baseDir := opts.BaseDir
	if baseDir == "" {
		if wd, err := os.Getwd(); err == nil {
			baseDir = wd
		}
	}
	fileSet := source.NewFileSetWithBase(baseDir)

	var timer *observ.Timer
	if opts.Timings {
		timer = observ.NewTimer()
	}
	eng := engine.New(engine.Options{Start: true, Timer: timer})
	store := engine.NewStore()

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	results := make([]FileResult, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))
	for i, path := range files {
		g.Go(func() error {
			// Проверка отмены
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = diagnoseOne(gctx, path, fileSet, eng, store, cfg, opts)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	bag := diag.NewBag(opts.MaxDiagnostics)
	for _, r := range results {
		for _, d := range r.Diagnostics {
			bag.Add(d)
		}
	}
	bag.Sort()

	res := &Result{FileSet: fileSet, Files: results, Bag: bag}
	if timer != nil {
		report := timer.Report()
		res.Timing = &report
	}
	emit(opts.Progress, Event{Stage: StageAnalyze, Status: StatusDone, Diagnostics: bag.Len()})
	return res, nil
}

// DiagnoseSource analyzes an in-memory document, e.g. stdin.
func DiagnoseSource(ctx context.Context, name string, content []byte, opts Options) (*Result, error) {
	cfg := opts.Config.Normalize()
	fileSet := source.NewFileSetWithBase(opts.BaseDir)
	f := fileSet.Get(fileSet.AddVirtual(name, content))
	set := engine.New(engine.Options{}).Analyze(ctx, f, cfg)

	bag := diag.NewBag(opts.MaxDiagnostics)
	for _, d := range set.All() {
		bag.Add(d)
	}
	bag.Sort()
	return &Result{
		FileSet: fileSet,
		Files:   []FileResult{{Path: name, FileID: f.ID, Diagnostics: set.All()}},
		Bag:     bag,
	}, nil
}

func diagnoseOne(ctx context.Context, path string, fileSet *source.FileSet, eng *engine.Engine, store *engine.Store, cfg config.Config, opts Options) FileResult {
	start := time.Now()
	emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusWorking})
	id, err := fileSet.Load(path)
	if err != nil {
		err = fmt.Errorf("load %s: %w", path, err)
		emit(opts.Progress, Event{File: path, Stage: StageLoad, Status: StatusError, Err: err, Elapsed: time.Since(start)})
		return FileResult{Path: path, Err: err}
	}
	f := fileSet.Get(id)
	res := FileResult{Path: path, FileID: id}

	key := CacheKey(f, cfg)
	var payload DiskPayload
	if ok, cacheErr := opts.Cache.Get(key, &payload); cacheErr == nil && ok {
		res.Diagnostics = payload.restore(id)
		res.Cached = true
		emit(opts.Progress, Event{File: path, Stage: StageAnalyze, Status: StatusCached, Elapsed: time.Since(start), Diagnostics: len(res.Diagnostics)})
		return res
	}

	emit(opts.Progress, Event{File: path, Stage: StageAnalyze, Status: StatusWorking})
	if eng.Run(ctx, path, f, cfg, store) {
		res.Diagnostics = store.Get(path)
	}
	// ошибки кэша не валят прогон
	_ = opts.Cache.Put(key, toDiskPayload(path, res.Diagnostics))
	emit(opts.Progress, Event{File: path, Stage: StageAnalyze, Status: StatusDone, Elapsed: time.Since(start), Diagnostics: len(res.Diagnostics)})
	return res
}

// collectFiles expands directories, drops excluded paths and returns a
// sorted, duplicate-free list.
func collectFiles(paths []string, exclude []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		p = filepath.Clean(p)
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		files = append(files, p)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}
		if !info.IsDir() {
			if !excluded(filepath.ToSlash(filepath.Clean(root)), exclude) {
				add(root)
			}
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			rel, relErr := filepath.Rel(root, path)
			if relErr != nil {
				return relErr
			}
			rel = filepath.ToSlash(rel)
			if d.IsDir() {
				if path == root {
					return nil
				}
				if strings.HasPrefix(d.Name(), ".") || excluded(rel, exclude) || excluded(rel+"/", exclude) {
					return fs.SkipDir
				}
				return nil
			}
			if engine.Supported(path) && !excluded(rel, exclude) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", root, err)
		}
	}

	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

func excluded(rel string, patterns []string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}
