package analyze

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Emberfield/autodoc/internal/boundary"
	"github.com/Emberfield/autodoc/internal/entity"
	"github.com/Emberfield/autodoc/internal/extract"
	"github.com/Emberfield/autodoc/internal/walker"
)

// MetaRoot is the store metadata key holding the last analyzed root.
const MetaRoot = "root"

// Stats reports analysis results.
type Stats struct {
	FilesTotal   int `json:"files_total"`
	FilesParsed  int `json:"files_parsed"`
	FilesCached  int `json:"files_cached"`
	FilesFailed  int `json:"files_failed"`
	FilesRemoved int `json:"files_removed"`
	Functions    int `json:"functions"`
	Methods      int `json:"methods"`
	Classes      int `json:"classes"`
	Endpoints    int `json:"endpoints"`
}

// Failure is a file that could not be analyzed.
type Failure struct {
	Path    string `json:"path"`
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Result is the outcome of a directory analysis. Entities are grouped by
// file in relative-path order and keep source order within a file.
type Result struct {
	Root     string            `json:"root"`
	Entities []boundary.Record `json:"entities"`
	Failures []Failure         `json:"failures"`
	Stats    Stats             `json:"stats"`
}

// AnalyzeDirectory walks root and analyzes every Python file on a bounded
// worker pool. With FailFast the first failing file aborts the run;
// otherwise failures are collected and the remaining files still count.
// Cancellation is observed between files.
func (a *Analyzer) AnalyzeDirectory(ctx context.Context, root string) (*Result, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	files, err := a.collect(ctx, absRoot)
	if err != nil {
		return nil, err
	}
	a.logger.WithFields(logrus.Fields{
		"root":  absRoot,
		"files": len(files),
	}).Info("analyzing directory")

	results := make([]fileResult, len(files))
	failed := make([]error, len(files))
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.Workers)
	for i, fi := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := a.analyzeOne(fi.Path, fi.RelPath)
			if err != nil {
				if a.config.FailFast {
					return fmt.Errorf("analyze %s: %w", fi.RelPath, err)
				}
				a.logger.WithField("file", fi.RelPath).WithError(err).Warn("skipping file")
				failed[i] = err
			} else {
				results[i] = res
			}
			if a.config.OnProgress != nil {
				a.config.OnProgress(int(done.Add(1)), len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	// The loop may stop scheduling without any worker observing it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &Result{
		Root:     absRoot,
		Entities: []boundary.Record{},
		Failures: []Failure{},
	}
	result.Stats.FilesTotal = len(files)
	for i, fi := range files {
		if failed[i] != nil {
			result.Failures = append(result.Failures, Failure{Path: fi.RelPath, Message: failed[i].Error(), Err: failed[i]})
			result.Stats.FilesFailed++
			continue
		}
		if results[i].cached {
			result.Stats.FilesCached++
		} else {
			result.Stats.FilesParsed++
		}
		result.Entities = append(result.Entities, results[i].records...)
	}
	countEntities(&result.Stats, result.Entities)

	if a.config.Store != nil {
		removed, err := a.prune(files)
		if err != nil {
			return nil, err
		}
		result.Stats.FilesRemoved = removed
		if err := a.config.Store.SetMeta(MetaRoot, absRoot); err != nil {
			return nil, fmt.Errorf("set meta: %w", err)
		}
	}

	a.logger.WithFields(logrus.Fields{
		"parsed":   result.Stats.FilesParsed,
		"cached":   result.Stats.FilesCached,
		"failed":   result.Stats.FilesFailed,
		"entities": len(result.Entities),
	}).Info("analysis complete")
	return result, nil
}

// collect drains the walker so the total is known before work starts.
func (a *Analyzer) collect(ctx context.Context, root string) ([]walker.FileInfo, error) {
	fileCh, errCh := walker.Walk(ctx, root, walker.Options{
		Extensions:     extract.Extensions(),
		MaxFileSize:    a.config.MaxFileSize,
		IgnorePatterns: a.config.IgnorePatterns,
	})
	var files []walker.FileInfo
	for fi := range fileCh {
		files = append(files, fi)
	}
	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// prune drops stored files that no longer exist under the root.
func (a *Analyzer) prune(files []walker.FileInfo) (int, error) {
	seen := make(map[string]bool, len(files))
	for _, fi := range files {
		seen[fi.RelPath] = true
	}
	stored, err := a.config.Store.Files()
	if err != nil {
		return 0, fmt.Errorf("list stored files: %w", err)
	}
	removed := 0
	for _, f := range stored {
		if seen[f.Path] {
			continue
		}
		if err := a.config.Store.DeleteFile(f.Path); err != nil {
			return removed, fmt.Errorf("delete stale %s: %w", f.Path, err)
		}
		a.logger.WithField("file", f.Path).Debug("removed stale file")
		removed++
	}
	return removed, nil
}

func countEntities(s *Stats, records []boundary.Record) {
	for _, r := range records {
		switch entity.EntityType(r.EntityType) {
		case entity.Function:
			s.Functions++
		case entity.Method:
			s.Methods++
		case entity.Class:
			s.Classes++
		}
		if r.IsAPIEndpoint {
			s.Endpoints++
		}
	}
}
