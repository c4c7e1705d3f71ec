package analyze

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/Emberfield/autodoc/internal/boundary"
	"github.com/Emberfield/autodoc/internal/extract"
	"github.com/Emberfield/autodoc/internal/store"
)

// ProgressFunc is called after each file finishes, successfully or not.
type ProgressFunc func(done, total int)

// Config holds the analyzer configuration.
type Config struct {
	Workers        int
	FailFast       bool
	MaxFileSize    int64
	IgnorePatterns []string
	// Store caches results by content hash. Nil disables caching.
	Store      store.Store
	Logger     *logrus.Logger
	OnProgress ProgressFunc
}

// Analyzer is the public API for extracting entities from files and trees.
type Analyzer struct {
	parser *extract.Parser
	config Config
	logger *logrus.Logger
}

// New creates an Analyzer with the given configuration.
func New(cfg Config) *Analyzer {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Analyzer{
		parser: extract.NewParser(),
		config: cfg,
		logger: logger,
	}
}

// AnalyzeSource extracts records from in-memory source. It never touches
// the store.
func (a *Analyzer) AnalyzeSource(src []byte, filePath string) ([]boundary.Record, error) {
	entities, err := a.parser.ParseSource(src, filePath)
	if err != nil {
		return nil, err
	}
	return boundary.FromEntities(entities), nil
}

// AnalyzeFile extracts records from a single file. The path is recorded on
// the records as given.
func (a *Analyzer) AnalyzeFile(ctx context.Context, path string) ([]boundary.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := a.analyzeOne(path, path)
	if err != nil {
		return nil, err
	}
	return res.records, nil
}

// fileResult is the outcome of analyzing one file.
type fileResult struct {
	records []boundary.Record
	cached  bool
}

// analyzeOne reads path, serves it from the store when its hash is
// unchanged, and otherwise parses and persists it under displayPath.
func (a *Analyzer) analyzeOne(path, displayPath string) (fileResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return fileResult{}, &extract.IOError{Path: displayPath, Err: err}
	}
	log := a.logger.WithField("file", displayPath)

	var hash string
	if a.config.Store != nil {
		h := sha256.Sum256(src)
		hash = hex.EncodeToString(h[:])

		existing, err := a.config.Store.GetFileHash(displayPath)
		if err != nil {
			log.WithError(err).Warn("hash lookup failed, reparsing")
		} else if existing == hash {
			records, err := a.config.Store.FileEntities(displayPath)
			if err == nil {
				log.Debug("unchanged, served from store")
				return fileResult{records: records, cached: true}, nil
			}
			log.WithError(err).Warn("cached entities unreadable, reparsing")
		}
	}

	records, err := a.AnalyzeSource(src, displayPath)
	if err != nil {
		// Entities from an earlier good parse no longer describe the file.
		var perr *extract.ParseError
		if a.config.Store != nil && errors.As(err, &perr) {
			if derr := a.config.Store.DeleteFile(displayPath); derr != nil {
				log.WithError(derr).Warn("dropping stale entities failed")
			}
		}
		return fileResult{}, err
	}
	log.WithField("entities", len(records)).Debug("parsed")

	if a.config.Store != nil {
		if err := a.config.Store.ReplaceFile(displayPath, hash, records); err != nil {
			return fileResult{}, fmt.Errorf("store %s: %w", displayPath, err)
		}
	}
	return fileResult{records: records}, nil
}
