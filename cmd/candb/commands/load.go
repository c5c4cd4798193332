package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/candb-tools/candb-go/pkg/candb"
	"github.com/candb-tools/candb-go/pkg/descriptor"
	"github.com/candb-tools/candb-go/pkg/diag"
)

// verboseLogger returns a diagnostic logger that writes to stderr, or nil
// when verbose output is off.
func verboseLogger(verbose bool) diag.Logger {
	if !verbose {
		return nil
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})
	return diag.NewSlogAdapter(slog.New(handler))
}

// loadDatabase reads one database file, inferring the dialect from its
// extension.
func loadDatabase(path string, logger diag.Logger) (*descriptor.Database, error) {
	dialect, err := candb.DialectForFile(path)
	if err != nil {
		return nil, err
	}
	text, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read database file: %w", err)
	}
	var opts []candb.Option
	if logger != nil {
		opts = append(opts, candb.WithDiagnostics(logger))
	}
	db, err := candb.Load(string(text), dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return db, nil
}

// loadDatabases loads the first file and merges the rest into it.
func loadDatabases(paths []string, logger diag.Logger) (*descriptor.Database, error) {
	db, err := loadDatabase(paths[0], logger)
	if err != nil {
		return nil, err
	}
	for _, path := range paths[1:] {
		other, err := loadDatabase(path, logger)
		if err != nil {
			return nil, err
		}
		db.Merge(other)
	}
	return db, nil
}
