package store

import (
	"context"
	"embed"
	"log/slog"
	"path"
	"sort"

	"github.com/pkg/errors"
)

// Migration files live at store/migration/{driver}/. LATEST.sql holds the
// full schema for fresh installations; numbered NN__description.sql files
// are incremental and applied in lexicographic order on top of an already
// initialized database.

//go:embed migration
var migrationFS embed.FS

const (
	// LatestSchemaFileName is the full-schema file used for new installations.
	LatestSchemaFileName = "LATEST.sql"
)

// Migrate brings the database schema up to date. A fresh database gets
// LATEST.sql; an initialized one gets any incremental files it has not seen.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check database state")
	}

	if !initialized {
		slog.Info("initializing database schema", slog.String("driver", s.profile.Driver))
		if err := s.applyFile(ctx, path.Join("migration", s.profile.Driver, LatestSchemaFileName)); err != nil {
			return errors.Wrap(err, "failed to apply latest schema")
		}
		return nil
	}

	return s.applyIncremental(ctx)
}

// applyIncremental runs every numbered migration file for the active driver.
// Statements are written to be idempotent (IF NOT EXISTS) so re-running a
// file is harmless.
func (s *Store) applyIncremental(ctx context.Context) error {
	dir := path.Join("migration", s.profile.Driver)
	entries, err := migrationFS.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "failed to read migration dir %s", dir)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == LatestSchemaFileName {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.applyFile(ctx, path.Join(dir, name)); err != nil {
			return errors.Wrapf(err, "failed to apply migration %s", name)
		}
	}
	return nil
}

func (s *Store) applyFile(ctx context.Context, name string) error {
	buf, err := migrationFS.ReadFile(name)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", name)
	}
	if _, err := s.driver.GetDB().ExecContext(ctx, string(buf)); err != nil {
		return errors.Wrapf(err, "failed to execute %s", name)
	}
	return nil
}
