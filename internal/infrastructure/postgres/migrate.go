package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/facturacion-sri/pkg/logger"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migration script SQL versionado por nombre de archivo (NNN_descripcion.sql).
type Migration struct {
	Version string
	SQL     string
}

// LoadMigrations lee los scripts embebidos ordenados por nombre.
func LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("leer migraciones: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		b, err := migrationFiles.ReadFile("migrations/" + name)
		if err != nil {
			return nil, fmt.Errorf("leer %s: %w", name, err)
		}
		out = append(out, Migration{Version: strings.TrimSuffix(name, ".sql"), SQL: string(b)})
	}
	return out, nil
}

// Migrate aplica en orden las migraciones pendientes, cada una en su propia transacción,
// y registra la versión en schema_migrations. Devuelve las versiones aplicadas.
func Migrate(ctx context.Context, pool *pgxpool.Pool, log *logger.Logger) ([]string, error) {
	if log == nil {
		log = logger.Nop()
	}
	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return nil, fmt.Errorf("crear schema_migrations: %w", err)
	}

	migrations, err := LoadMigrations()
	if err != nil {
		return nil, err
	}

	applied := []string{}
	for _, m := range migrations {
		done, err := migrationApplied(ctx, pool, m.Version)
		if err != nil {
			return applied, err
		}
		if done {
			continue
		}
		err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, m.SQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version)
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("migración %s: %w", m.Version, err)
		}
		log.Info().Str("version", m.Version).Msg("migración aplicada")
		applied = append(applied, m.Version)
	}
	return applied, nil
}

func migrationApplied(ctx context.Context, q Querier, version string) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("consultar schema_migrations: %w", err)
	}
	return exists, nil
}
