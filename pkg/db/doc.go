// Package db opens the PostgreSQL pool used by every persistent store.
//
// It wraps [github.com/jackc/pgx/v5/pgxpool] with startup retries, a readiness
// probe and goose migrations from an embedded filesystem:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	sub, _ := fs.Sub(migrations, "migrations")
//	pool, err := db.Open(ctx, cfg.DB,
//		db.WithMigrations(sub),
//		db.WithLogger(log),
//	)
//
// Configuration is read from the environment:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MIGRATIONS_TABLE   - goose version table (default: schema_migrations)
//	DATABASE_MAX_OPEN_CONNS     - maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - minimum idle connections (default: 2)
//	DATABASE_RETRY_ATTEMPTS     - connection attempts at startup (default: 3)
//	DATABASE_RETRY_INTERVAL     - base retry interval (default: 5s)
//
// [InTx] runs a function inside a transaction, returns its result and rolls
// back on error or panic. [Healthcheck] and [Shutdown] return hooks for the HTTP readiness
// probe and graceful shutdown.
package db
