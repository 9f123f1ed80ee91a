// Package pg bootstraps the PostgreSQL layer: connection pooling, schema
// migrations, health checks, and the error helpers repositories need to map
// driver errors onto domain sentinels.
//
// The package keeps a small API over battle-tested upstream libraries
// (pgx/v5 for connectivity, goose/v3 for migrations) so callers are never
// locked in.
//
// # Core Components
//
//   - Config: pool limits, retry policy, and migration paths populated from
//     environment variables via github.com/caarlos0/env.
//   - Connect: opens a *pgxpool.Pool, retrying with backoff until the
//     database becomes available.
//   - Migrate: applies goose migrations through the same pool before the
//     service starts serving traffic.
//   - Healthcheck: a func(context.Context) error closure for readiness
//     endpoints.
//
// # Quick Start
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		return err
//	}
//
// # Error Handling
//
// Repositories branch on driver errors through the helpers instead of
// importing pgx directly at call sites:
//
//	row := pool.QueryRow(ctx, query, id)
//	if err := row.Scan(&out); pg.IsNotFoundError(err) {
//		return nil, ErrSubscriptionNotFound
//	}
package pg
