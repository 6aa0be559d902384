// Package pg provides the PostgreSQL records store used by the job handlers.
//
// Connect opens a pgx pool and retries the first ping with exponential backoff.
// Migrate applies the embedded goose migrations that create the records table.
// RecordStore implements records.Store on that table, storing each record as
// JSONB keyed by collection and id.
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//
//	if err := pg.Migrate(ctx, pool, cfg, logger); err != nil {
//		return err
//	}
//	store := pg.NewRecordStore(pool)
//
// Calls made with a context from WithTx run inside that transaction:
//
//	tx, _ := pool.Begin(ctx)
//	id, err := store.Create(pg.WithTx(ctx, tx), records.Timeline, entry)
//
// Error helpers classify driver errors without importing pgconn:
// IsNotFoundError, IsDuplicateKeyError, IsForeignKeyViolationError and
// IsTxClosedError.
package pg
