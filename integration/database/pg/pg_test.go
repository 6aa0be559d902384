package pg_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/dealqueue/core/records"
	"github.com/dmitrymomot/dealqueue/integration/database/pg"
)

type row struct {
	values []any
	err    error
}

func (r row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *[]byte:
			*p = r.values[i].([]byte)
		case *int64:
			*p = r.values[i].(int64)
		default:
			return fmt.Errorf("unexpected scan target %T", d)
		}
	}
	return nil
}

type querier struct {
	row   row
	calls []string
	args  [][]any
}

func (q *querier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	q.calls = append(q.calls, sql)
	q.args = append(q.args, args)
	return q.row
}

// txQuerier satisfies pgx.Tx through the embedded nil interface; only QueryRow is used.
type txQuerier struct {
	pgx.Tx
	*querier
}

func (t txQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.querier.QueryRow(ctx, sql, args...)
}

func TestRecordStore(t *testing.T) {
	t.Parallel()

	t.Run("get decodes jsonb", func(t *testing.T) {
		t.Parallel()
		q := &querier{row: row{values: []any{[]byte(`{"name":"Ada"}`)}}}
		store := pg.NewRecordStore(q)

		var user struct {
			Name string `json:"name"`
		}
		require.NoError(t, store.Get(context.Background(), records.Users, 7, &user))
		assert.Equal(t, "Ada", user.Name)
		assert.Equal(t, []any{records.Users, int64(7)}, q.args[0])
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		t.Parallel()
		store := pg.NewRecordStore(&querier{row: row{err: pgx.ErrNoRows}})

		var v map[string]any
		err := store.Get(context.Background(), records.Deals, 1, &v)
		assert.ErrorIs(t, err, records.ErrNotFound)
	})

	t.Run("create returns id", func(t *testing.T) {
		t.Parallel()
		q := &querier{row: row{values: []any{int64(42)}}}
		store := pg.NewRecordStore(q)

		id, err := store.Create(context.Background(), records.Timeline, map[string]string{"event": "uploaded"})
		require.NoError(t, err)
		assert.Equal(t, int64(42), id)

		var stored map[string]string
		require.NoError(t, json.Unmarshal(q.args[0][1].([]byte), &stored))
		assert.Equal(t, "uploaded", stored["event"])
	})

	t.Run("create rejects empty collection", func(t *testing.T) {
		t.Parallel()
		store := pg.NewRecordStore(&querier{})
		_, err := store.Create(context.Background(), "", struct{}{})
		assert.ErrorIs(t, err, records.ErrInvalidCollection)
	})

	t.Run("uses transaction from context", func(t *testing.T) {
		t.Parallel()
		pool := &querier{}
		txq := &querier{row: row{values: []any{int64(1)}}}
		store := pg.NewRecordStore(pool)

		ctx := pg.WithTx(context.Background(), txQuerier{querier: txq})
		_, err := store.Create(ctx, records.Reports, struct{}{})
		require.NoError(t, err)
		assert.Empty(t, pool.calls)
		assert.Len(t, txq.calls, 1)
	})
}

func TestErrorHelpers(t *testing.T) {
	t.Parallel()

	dup := fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})
	fk := &pgconn.PgError{Code: "23503"}

	assert.True(t, pg.IsDuplicateKeyError(dup))
	assert.False(t, pg.IsDuplicateKeyError(fk))
	assert.True(t, pg.IsForeignKeyViolationError(fk))
	assert.False(t, pg.IsForeignKeyViolationError(errors.New("boom")))
	assert.True(t, pg.IsNotFoundError(fmt.Errorf("get: %w", pgx.ErrNoRows)))
	assert.True(t, pg.IsTxClosedError(pgx.ErrTxClosed))
	assert.False(t, pg.IsTxClosedError(nil))
}

func TestTxContext(t *testing.T) {
	t.Parallel()

	_, ok := pg.TxFromContext(context.Background())
	assert.False(t, ok)

	ctx := pg.WithTx(context.Background(), nil)
	_, ok = pg.TxFromContext(ctx)
	assert.False(t, ok)

	tx := txQuerier{querier: &querier{}}
	got, ok := pg.TxFromContext(pg.WithTx(context.Background(), tx))
	require.True(t, ok)
	assert.Equal(t, tx, got)
}

func TestConnectRequiresConnectionString(t *testing.T) {
	t.Parallel()
	_, err := pg.Connect(context.Background(), pg.Config{})
	assert.ErrorIs(t, err, pg.ErrEmptyConnectionString)
	assert.False(t, pg.Config{}.Enabled())
}
