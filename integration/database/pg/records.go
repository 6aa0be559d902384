package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/dealqueue/core/records"
)

var _ records.Store = (*RecordStore)(nil)

// Querier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RecordStore keeps records as JSONB rows of the records table.
// Calls join the transaction attached with WithTx when present.
type RecordStore struct {
	db Querier
}

// NewRecordStore creates a store on db.
func NewRecordStore(db Querier) *RecordStore {
	return &RecordStore{db: db}
}

const (
	getRecordQuery    = `SELECT data FROM records WHERE collection = $1 AND id = $2`
	createRecordQuery = `INSERT INTO records (collection, data) VALUES ($1, $2) RETURNING id`
)

// Get implements records.Store.
func (s *RecordStore) Get(ctx context.Context, collection string, id int64, dst any) error {
	var data []byte
	err := s.querier(ctx).QueryRow(ctx, getRecordQuery, collection, id).Scan(&data)
	if IsNotFoundError(err) {
		return fmt.Errorf("%w: %s/%d", records.ErrNotFound, collection, id)
	}
	if err != nil {
		return fmt.Errorf("get %s/%d: %w", collection, id, err)
	}
	return json.Unmarshal(data, dst)
}

// Create implements records.Store.
func (s *RecordStore) Create(ctx context.Context, collection string, v any) (int64, error) {
	if collection == "" {
		return 0, records.ErrInvalidCollection
	}
	data, err := json.Marshal(v)
	if err != nil {
		return 0, fmt.Errorf("encode %s record: %w", collection, err)
	}

	var id int64
	if err := s.querier(ctx).QueryRow(ctx, createRecordQuery, collection, data).Scan(&id); err != nil {
		return 0, fmt.Errorf("create %s record: %w", collection, err)
	}
	return id, nil
}

func (s *RecordStore) querier(ctx context.Context) Querier {
	if tx, ok := TxFromContext(ctx); ok {
		return tx
	}
	return s.db
}
