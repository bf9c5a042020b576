package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/vaultmesh/covenant/pkg/receipt"

	_ "github.com/lib/pq"
)

// PostgresStore is a ReceiptStore backed by lib/pq, storing each receipt's
// canonical bytes keyed by ID.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens (and migrates) a PostgresStore over db.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, &StoreError{Kind: ErrIO, Err: err}
	}
	return s, nil
}

func (s *PostgresStore) migrate() error {
	_, err := s.db.ExecContext(context.Background(), `
		CREATE TABLE IF NOT EXISTS receipts (
			id        TEXT PRIMARY KEY,
			component TEXT NOT NULL,
			canonical BYTEA NOT NULL,
			seq       BIGINT NOT NULL
		)`)
	return err
}

func (s *PostgresStore) Put(ctx context.Context, r receipt.Receipt) error {
	canonical, err := r.ToCanonical()
	if err != nil {
		return &StoreError{Kind: ErrDecode, Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO receipts (id, component, canonical, seq) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET component = excluded.component, canonical = excluded.canonical, seq = excluded.seq
	`, r.ID, r.Component, canonical, time.Now().UnixNano())
	if err != nil {
		return &StoreError{Kind: ErrIO, Err: err}
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (receipt.Receipt, bool, error) {
	var canonical []byte
	err := s.db.QueryRowContext(ctx, `SELECT canonical FROM receipts WHERE id = $1`, id).Scan(&canonical)
	if errors.Is(err, sql.ErrNoRows) {
		return receipt.Receipt{}, false, nil
	}
	if err != nil {
		return receipt.Receipt{}, false, &StoreError{Kind: ErrIO, Err: err}
	}
	r, err := receipt.Parse(canonical)
	if err != nil {
		return receipt.Receipt{}, false, &StoreError{Kind: ErrCorrupt, Err: err}
	}
	return r, true, nil
}

func (s *PostgresStore) ByComponent(ctx context.Context, component string) ([]receipt.Receipt, error) {
	return s.query(ctx, `SELECT canonical FROM receipts WHERE component = $1 ORDER BY seq DESC`, component)
}

func (s *PostgresStore) All(ctx context.Context) ([]receipt.Receipt, error) {
	return s.query(ctx, `SELECT canonical FROM receipts ORDER BY seq DESC`)
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...any) ([]receipt.Receipt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StoreError{Kind: ErrIO, Err: err}
	}
	defer func() { _ = rows.Close() }()

	var out []receipt.Receipt
	for rows.Next() {
		var canonical []byte
		if err := rows.Scan(&canonical); err != nil {
			return nil, &StoreError{Kind: ErrIO, Err: err}
		}
		r, err := receipt.Parse(canonical)
		if err != nil {
			return nil, &StoreError{Kind: ErrCorrupt, Err: err}
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Kind: ErrIO, Err: err}
	}
	return out, nil
}
