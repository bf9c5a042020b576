package store

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultmesh/covenant/pkg/receipt"
)

func sampleReceipt(id, component string) receipt.Receipt {
	return receipt.Receipt{
		ID:           id,
		Component:    component,
		Version:      "1.0",
		Artifact:     receipt.Artifact{SHA256: "deadbeef"},
		TimestampUTC: "2025-10-21T12:00:00Z",
	}
}

func testReceiptStore(t *testing.T, s ReceiptStore) {
	t.Helper()
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	r1 := sampleReceipt("oracle@1.0:aaaaaaaa", "oracle")
	require.NoError(t, s.Put(ctx, r1))

	got, ok, err := s.Get(ctx, r1.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, r1.ID, got.ID)

	r2 := sampleReceipt("oracle@1.1:bbbbbbbb", "oracle")
	require.NoError(t, s.Put(ctx, r2))

	r3 := sampleReceipt("beacon@1.0:cccccccc", "beacon")
	require.NoError(t, s.Put(ctx, r3))

	byOracle, err := s.ByComponent(ctx, "oracle")
	require.NoError(t, err)
	require.Len(t, byOracle, 2)
	assert.Equal(t, r2.ID, byOracle[0].ID, "newest first")
	assert.Equal(t, r1.ID, byOracle[1].ID)

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	// Put is idempotent by ID: overwriting moves it to the front.
	r1Updated := r1
	r1Updated.Version = "1.0.1"
	require.NoError(t, s.Put(ctx, r1Updated))

	allAfter, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, allAfter, 3)
	assert.Equal(t, r1.ID, allAfter[0].ID)

	reread, ok, err := s.Get(ctx, r1.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.0.1", reread.Version)
}

func TestMemoryStore(t *testing.T) {
	testReceiptStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)

	testReceiptStore(t, s)
}

func TestSQLiteStore_CorruptRowSurfacesStoreError(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	s, err := NewSQLiteStore(db)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO receipts (id, component, canonical, seq) VALUES (?, ?, ?, ?)`,
		"broken", "oracle", []byte("not json"), 1)
	require.NoError(t, err)

	_, _, err = s.Get(context.Background(), "broken")
	require.Error(t, err)
	var se *StoreError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCorrupt, se.Kind)
}
