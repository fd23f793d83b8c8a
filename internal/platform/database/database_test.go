package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"auditflow/internal/platform/config"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), config.Database{
		Driver: config.DriverSQLite,
		URL:    filepath.Join(t.TempDir(), "nested", "audit.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func TestOpenSQLiteCreatesDirectoryAndSchema(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	var mode string
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var fk int
	require.NoError(t, db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	// Migrate is idempotent.
	require.NoError(t, db.Migrate(ctx))
	require.NoError(t, db.Health(ctx))
}

func TestUniqueViolationDetection(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	insert := `INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`

	_, err := db.ExecContext(ctx, insert, "alice", "h", "USER", time.Now().UTC())
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, insert, "alice", "h", "AUDITOR", time.Now().UTC())
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	assert.True(t, IsUniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, IsUniqueViolation(errors.New("other")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestCheckConstraintRejectsUnknownRole(t *testing.T) {
	db := openTemp(t)
	_, err := db.ExecContext(context.Background(),
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		"mallory", "h", "ADMIN", time.Now().UTC())
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err))
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: config.DriverPostgres}
	lite := &DB{driver: config.DriverSQLite}
	q := `UPDATE audits SET status = ? WHERE id = ? AND created_by = ?`

	assert.Equal(t, `UPDATE audits SET status = $1 WHERE id = $2 AND created_by = $3`, pg.Rebind(q))
	assert.Equal(t, q, lite.Rebind(q))
}

func TestInTxRollsBackOnError(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(ctx context.Context) error {
		_, err := db.Conn(ctx).ExecContext(ctx,
			`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
			"ghost", "h", "USER", time.Now().UTC())
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n))
	assert.Zero(t, n)
}

func TestNullTimeScan(t *testing.T) {
	want := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	cases := []any{
		want,
		want.In(time.FixedZone("CET", 3600)),
		"2026-03-04 05:06:07+00:00",
		[]byte("2026-03-04T05:06:07Z"),
		"2026-03-04 05:06:07",
	}
	for _, c := range cases {
		var nt NullTime
		require.NoError(t, nt.Scan(c))
		assert.True(t, nt.Valid)
		assert.True(t, want.Equal(nt.Time), "%v", c)
		assert.Equal(t, time.UTC, nt.Time.Location())
	}

	var nt NullTime
	require.NoError(t, nt.Scan(nil))
	assert.False(t, nt.Valid)
	assert.Nil(t, nt.Ptr())
	assert.Error(t, nt.Scan(42))
}

func TestTimestampRoundTrip(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 2, 3, 4, 5, 123000000, time.UTC)

	_, err := db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?)`,
		"clock", "h", "USER", now)
	require.NoError(t, err)

	var got NullTime
	require.NoError(t, db.QueryRowContext(ctx, `SELECT created_at FROM users WHERE username = ?`, "clock").Scan(&got))
	assert.True(t, now.Equal(got.Time))
}
