package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebind(t *testing.T) {
	sqlite := &DB{Driver: DriverSQLite}
	pg := &DB{Driver: DriverPostgres}

	q := "SELECT a FROM t WHERE x = $1 AND y = $2 AND z = '$'"
	assert.Equal(t, "SELECT a FROM t WHERE x = ? AND y = ? AND z = '$'", sqlite.Rebind(q))
	assert.Equal(t, q, pg.Rebind(q))
	assert.Equal(t, "VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)", sqlite.Rebind("VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)"))
}

func TestOpenSQLiteMemory(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer d.Close()

	_, err = d.ExecContext(ctx, "CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = d.ExecContext(ctx, d.Rebind("INSERT INTO t (id, name) VALUES ($1, $2)"), 1, "hub")
	require.NoError(t, err)

	var name string
	require.NoError(t, d.QueryRowContext(ctx, d.Rebind("SELECT name FROM t WHERE id = $1"), 1).Scan(&name))
	assert.Equal(t, "hub", name)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "x")
	assert.Error(t, err)
}
