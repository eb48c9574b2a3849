package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	sqlText := `-- header; with a semicolon
CREATE TABLE a (x TEXT DEFAULT 'semi;colon');
INSERT INTO a VALUES ('it''s');

CREATE TABLE b (y INTEGER)`

	stmts := splitStatements(sqlText)
	require.Len(t, stmts, 3)
	require.Contains(t, stmts[0], "'semi;colon'")
	require.Contains(t, stmts[1], "'it''s'")
	require.Equal(t, "CREATE TABLE b (y INTEGER)", stmts[2])
}

func TestOpen_AppliesEmbeddedSchemaOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "yapyap.db")

	db, err := Open(path)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.Conn.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('users','chats','chat_participants','messages','message_reads')",
	).Scan(&n))
	require.Equal(t, 5, n)
	require.NoError(t, db.Close())

	// İkinci açılış migration'ları tekrar çalıştırmamalı
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&n))
	require.Equal(t, 1, n)
}

func TestNew_AppliesOnlyNewFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.db")
	first := fstest.MapFS{
		"001_init.sql": {Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY);")},
	}

	db, err := New(path, first)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	second := fstest.MapFS{
		"001_init.sql": first["001_init.sql"],
		"002_more.sql": {Data: []byte("ALTER TABLE users ADD COLUMN name TEXT; CREATE TABLE extra (k TEXT);")},
		"README.md":    {Data: []byte("ignored")},
	}

	db, err = New(path, second)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Conn.Exec("INSERT INTO extra (k) VALUES ('v')")
	require.NoError(t, err)
	_, err = db.Conn.Exec("INSERT INTO users (id, name) VALUES ('u1', 'n')")
	require.NoError(t, err)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "tx.db"), fstest.MapFS{
		"001.sql": {Data: []byte("CREATE TABLE users (id TEXT PRIMARY KEY);")},
	})
	require.NoError(t, err)
	defer db.Close()

	boom := errors.New("boom")
	err = WithTx(context.Background(), db.Conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO users (id) VALUES ('a')"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	require.Zero(t, n)

	require.NoError(t, WithTx(context.Background(), db.Conn, func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO users (id) VALUES ('b')")
		return err
	}))
	require.NoError(t, db.Conn.QueryRow("SELECT COUNT(*) FROM users").Scan(&n))
	require.Equal(t, 1, n)
}
