package database

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/models"
)

func migrationsFS(t *testing.T) fs.FS {
	t.Helper()
	sub, err := fs.Sub(EmbeddedMigrations, "migrations")
	require.NoError(t, err)
	return sub
}

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:", migrationsFS(t))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func tableNames(t *testing.T, db *DB) map[string]bool {
	t.Helper()
	rows, err := db.Conn.Query(`SELECT name FROM sqlite_master WHERE type = 'table'`)
	require.NoError(t, err)
	defer rows.Close()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names[name] = true
	}
	require.NoError(t, rows.Err())
	return names
}

func TestNew(t *testing.T) {
	db := newTestDB(t)

	names := tableNames(t, db)
	for _, want := range []string{
		"users", "servers", "channels", "messages", "members",
		"roles", "member_roles", "bans", "reactions",
		"password_reset_tokens", "schema_migrations",
	} {
		assert.True(t, names[want], "tablo eksik: %s", want)
	}

	// Her migration dosyası kayıt altına alınmış olmalı.
	var applied []string
	rows, err := db.Conn.Query(`SELECT filename FROM schema_migrations ORDER BY filename`)
	require.NoError(t, err)
	defer rows.Close()
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		applied = append(applied, name)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []string{"001_init.sql", "002_password_reset.sql"}, applied)
}

func TestNewIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meydan.db")

	db, err := New(path, migrationsFS(t))
	require.NoError(t, err)
	_, err = db.Conn.Exec(
		`INSERT INTO servers (id, name, owner_id) VALUES (?, ?, ?)`,
		"11111111-1111-1111-1111-111111111111", "kalici", models.SentinelOwnerID,
	)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// İkinci açılış migration'ları tekrar çalıştırmamalı, veri durmalı.
	db, err = New(path, migrationsFS(t))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM servers`).Scan(&count))
	assert.Equal(t, 1, count)

	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count)
}

func TestMigrationBootstrap(t *testing.T) {
	// Takipsiz eski kurulum: tablolar var ama schema_migrations boş.
	path := filepath.Join(t.TempDir(), "eski.db")

	db, err := New(path, migrationsFS(t))
	require.NoError(t, err)
	_, err = db.Conn.Exec(`DELETE FROM schema_migrations`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = New(path, migrationsFS(t))
	require.NoError(t, err)
	defer db.Close()

	var count int
	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 2, count, "mevcut dosyalar uygulanmış sayılmalı")
}

func TestSeedDefaultServer(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, SeedDefaultServer(ctx, db.Conn, "Meydan"))

	var name, ownerID string
	err := db.Conn.QueryRow(
		`SELECT name, owner_id FROM servers WHERE id = ?`, models.DefaultServerID,
	).Scan(&name, &ownerID)
	require.NoError(t, err)
	assert.Equal(t, "Meydan", name)
	assert.Equal(t, models.SentinelOwnerID, ownerID, "seed edilen sunucu sahipsiz olmalı")

	rows, err := db.Conn.Query(
		`SELECT name, channel_type FROM channels WHERE server_id = ? ORDER BY position`,
		models.DefaultServerID,
	)
	require.NoError(t, err)
	defer rows.Close()

	type ch struct{ name, typ string }
	var channels []ch
	for rows.Next() {
		var c ch
		require.NoError(t, rows.Scan(&c.name, &c.typ))
		channels = append(channels, c)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []ch{
		{"general", string(models.ChannelTypeText)},
		{"Voice", string(models.ChannelTypeVoice)},
	}, channels)

	var perms int64
	var isEveryone bool
	err = db.Conn.QueryRow(
		`SELECT permissions, is_everyone FROM roles WHERE server_id = ? AND name = ?`,
		models.DefaultServerID, models.EveryoneRoleName,
	).Scan(&perms, &isEveryone)
	require.NoError(t, err)
	assert.True(t, isEveryone)
	assert.Equal(t, int64(models.PermSendMessages), perms)
}

func TestSeedDefaultServerIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, SeedDefaultServer(ctx, db.Conn, "Meydan"))
	require.NoError(t, SeedDefaultServer(ctx, db.Conn, "Baska Isim"))

	var count int
	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM servers`).Scan(&count))
	assert.Equal(t, 1, count)

	// İkinci çağrı ilk seed'in adını değiştirmemeli.
	var name string
	require.NoError(t, db.Conn.QueryRow(
		`SELECT name FROM servers WHERE id = ?`, models.DefaultServerID,
	).Scan(&name))
	assert.Equal(t, "Meydan", name)
}

func TestWithTx(t *testing.T) {
	ctx := context.Background()

	insertServer := func(q TxQuerier, id string) error {
		_, err := q.ExecContext(ctx,
			`INSERT INTO servers (id, name, owner_id) VALUES (?, ?, ?)`,
			id, "tx testi", models.SentinelOwnerID,
		)
		return err
	}

	serverCount := func(t *testing.T, db *DB) int {
		t.Helper()
		var count int
		require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM servers`).Scan(&count))
		return count
	}

	t.Run("commit", func(t *testing.T) {
		db := newTestDB(t)
		err := WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
			return insertServer(tx, "22222222-2222-2222-2222-222222222222")
		})
		require.NoError(t, err)
		assert.Equal(t, 1, serverCount(t, db))
	})

	t.Run("rollback", func(t *testing.T) {
		db := newTestDB(t)
		sentinel := errors.New("bilerek patladi")
		err := WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
			if err := insertServer(tx, "33333333-3333-3333-3333-333333333333"); err != nil {
				return err
			}
			return sentinel
		})
		require.ErrorIs(t, err, sentinel)
		assert.Equal(t, 0, serverCount(t, db), "rollback sonrası insert görünmemeli")
	})

	t.Run("panic rollback", func(t *testing.T) {
		db := newTestDB(t)
		require.Panics(t, func() {
			_ = WithTx(ctx, db.Conn, func(tx *sql.Tx) error {
				if err := insertServer(tx, "44444444-4444-4444-4444-444444444444"); err != nil {
					return err
				}
				panic("tx icinde panik")
			})
		})
		assert.Equal(t, 0, serverCount(t, db), "panik sonrası da rollback olmalı")
	})
}

func TestSplitStatements(t *testing.T) {
	tests := []struct {
		name string
		sql  string
		want []string
	}{
		{
			name: "iki statement",
			sql:  "CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);",
			want: []string{"CREATE TABLE a (id INT)", "CREATE TABLE b (id INT)"},
		},
		{
			name: "string icindeki noktali virgul bolunmez",
			sql:  "INSERT INTO t (v) VALUES ('a;b');",
			want: []string{"INSERT INTO t (v) VALUES ('a;b')"},
		},
		{
			name: "escape edilmis tirnak",
			sql:  "INSERT INTO t (v) VALUES ('it''s;fine'); SELECT 1;",
			want: []string{"INSERT INTO t (v) VALUES ('it''s;fine')", "SELECT 1"},
		},
		{
			name: "sondaki noktali virgulsuz statement",
			sql:  "SELECT 1; SELECT 2",
			want: []string{"SELECT 1", "SELECT 2"},
		},
		{
			name: "bos girdi",
			sql:  "  \n  ;  ",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitStatements(tt.sql))
		})
	}
}
