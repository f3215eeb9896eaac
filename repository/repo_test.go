package repository

// Ortak test altyapısı: in-memory SQLite + fixture helper'ları.
//
// Repo testleri mock yerine gerçek SQLite'a karşı koşar — SQL'in kendisi
// test edilen şeydir (RETURNING, cascade, GROUP_CONCAT, unique violation).

import (
	"context"
	"io/fs"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/models"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)
	db, err := database.New(":memory:", migrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func createUser(t *testing.T, db *database.DB, username string) *models.User {
	t.Helper()
	email := username + "@meydan.test"
	user := &models.User{
		ID:           newID(),
		Username:     username,
		DisplayName:  username,
		Email:        &email,
		PasswordHash: "hash",
	}
	require.NoError(t, NewSQLiteUserRepo(db.Conn).Create(context.Background(), user))
	return user
}

func createServer(t *testing.T, db *database.DB, ownerID string) *models.Server {
	t.Helper()
	server := &models.Server{ID: newID(), Name: "test sunucusu", OwnerID: ownerID}
	require.NoError(t, NewSQLiteServerRepo(db.Conn).Create(context.Background(), server))
	return server
}

func createChannel(t *testing.T, db *database.DB, serverID, name string, position int) *models.Channel {
	t.Helper()
	channel := &models.Channel{
		ID:       newID(),
		ServerID: serverID,
		Name:     name,
		Type:     models.ChannelTypeText,
		Position: position,
	}
	require.NoError(t, NewSQLiteChannelRepo(db.Conn).Create(context.Background(), channel))
	return channel
}

func addMember(t *testing.T, db *database.DB, serverID, userID string) {
	t.Helper()
	member := &models.Member{ServerID: serverID, UserID: userID}
	require.NoError(t, NewSQLiteMemberRepo(db.Conn).Add(context.Background(), member))
}

func createRole(t *testing.T, db *database.DB, serverID, name string, perms models.Permission, position int) *models.Role {
	t.Helper()
	role := &models.Role{
		ID:          newID(),
		ServerID:    serverID,
		Name:        name,
		Permissions: perms,
		Position:    position,
	}
	require.NoError(t, NewSQLiteRoleRepo(db.Conn).Create(context.Background(), role))
	return role
}
