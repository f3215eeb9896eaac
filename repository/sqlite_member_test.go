package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
)

func TestMemberRepoAddAndGet(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	ctx := context.Background()

	user := createUser(t, db, "uye")
	server := createServer(t, db, models.SentinelOwnerID)

	member := &models.Member{ServerID: server.ID, UserID: user.ID}
	require.NoError(t, repo.Add(ctx, member))
	assert.False(t, member.JoinedAt.IsZero(), "joined_at DB'den doldurulmalı")

	got, err := repo.Get(ctx, server.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.UserID)
	assert.Nil(t, got.Nickname)
	require.NotNil(t, got.User, "user satırı varsa JOIN ile dolmalı")
	assert.Equal(t, "uye", got.User.Username)
	assert.Empty(t, got.RoleIDs)

	// Tekrar eklemek üyelik PK'sına takılır.
	err = repo.Add(ctx, &models.Member{ServerID: server.ID, UserID: user.ID})
	assert.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = repo.Get(ctx, server.ID, newID())
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestMemberRepoGetWithRoles(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	roleRepo := NewSQLiteRoleRepo(db.Conn)
	ctx := context.Background()

	user := createUser(t, db, "uye")
	server := createServer(t, db, models.SentinelOwnerID)
	addMember(t, db, server.ID, user.ID)

	mod := createRole(t, db, server.ID, "mod", models.PermKickMembers, 2)
	vip := createRole(t, db, server.ID, "vip", 0, 1)
	require.NoError(t, roleRepo.Assign(ctx, server.ID, user.ID, mod.ID))
	require.NoError(t, roleRepo.Assign(ctx, server.ID, user.ID, vip.ID))

	got, err := repo.Get(ctx, server.ID, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{mod.ID, vip.ID}, got.RoleIDs)
}

func TestMemberRepoFederatedUserWithoutRow(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	federatedID := newID()
	addMember(t, db, server.ID, federatedID)

	// users satırı yokken LEFT JOIN yine de üyeliği dönmeli.
	got, err := repo.Get(ctx, server.ID, federatedID)
	require.NoError(t, err)
	assert.Equal(t, federatedID, got.UserID)
	assert.Nil(t, got.User)
}

func TestMemberRepoGetByServerID(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	other := createServer(t, db, models.SentinelOwnerID)

	u1 := createUser(t, db, "bir")
	u2 := createUser(t, db, "iki")
	u3 := createUser(t, db, "uc")
	addMember(t, db, server.ID, u1.ID)
	addMember(t, db, server.ID, u2.ID)
	addMember(t, db, other.ID, u3.ID)

	members, err := repo.GetByServerID(ctx, server.ID)
	require.NoError(t, err)
	require.Len(t, members, 2)

	byID := make(map[string]models.Member, len(members))
	for _, m := range members {
		byID[m.UserID] = m
	}
	require.Contains(t, byID, u1.ID)
	require.Contains(t, byID, u2.ID)
	require.NotNil(t, byID[u1.ID].User)
	assert.Equal(t, "bir", byID[u1.ID].User.Username)
}

func TestMemberRepoGetServerIDsAndUserIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	ctx := context.Background()

	s1 := createServer(t, db, models.SentinelOwnerID)
	s2 := createServer(t, db, models.SentinelOwnerID)
	user := createUser(t, db, "gezgin")
	addMember(t, db, s1.ID, user.ID)
	addMember(t, db, s2.ID, user.ID)

	serverIDs, err := repo.GetServerIDs(ctx, user.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{s1.ID, s2.ID}, serverIDs)

	userIDs, err := repo.GetUserIDs(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{user.ID}, userIDs)

	userIDs, err = repo.GetUserIDs(ctx, newID())
	require.NoError(t, err)
	assert.Empty(t, userIDs)
}

func TestMemberRepoIsMember(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	user := createUser(t, db, "uye")
	addMember(t, db, server.ID, user.ID)

	ok, err := repo.IsMember(ctx, server.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.IsMember(ctx, server.ID, newID())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemberRepoUpdateNickname(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	user := createUser(t, db, "uye")
	addMember(t, db, server.ID, user.ID)

	nick := "Kaptan"
	require.NoError(t, repo.UpdateNickname(ctx, server.ID, user.ID, &nick))

	got, err := repo.Get(ctx, server.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Nickname)
	assert.Equal(t, "Kaptan", *got.Nickname)

	// nil → takma ad temizlenir.
	require.NoError(t, repo.UpdateNickname(ctx, server.ID, user.ID, nil))

	got, err = repo.Get(ctx, server.ID, user.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Nickname)

	err = repo.UpdateNickname(ctx, server.ID, newID(), &nick)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestMemberRepoRemove(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteMemberRepo(db.Conn)
	roleRepo := NewSQLiteRoleRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	user := createUser(t, db, "uye")
	addMember(t, db, server.ID, user.ID)
	role := createRole(t, db, server.ID, "mod", models.PermKickMembers, 1)
	require.NoError(t, roleRepo.Assign(ctx, server.ID, user.ID, role.ID))

	require.NoError(t, repo.Remove(ctx, server.ID, user.ID))

	ok, err := repo.IsMember(ctx, server.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	// Composite FK cascade rol atamalarını da süpürmeli.
	var assignments int
	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM member_roles`).Scan(&assignments))
	assert.Equal(t, 0, assignments)

	err = repo.Remove(ctx, server.ID, user.ID)
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}
