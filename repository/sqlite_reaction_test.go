package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg/snowflake"
)

func TestReactionRepoAddIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteReactionRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	channel := createChannel(t, db, server.ID, "genel", 0)
	author := createUser(t, db, "yazar")
	msg := createMessage(t, db, snowflake.New(1), channel.ID, author.ID, "selam")

	added, err := repo.Add(ctx, msg.ID, author.ID, "👍")
	require.NoError(t, err)
	assert.True(t, added)

	// Aynı kullanıcı + aynı emoji ikinci kez eklenmez.
	added, err = repo.Add(ctx, msg.ID, author.ID, "👍")
	require.NoError(t, err)
	assert.False(t, added)

	// Farklı emoji yeni kayıttır.
	added, err = repo.Add(ctx, msg.ID, author.ID, "🎉")
	require.NoError(t, err)
	assert.True(t, added)
}

func TestReactionRepoRemove(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteReactionRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	channel := createChannel(t, db, server.ID, "genel", 0)
	author := createUser(t, db, "yazar")
	msg := createMessage(t, db, snowflake.New(1), channel.ID, author.ID, "selam")

	_, err := repo.Add(ctx, msg.ID, author.ID, "👍")
	require.NoError(t, err)

	removed, err := repo.Remove(ctx, msg.ID, author.ID, "👍")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = repo.Remove(ctx, msg.ID, author.ID, "👍")
	require.NoError(t, err)
	assert.False(t, removed, "olmayan reaksiyonu kaldırmak false döner")
}

func TestReactionRepoGetGroupsByMessageIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteReactionRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	channel := createChannel(t, db, server.ID, "genel", 0)
	u1 := createUser(t, db, "bir")
	u2 := createUser(t, db, "iki")
	gen := snowflake.New(1)
	msg1 := createMessage(t, db, gen, channel.ID, u1.ID, "ilk")
	msg2 := createMessage(t, db, gen, channel.ID, u1.ID, "ikinci")

	for _, add := range []struct {
		msgID  int64
		userID string
		emoji  string
	}{
		{msg1.ID, u1.ID, "👍"},
		{msg1.ID, u2.ID, "👍"},
		{msg1.ID, u1.ID, "🎉"},
	} {
		_, err := repo.Add(ctx, add.msgID, add.userID, add.emoji)
		require.NoError(t, err)
	}

	groups, err := repo.GetGroupsByMessageIDs(ctx, []int64{msg1.ID, msg2.ID})
	require.NoError(t, err)

	require.Contains(t, groups, msg1.ID)
	assert.NotContains(t, groups, msg2.ID, "reaksiyonsuz mesaj map'e girmez")

	byEmoji := make(map[string]models.ReactionGroup)
	for _, g := range groups[msg1.ID] {
		byEmoji[g.Emoji] = g
	}
	require.Len(t, byEmoji, 2)
	assert.Equal(t, 2, byEmoji["👍"].Count)
	assert.ElementsMatch(t, []string{u1.ID, u2.ID}, byEmoji["👍"].UserIDs)
	assert.Equal(t, 1, byEmoji["🎉"].Count)
	assert.Equal(t, []string{u1.ID}, byEmoji["🎉"].UserIDs)
}

func TestReactionRepoGetGroupsEmptyInput(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteReactionRepo(db.Conn)

	groups, err := repo.GetGroupsByMessageIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, groups)
	assert.Empty(t, groups)
}

func TestReactionRepoCascadeOnMessageDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewSQLiteReactionRepo(db.Conn)
	ctx := context.Background()

	server := createServer(t, db, models.SentinelOwnerID)
	channel := createChannel(t, db, server.ID, "genel", 0)
	author := createUser(t, db, "yazar")
	msg := createMessage(t, db, snowflake.New(1), channel.ID, author.ID, "selam")

	_, err := repo.Add(ctx, msg.ID, author.ID, "👍")
	require.NoError(t, err)

	// Kanal silinince mesaj, mesaj gidince reaksiyonlar cascade olur.
	require.NoError(t, NewSQLiteChannelRepo(db.Conn).Delete(ctx, channel.ID))

	var count int
	require.NoError(t, db.Conn.QueryRow(`SELECT COUNT(*) FROM reactions`).Scan(&count))
	assert.Equal(t, 0, count)
}
