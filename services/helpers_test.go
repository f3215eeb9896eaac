package services

// Ortak test altyapısı.
//
// Service testleri gerçek in-memory SQLite repo'larına karşı koşar; sahte
// olan sadece dış dünya yüzeyleridir (hub yayını, kanal abonelikleri,
// email, SFU). Böylece service + SQL birlikte doğrulanır, mock repo'ların
// gerçek davranıştan sapma riski kalmaz.

import (
	"context"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg/crypto"
	"github.com/candemir/meydan/pkg/snowflake"
	"github.com/candemir/meydan/repository"
	"github.com/candemir/meydan/ws"
)

// testEnv, bir service testinin ihtiyaç duyduğu her şeyi toplar.
type testEnv struct {
	db    *database.DB
	hub   *fakeHub
	subs  *fakeSubs
	idGen *snowflake.Generator

	users     repository.UserRepository
	servers   repository.ServerRepository
	members   repository.MemberRepository
	channels  repository.ChannelRepository
	messages  repository.MessageRepository
	roles     repository.RoleRepository
	bans      repository.BanRepository
	reactions repository.ReactionRepository
	resets    repository.PasswordResetRepository
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)
	db, err := database.New(":memory:", migrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &testEnv{
		db:        db,
		hub:       &fakeHub{},
		subs:      newFakeSubs(),
		idGen:     snowflake.New(1),
		users:     repository.NewSQLiteUserRepo(db.Conn),
		servers:   repository.NewSQLiteServerRepo(db.Conn),
		members:   repository.NewSQLiteMemberRepo(db.Conn),
		channels:  repository.NewSQLiteChannelRepo(db.Conn),
		messages:  repository.NewSQLiteMessageRepo(db.Conn),
		roles:     repository.NewSQLiteRoleRepo(db.Conn),
		bans:      repository.NewSQLiteBanRepo(db.Conn),
		reactions: repository.NewSQLiteReactionRepo(db.Conn),
		resets:    repository.NewSQLiteResetTokenRepo(db.Conn),
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (e *testEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	email := username + "@meydan.test"
	user := &models.User{
		ID:           newID(),
		Username:     username,
		DisplayName:  username,
		Email:        &email,
		PasswordHash: "hash",
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *testEnv) createServer(t *testing.T, ownerID string) *models.Server {
	t.Helper()
	server := &models.Server{ID: newID(), Name: "test sunucusu", OwnerID: ownerID}
	require.NoError(t, e.servers.Create(context.Background(), server))
	return server
}

func (e *testEnv) createChannel(t *testing.T, serverID, name string, chType models.ChannelType) *models.Channel {
	t.Helper()
	channel := &models.Channel{ID: newID(), ServerID: serverID, Name: name, Type: chType}
	require.NoError(t, e.channels.Create(context.Background(), channel))
	return channel
}

func (e *testEnv) addMember(t *testing.T, serverID, userID string) {
	t.Helper()
	require.NoError(t, e.members.Add(context.Background(), &models.Member{ServerID: serverID, UserID: userID}))
}

func (e *testEnv) createRole(t *testing.T, serverID, name string, perms models.Permission) *models.Role {
	t.Helper()
	role := &models.Role{ID: newID(), ServerID: serverID, Name: name, Permissions: perms}
	require.NoError(t, e.roles.Create(context.Background(), role))
	return role
}

func (e *testEnv) createEveryone(t *testing.T, serverID string, perms models.Permission) *models.Role {
	t.Helper()
	role := &models.Role{
		ID:          newID(),
		ServerID:    serverID,
		Name:        models.EveryoneRoleName,
		Permissions: perms,
		IsEveryone:  true,
	}
	require.NoError(t, e.roles.Create(context.Background(), role))
	return role
}

func (e *testEnv) createMessage(t *testing.T, channelID, authorID, content string) *models.Message {
	t.Helper()
	message := &models.Message{
		ID:        e.idGen.Next(),
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
	}
	require.NoError(t, e.messages.Create(context.Background(), message))
	return message
}

// chatWorld, mesaj/reaksiyon testlerinin standart başlangıç durumu:
// bir kullanıcı, sahibi olduğu bir sunucu, SendMessages yetkili
// @everyone rolü ve bir text kanalı.
type chatWorld struct {
	user    *models.User
	server  *models.Server
	channel *models.Channel
}

func (e *testEnv) seedChat(t *testing.T) chatWorld {
	t.Helper()
	user := e.createUser(t, "deniz")
	server := e.createServer(t, user.ID)
	e.addMember(t, server.ID, user.ID)
	e.createEveryone(t, server.ID, models.PermSendMessages)
	channel := e.createChannel(t, server.ID, "genel", models.ChannelTypeText)
	return chatWorld{user: user, server: server, channel: channel}
}

// newKeyPair, t.TempDir altında RS256 çifti üretir ve PEM yollarını döner.
func newKeyPair(t *testing.T) (privatePath, publicPath string) {
	t.Helper()
	dir := t.TempDir()
	privatePath = filepath.Join(dir, "jwt_private.pem")
	publicPath = filepath.Join(dir, "jwt_public.pem")
	generated, err := crypto.EnsureRSAKeyPair(privatePath, publicPath)
	require.NoError(t, err)
	require.True(t, generated)
	return privatePath, publicPath
}

// ─────────────────────────────────────────────
// Sahte dış yüzeyler
// ─────────────────────────────────────────────

// publishedEvent, fakeHub'ın kaydettiği tek bir yayın.
// scope "channel" / "user" / "server", target ilgili ID'dir.
type publishedEvent struct {
	scope  string
	target string
	event  ws.Event
}

// fakeHub, ws.EventPublisher'ın yayınları sırayla kaydeden test double'ı.
type fakeHub struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (h *fakeHub) BroadcastToChannel(channelID string, event ws.Event) {
	h.record("channel", channelID, event)
}

func (h *fakeHub) BroadcastToUser(userID string, event ws.Event) {
	h.record("user", userID, event)
}

func (h *fakeHub) BroadcastToServer(serverID string, event ws.Event) {
	h.record("server", serverID, event)
}

func (h *fakeHub) record(scope, target string, event ws.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, publishedEvent{scope: scope, target: target, event: event})
}

// byType, verilen türdeki yayınları yayın sırasıyla döner.
func (h *fakeHub) byType(eventType string) []publishedEvent {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []publishedEvent
	for _, e := range h.events {
		if e.event.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (h *fakeHub) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = nil
}

// fakeSubs, SubscriptionManager çağrılarını kanal → kullanıcı kümesi
// olarak tutar.
type fakeSubs struct {
	mu       sync.Mutex
	channels map[string]map[string]bool
}

func newFakeSubs() *fakeSubs {
	return &fakeSubs{channels: make(map[string]map[string]bool)}
}

func (s *fakeSubs) Subscribe(channelID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users, ok := s.channels[channelID]
	if !ok {
		users = make(map[string]bool)
		s.channels[channelID] = users
	}
	users[userID] = true
}

func (s *fakeSubs) Unsubscribe(channelID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels[channelID], userID)
}

func (s *fakeSubs) RemoveChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, channelID)
}

func (s *fakeSubs) subscribed(channelID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channels[channelID][userID]
}

func (s *fakeSubs) hasChannel(channelID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[channelID]
	return ok
}
