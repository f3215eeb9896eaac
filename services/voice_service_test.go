package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/ws"
)

// fakeRelay, SFU'ya giden yaşam döngüsü çağrılarını kaydeder.
// Medya kurulmaz; service'in relay'i doğru anlarda çağırması test edilir.
type fakeRelay struct {
	mu       sync.Mutex
	leaves   [][2]string // {channelID, userID}
	leaveAll []string
}

func (f *fakeRelay) Leave(channelID, userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaves = append(f.leaves, [2]string{channelID, userID})
}

func (f *fakeRelay) LeaveAll(userID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leaveAll = append(f.leaveAll, userID)
}

const testSFUEndpoint = "sfu.meydan.test:50000"

func newVoiceEnv(t *testing.T) (*testEnv, *fakeRelay, VoiceService) {
	t.Helper()
	env := newTestEnv(t)
	relay := &fakeRelay{}
	svc := NewVoiceService(env.channels, env.members, relay, env.hub, testSFUEndpoint)
	return env, relay, svc
}

func TestVoiceJoin(t *testing.T) {
	env, relay, svc := newVoiceEnv(t)
	w := env.seedChat(t)
	voice := env.createChannel(t, w.server.ID, "sesli", models.ChannelTypeVoice)
	ctx := context.Background()

	participants, err := svc.Join(ctx, w.user, voice.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, w.user.ID, participants[0].UserID)
	assert.Equal(t, w.user.Username, participants[0].Username)

	// Katılım kanala, SFU erişim bilgisi sadece katılana yayınlanır.
	states := env.hub.byType(ws.EventVoiceStateUpdate)
	require.Len(t, states, 1)
	assert.Equal(t, "channel", states[0].scope)
	assert.Equal(t, voice.ID, states[0].target)
	state, ok := states[0].event.Data.(ws.VoiceStateData)
	require.True(t, ok)
	assert.True(t, state.Joined)
	assert.Equal(t, w.user.ID, state.UserID)
	require.NotNil(t, state.User)
	assert.Equal(t, w.user.Username, state.User.Username)

	servers := env.hub.byType(ws.EventVoiceServerUpdate)
	require.Len(t, servers, 1)
	assert.Equal(t, "user", servers[0].scope)
	assert.Equal(t, w.user.ID, servers[0].target)
	server, ok := servers[0].event.Data.(ws.VoiceServerData)
	require.True(t, ok)
	assert.Equal(t, testSFUEndpoint, server.Endpoint)

	t.Run("tekrar katilim idempotent", func(t *testing.T) {
		again, err := svc.Join(ctx, w.user, voice.ID)
		require.NoError(t, err)
		assert.Len(t, again, 1)
		// Hayalet "katıldı" bildirimi yok, relay'e dokunulmaz.
		assert.Len(t, env.hub.byType(ws.EventVoiceStateUpdate), 1)
		assert.Empty(t, relay.leaves)
	})
}

func TestVoiceJoinHatalar(t *testing.T) {
	env, _, svc := newVoiceEnv(t)
	w := env.seedChat(t)
	ctx := context.Background()

	t.Run("metin kanalina katilinamaz", func(t *testing.T) {
		_, err := svc.Join(ctx, w.user, w.channel.ID)
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("uye olmayan katilamaz", func(t *testing.T) {
		voice := env.createChannel(t, w.server.ID, "sesli", models.ChannelTypeVoice)
		yabanci := env.createUser(t, "yabanci")
		_, err := svc.Join(ctx, yabanci, voice.ID)
		assert.ErrorIs(t, err, pkg.ErrForbidden)
	})

	t.Run("olmayan kanal", func(t *testing.T) {
		_, err := svc.Join(ctx, w.user, newID())
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})
}

func TestVoiceJoinKanalDegistirir(t *testing.T) {
	env, relay, svc := newVoiceEnv(t)
	w := env.seedChat(t)
	birinci := env.createChannel(t, w.server.ID, "sesli-1", models.ChannelTypeVoice)
	ikinci := env.createChannel(t, w.server.ID, "sesli-2", models.ChannelTypeVoice)
	ctx := context.Background()

	_, err := svc.Join(ctx, w.user, birinci.ID)
	require.NoError(t, err)
	env.hub.reset()

	// Aynı anda tek kanal: ikinciye katılmak birinciden düşürür.
	_, err = svc.Join(ctx, w.user, ikinci.ID)
	require.NoError(t, err)

	assert.Empty(t, svc.Participants(birinci.ID))
	assert.Len(t, svc.Participants(ikinci.ID), 1)
	require.Len(t, relay.leaves, 1)
	assert.Equal(t, [2]string{birinci.ID, w.user.ID}, relay.leaves[0])

	// Önce eski kanala veda, sonra yenisine katılım yayınlanır.
	states := env.hub.byType(ws.EventVoiceStateUpdate)
	require.Len(t, states, 2)
	farewell, ok := states[0].event.Data.(ws.VoiceStateData)
	require.True(t, ok)
	assert.Equal(t, birinci.ID, farewell.ChannelID)
	assert.False(t, farewell.Joined)
	joined, ok := states[1].event.Data.(ws.VoiceStateData)
	require.True(t, ok)
	assert.Equal(t, ikinci.ID, joined.ChannelID)
	assert.True(t, joined.Joined)
}

func TestVoiceLeave(t *testing.T) {
	env, relay, svc := newVoiceEnv(t)
	w := env.seedChat(t)
	voice := env.createChannel(t, w.server.ID, "sesli", models.ChannelTypeVoice)
	ctx := context.Background()

	_, err := svc.Join(ctx, w.user, voice.ID)
	require.NoError(t, err)
	env.hub.reset()

	require.NoError(t, svc.Leave(ctx, w.user.ID, voice.ID))
	assert.Empty(t, svc.Participants(voice.ID))
	require.Len(t, relay.leaves, 1)
	assert.Equal(t, [2]string{voice.ID, w.user.ID}, relay.leaves[0])

	states := env.hub.byType(ws.EventVoiceStateUpdate)
	require.Len(t, states, 1)
	farewell, ok := states[0].event.Data.(ws.VoiceStateData)
	require.True(t, ok)
	assert.False(t, farewell.Joined)
	assert.Equal(t, w.user.ID, farewell.UserID)

	// Kanalda olmayan için no-op — yine de peer kapatılır ama veda
	// tekrarlanmaz.
	require.NoError(t, svc.Leave(ctx, w.user.ID, voice.ID))
	assert.Len(t, relay.leaves, 2)
	assert.Len(t, env.hub.byType(ws.EventVoiceStateUpdate), 1)
}

func TestVoiceUpdateState(t *testing.T) {
	env, _, svc := newVoiceEnv(t)
	w := env.seedChat(t)
	voice := env.createChannel(t, w.server.ID, "sesli", models.ChannelTypeVoice)
	ctx := context.Background()

	muted := true
	t.Run("kanalda olmayan guncelleyemez", func(t *testing.T) {
		err := svc.UpdateState(ctx, w.user.ID, voice.ID, &models.UpdateVoiceStateRequest{Muted: &muted})
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})

	_, err := svc.Join(ctx, w.user, voice.ID)
	require.NoError(t, err)
	env.hub.reset()

	require.NoError(t, svc.UpdateState(ctx, w.user.ID, voice.ID, &models.UpdateVoiceStateRequest{Muted: &muted}))

	states := env.hub.byType(ws.EventVoiceStateUpdate)
	require.Len(t, states, 1)
	state, ok := states[0].event.Data.(ws.VoiceStateData)
	require.True(t, ok)
	assert.True(t, state.Joined)
	assert.True(t, state.Muted)
	assert.False(t, state.Deafened)

	// Partial update: deafen eklenir, mute korunur.
	deafened := true
	require.NoError(t, svc.UpdateState(ctx, w.user.ID, voice.ID, &models.UpdateVoiceStateRequest{Deafened: &deafened}))
	participants := svc.Participants(voice.ID)
	require.Len(t, participants, 1)
	assert.True(t, participants[0].Muted)
	assert.True(t, participants[0].Deafened)
}

func TestVoiceLeaveAll(t *testing.T) {
	env, relay, svc := newVoiceEnv(t)
	w := env.seedChat(t)
	voice := env.createChannel(t, w.server.ID, "sesli", models.ChannelTypeVoice)
	ctx := context.Background()

	_, err := svc.Join(ctx, w.user, voice.ID)
	require.NoError(t, err)
	env.hub.reset()

	svc.LeaveAll(w.user.ID)
	assert.Empty(t, svc.Participants(voice.ID))

	states := env.hub.byType(ws.EventVoiceStateUpdate)
	require.Len(t, states, 1)
	farewell, ok := states[0].event.Data.(ws.VoiceStateData)
	require.True(t, ok)
	assert.False(t, farewell.Joined)

	// Disconnect akışında peer'ları gateway kapatır; service relay'i
	// tekrar çağırmaz.
	assert.Empty(t, relay.leaves)
	assert.Empty(t, relay.leaveAll)
}
