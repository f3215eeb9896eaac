package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/ws"
)

func newUserEnv(t *testing.T) (*testEnv, UserService, string) {
	t.Helper()
	env := newTestEnv(t)
	dataDir := t.TempDir()
	svc := NewUserService(env.users, env.members, env.hub, dataDir, 1<<20)
	return env, svc, dataDir
}

// pngBytes, magic byte'ları geçerli minimal bir PNG gövdesi üretir.
// Gerçek bir görsel decode edilmez; format tespiti prefix'e bakar.
func pngBytes(payload string) []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), []byte(payload)...)
}

func TestUserGetPublic(t *testing.T) {
	env, svc, _ := newUserEnv(t)
	ctx := context.Background()

	user := env.createUser(t, "deniz")

	public, err := svc.GetPublic(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, public.ID)
	assert.Equal(t, "deniz", public.Username)

	_, err = svc.GetPublic(ctx, newID())
	assert.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestUserUpdateProfile(t *testing.T) {
	env, svc, _ := newUserEnv(t)
	w := env.seedChat(t)
	ctx := context.Background()

	t.Run("display name ve identity key", func(t *testing.T) {
		name := "Deniz Y."
		key := "base64-identity-key"
		updated, err := svc.UpdateProfile(ctx, w.user, &models.UpdateUserRequest{
			DisplayName:       &name,
			IdentityPublicKey: &key,
		})
		require.NoError(t, err)
		assert.Equal(t, "Deniz Y.", updated.DisplayName)
		require.NotNil(t, updated.IdentityPublicKey)
		assert.Equal(t, key, *updated.IdentityPublicKey)

		// Kalıcılık ve ortak sunuculara yayın.
		stored, err := env.users.GetByID(ctx, w.user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Deniz Y.", stored.DisplayName)

		events := env.hub.byType(ws.EventUserUpdate)
		require.Len(t, events, 1)
		assert.Equal(t, "server", events[0].scope)
		assert.Equal(t, w.server.ID, events[0].target)
		data, ok := events[0].event.Data.(ws.UserUpdateData)
		require.True(t, ok)
		assert.Equal(t, "Deniz Y.", data.User.DisplayName)
	})

	t.Run("bos display name kullanici adina duser", func(t *testing.T) {
		empty := ""
		updated, err := svc.UpdateProfile(ctx, w.user, &models.UpdateUserRequest{DisplayName: &empty})
		require.NoError(t, err)
		assert.Equal(t, w.user.Username, updated.DisplayName)
	})

	t.Run("asiri uzun display name", func(t *testing.T) {
		long := strings.Repeat("a", 65)
		_, err := svc.UpdateProfile(ctx, w.user, &models.UpdateUserRequest{DisplayName: &long})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})
}

func TestUserSaveAvatar(t *testing.T) {
	env, svc, dataDir := newUserEnv(t)
	w := env.seedChat(t)
	ctx := context.Background()

	png := pngBytes("ilk avatar")
	sum := sha256.Sum256(png)
	wantHash := hex.EncodeToString(sum[:])

	hash, err := svc.SaveAvatar(ctx, w.user, png)
	require.NoError(t, err)
	assert.Equal(t, wantHash, hash)
	require.NotNil(t, w.user.AvatarHash)
	assert.Equal(t, wantHash, *w.user.AvatarHash)

	// Dosya content-addressed adla diske yazılır, DB hash'i günceller.
	_, err = os.Stat(filepath.Join(dataDir, "avatars", w.user.ID, wantHash+".png"))
	require.NoError(t, err)
	stored, err := env.users.GetByID(ctx, w.user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AvatarHash)
	assert.Equal(t, wantHash, *stored.AvatarHash)
	assert.NotEmpty(t, env.hub.byType(ws.EventUserUpdate))

	// Yeni avatar eskisini diskten süpürür.
	jpg := append([]byte{0xFF, 0xD8, 0xFF}, []byte("ikinci avatar")...)
	jpgSum := sha256.Sum256(jpg)
	jpgHash, err := svc.SaveAvatar(ctx, w.user, jpg)
	require.NoError(t, err)
	assert.Equal(t, hex.EncodeToString(jpgSum[:]), jpgHash)

	entries, err := os.ReadDir(filepath.Join(dataDir, "avatars", w.user.ID))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, jpgHash+".jpg", entries[0].Name())
}

func TestUserSaveAvatarDogrulama(t *testing.T) {
	env, _, _ := newUserEnv(t)
	w := env.seedChat(t)
	ctx := context.Background()

	// Küçük limitli ayrı bir servis: boyut kontrolü sınırda test edilir.
	svc := NewUserService(env.users, env.members, env.hub, t.TempDir(), 16)

	t.Run("boyut asimi", func(t *testing.T) {
		_, err := svc.SaveAvatar(ctx, w.user, pngBytes("bu govde on alti byte'i rahat asar"))
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("taninmayan format", func(t *testing.T) {
		_, err := svc.SaveAvatar(ctx, w.user, []byte("gorsel degil"))
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})
}

func TestUserAvatarPath(t *testing.T) {
	env, svc, _ := newUserEnv(t)
	w := env.seedChat(t)
	ctx := context.Background()

	hash, err := svc.SaveAvatar(ctx, w.user, pngBytes("yol testi"))
	require.NoError(t, err)

	path, err := svc.AvatarPath(w.user.ID, hash)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, pngBytes("yol testi"), data)

	t.Run("bilinmeyen hash", func(t *testing.T) {
		_, err := svc.AvatarPath(w.user.ID, "deadbeef")
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})

	t.Run("traversal denemesi", func(t *testing.T) {
		_, err := svc.AvatarPath(w.user.ID, "..")
		assert.ErrorIs(t, err, pkg.ErrNotFound)

		_, err = svc.AvatarPath("../"+w.user.ID, hash)
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})

	t.Run("avatari olmayan kullanici", func(t *testing.T) {
		yalin := env.createUser(t, "yalin")
		_, err := svc.AvatarPath(yalin.ID, hash)
		assert.ErrorIs(t, err, pkg.ErrNotFound)
	})
}
