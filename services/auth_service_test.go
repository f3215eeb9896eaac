package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/config"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/ws"
)

// fakeSender, giden şifre sıfırlama mail'lerini kaydeder. Plaintext
// token'a testin tek erişim yolu budur — DB'de sadece hash durur.
type fakeSender struct {
	mails []sentMail
}

type sentMail struct {
	to    string
	token string
}

func (f *fakeSender) SendPasswordReset(_ context.Context, toEmail, token string) error {
	f.mails = append(f.mails, sentMail{to: toEmail, token: token})
	return nil
}

type authWorld struct {
	env      *testEnv
	sender   *fakeSender
	svc      AuthService
	verifier TokenVerifier
	cfg      config.AuthConfig
}

// newAuthWorld, gerçek bir RS256 keypair üzerinde AuthService kurar.
// Keygen pahalıdır; her test fonksiyonu tek kurulum kullanır, farklı
// ayar gereken alt testler aynı keypair ile ikinci bir servis açar.
func newAuthWorld(t *testing.T) *authWorld {
	t.Helper()
	env := newTestEnv(t)
	privatePath, publicPath := newKeyPair(t)

	verifier, err := NewLocalVerifier(publicPath)
	require.NoError(t, err)

	sender := &fakeSender{}
	cfg := config.AuthConfig{
		PrivateKeyPath:         privatePath,
		PublicKeyPath:          publicPath,
		TokenTTL:               time.Hour,
		AllowLocalRegistration: true,
	}
	svc, err := NewAuthService(env.users, env.servers, env.members, env.resets, sender, env.hub, verifier, cfg)
	require.NoError(t, err)

	return &authWorld{env: env, sender: sender, svc: svc, verifier: verifier, cfg: cfg}
}

func TestAuthRegister(t *testing.T) {
	a := newAuthWorld(t)
	ctx := context.Background()

	// Kurulumda açılmış sahipsiz sunucu: ilk kayıt olan devralır.
	orphan := a.env.createServer(t, models.SentinelOwnerID)

	resp, err := a.svc.Register(ctx, &models.RegisterRequest{
		Username: "deniz",
		Password: "gizli-sifre",
		Email:    "deniz@meydan.test",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "deniz", resp.User.Username)
	// Display name verilmedi — username'e düşer.
	assert.Equal(t, "deniz", resp.User.DisplayName)

	// Token bu node'un kendi key'i ile doğrulanabilir olmalı.
	claims, err := a.verifier.VerifyToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.Subject)
	assert.Equal(t, "deniz", claims.Username)

	// Otomatik üyelik + sahiplik devri.
	isMember, err := a.env.members.IsMember(ctx, orphan.ID, resp.User.ID)
	require.NoError(t, err)
	assert.True(t, isMember)
	claimed, err := a.env.servers.GetByID(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claimed.OwnerID)

	events := a.env.hub.byType(ws.EventServerUpdate)
	require.Len(t, events, 1)
	assert.Equal(t, orphan.ID, events[0].target)

	t.Run("ikinci kayit sahipligi degistirmez", func(t *testing.T) {
		second, err := a.svc.Register(ctx, &models.RegisterRequest{Username: "mert", Password: "gizli-sifre"})
		require.NoError(t, err)

		isMember, err := a.env.members.IsMember(ctx, orphan.ID, second.User.ID)
		require.NoError(t, err)
		assert.True(t, isMember)

		server, err := a.env.servers.GetByID(ctx, orphan.ID)
		require.NoError(t, err)
		assert.Equal(t, resp.User.ID, server.OwnerID)
		assert.Len(t, a.env.hub.byType(ws.EventServerUpdate), 1)
	})

	t.Run("kullanici adi alinmis", func(t *testing.T) {
		_, err := a.svc.Register(ctx, &models.RegisterRequest{Username: "deniz", Password: "baska-sifre"})
		assert.ErrorIs(t, err, pkg.ErrAlreadyExists)
	})

	t.Run("gecersiz istek", func(t *testing.T) {
		_, err := a.svc.Register(ctx, &models.RegisterRequest{Username: "ab", Password: "gizli-sifre"})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)

		_, err = a.svc.Register(ctx, &models.RegisterRequest{Username: "gecerli", Password: "kisa"})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("kayit kapali", func(t *testing.T) {
		cfg := a.cfg
		cfg.AllowLocalRegistration = false
		kapali, err := NewAuthService(a.env.users, a.env.servers, a.env.members, a.env.resets, a.sender, a.env.hub, a.verifier, cfg)
		require.NoError(t, err)

		_, err = kapali.Register(ctx, &models.RegisterRequest{Username: "kimse", Password: "gizli-sifre"})
		assert.ErrorIs(t, err, pkg.ErrForbidden)
	})
}

func TestAuthLogin(t *testing.T) {
	a := newAuthWorld(t)
	ctx := context.Background()

	reg, err := a.svc.Register(ctx, &models.RegisterRequest{Username: "deniz", Password: "gizli-sifre"})
	require.NoError(t, err)

	resp, err := a.svc.Login(ctx, &models.LoginRequest{Username: "deniz", Password: "gizli-sifre"})
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, resp.User.ID)

	claims, err := a.verifier.VerifyToken(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, claims.Subject)

	t.Run("yanlis sifre ve bilinmeyen kullanici ayirt edilemez", func(t *testing.T) {
		_, errWrong := a.svc.Login(ctx, &models.LoginRequest{Username: "deniz", Password: "yanlis-sifre"})
		require.ErrorIs(t, errWrong, pkg.ErrUnauthorized)

		_, errUnknown := a.svc.Login(ctx, &models.LoginRequest{Username: "hayalet", Password: "gizli-sifre"})
		require.ErrorIs(t, errUnknown, pkg.ErrUnauthorized)

		// Hata mesajı hesabın varlığını sızdırmamalı.
		assert.Equal(t, errWrong.Error(), errUnknown.Error())
	})

	t.Run("federated hesap sifreyle giremez", func(t *testing.T) {
		// Federated satırlarda password_hash boştur.
		uzak := &models.User{ID: newID(), Username: "uzak", DisplayName: "uzak"}
		require.NoError(t, a.env.users.Create(ctx, uzak))

		_, err := a.svc.Login(ctx, &models.LoginRequest{Username: "uzak", Password: "herhangi-sifre"})
		assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	})
}

func TestAuthValidate(t *testing.T) {
	a := newAuthWorld(t)
	ctx := context.Background()

	reg, err := a.svc.Register(ctx, &models.RegisterRequest{
		Username:    "deniz",
		Password:    "gizli-sifre",
		DisplayName: "Deniz Y.",
	})
	require.NoError(t, err)

	resp := a.svc.Validate(ctx, reg.Token)
	require.True(t, resp.Valid)
	require.NotNil(t, resp.UserID)
	assert.Equal(t, reg.User.ID, *resp.UserID)
	require.NotNil(t, resp.Username)
	assert.Equal(t, "deniz", *resp.Username)
	require.NotNil(t, resp.DisplayName)
	assert.Equal(t, "Deniz Y.", *resp.DisplayName)

	t.Run("gecersiz token valid false doner", func(t *testing.T) {
		resp := a.svc.Validate(ctx, "bozuk.token.degeri")
		assert.False(t, resp.Valid)
		assert.Nil(t, resp.UserID)
	})

	t.Run("public key pem yayinlanir", func(t *testing.T) {
		assert.Contains(t, a.svc.PublicKeyPEM(), "BEGIN PUBLIC KEY")
	})
}

func TestAuthPasswordReset(t *testing.T) {
	a := newAuthWorld(t)
	ctx := context.Background()

	mail := "deniz@meydan.test"
	reg, err := a.svc.Register(ctx, &models.RegisterRequest{Username: "deniz", Password: "ilk-sifre", Email: mail})
	require.NoError(t, err)

	t.Run("bilinmeyen email sizdirilmaz", func(t *testing.T) {
		require.NoError(t, a.svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "yok@meydan.test"}))
		assert.Empty(t, a.sender.mails)
	})

	t.Run("sender yoksa sessizce basarili", func(t *testing.T) {
		sessiz, err := NewAuthService(a.env.users, a.env.servers, a.env.members, a.env.resets, nil, a.env.hub, a.verifier, a.cfg)
		require.NoError(t, err)
		require.NoError(t, sessiz.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: mail}))
		assert.Empty(t, a.sender.mails)
	})

	require.NoError(t, a.svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: mail}))
	require.Len(t, a.sender.mails, 1)
	assert.Equal(t, mail, a.sender.mails[0].to)
	// 32 byte random → 64 karakter hex.
	assert.Len(t, a.sender.mails[0].token, 64)

	t.Run("cooldown icinde ikinci istek mail gondermez", func(t *testing.T) {
		require.NoError(t, a.svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: mail}))
		assert.Len(t, a.sender.mails, 1)
	})

	// Cooldown'u aşmak için kaydı geçmişe çek.
	_, err = a.env.db.Conn.ExecContext(ctx, `UPDATE password_reset_tokens SET created_at = '2020-01-01 00:00:00'`)
	require.NoError(t, err)
	require.NoError(t, a.svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: mail}))
	require.Len(t, a.sender.mails, 2)
	token := a.sender.mails[1].token

	t.Run("eski token yenisiyle gecersizlesir", func(t *testing.T) {
		err := a.svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: a.sender.mails[0].token, NewPassword: "yeni-sifre"})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	require.NoError(t, a.svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "yeni-sifre"}))

	t.Run("yeni sifre gecerli eski sifre degil", func(t *testing.T) {
		_, err := a.svc.Login(ctx, &models.LoginRequest{Username: "deniz", Password: "yeni-sifre"})
		require.NoError(t, err)

		_, err = a.svc.Login(ctx, &models.LoginRequest{Username: "deniz", Password: "ilk-sifre"})
		assert.ErrorIs(t, err, pkg.ErrUnauthorized)
	})

	t.Run("token tek kullanimlik", func(t *testing.T) {
		err := a.svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: token, NewPassword: "baska-sifre"})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("bozuk token", func(t *testing.T) {
		err := a.svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: "uydurma", NewPassword: "yeni-sifre"})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("suresi dolmus token", func(t *testing.T) {
		plaintext := "elle-uretilmis-eski-token"
		digest := sha256.Sum256([]byte(plaintext))
		require.NoError(t, a.env.resets.Create(ctx, &models.PasswordResetToken{
			ID:        newID(),
			UserID:    reg.User.ID,
			TokenHash: hex.EncodeToString(digest[:]),
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		err := a.svc.ResetPassword(ctx, &models.ResetPasswordRequest{Token: plaintext, NewPassword: "yeni-sifre"})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("gecersiz email formati", func(t *testing.T) {
		err := a.svc.ForgotPassword(ctx, &models.ForgotPasswordRequest{Email: "at-isareti-yok"})
		assert.ErrorIs(t, err, pkg.ErrBadRequest)
	})
}
