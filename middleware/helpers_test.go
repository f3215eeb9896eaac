package middleware

// Middleware testleri gerçek in-memory SQLite repo'larına karşı koşar;
// tek sahte parça token doğrulayıcıdır. Zincirin sonuna bağlanan
// nextRecorder, context'e ne yazıldığını yakalar.

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/candemir/meydan/database"
	"github.com/candemir/meydan/handlers"
	"github.com/candemir/meydan/models"
	"github.com/candemir/meydan/pkg"
	"github.com/candemir/meydan/repository"
)

type mwEnv struct {
	users   repository.UserRepository
	servers repository.ServerRepository
	members repository.MemberRepository
	roles   repository.RoleRepository
}

func newMwEnv(t *testing.T) *mwEnv {
	t.Helper()
	migrations, err := fs.Sub(database.EmbeddedMigrations, "migrations")
	require.NoError(t, err)
	db, err := database.New(":memory:", migrations)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &mwEnv{
		users:   repository.NewSQLiteUserRepo(db.Conn),
		servers: repository.NewSQLiteServerRepo(db.Conn),
		members: repository.NewSQLiteMemberRepo(db.Conn),
		roles:   repository.NewSQLiteRoleRepo(db.Conn),
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

func (e *mwEnv) createUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           newID(),
		Username:     username,
		DisplayName:  username,
		PasswordHash: "hash",
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return user
}

func (e *mwEnv) createServer(t *testing.T, ownerID string) *models.Server {
	t.Helper()
	server := &models.Server{ID: newID(), Name: "test sunucusu", OwnerID: ownerID}
	require.NoError(t, e.servers.Create(context.Background(), server))
	return server
}

func (e *mwEnv) addMember(t *testing.T, serverID, userID string) {
	t.Helper()
	require.NoError(t, e.members.Add(context.Background(), &models.Member{ServerID: serverID, UserID: userID}))
}

func (e *mwEnv) createEveryone(t *testing.T, serverID string, perms models.Permission) *models.Role {
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

func (e *mwEnv) assignRole(t *testing.T, serverID, userID string, perms models.Permission) *models.Role {
	t.Helper()
	role := &models.Role{ID: newID(), ServerID: serverID, Name: "rol", Permissions: perms}
	require.NoError(t, e.roles.Create(context.Background(), role))
	require.NoError(t, e.roles.Assign(context.Background(), serverID, userID, role.ID))
	return role
}

// fakeVerifier, token string → claims eşlemesi tutan TokenVerifier.
// Eşlemede olmayan her token ErrUnauthorized'dır.
type fakeVerifier struct {
	claims map[string]*models.TokenClaims
}

func (v *fakeVerifier) VerifyToken(_ context.Context, token string) (*models.TokenClaims, error) {
	if claims, ok := v.claims[token]; ok {
		return claims, nil
	}
	return nil, pkg.ErrUnauthorized
}

func claimsFor(userID, username string) *models.TokenClaims {
	return &models.TokenClaims{
		Username:         username,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
}

// nextRecorder, zincirin sonunda çağrılan handler'ın gördüğü context'i
// yakalar. called false kaldıysa middleware isteği kesmiş demektir.
type nextRecorder struct {
	called   bool
	user     *models.User
	serverID string
	perms    models.Permission
	hasPerms bool
}

func (n *nextRecorder) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n.called = true
		if user, ok := r.Context().Value(handlers.UserContextKey).(*models.User); ok {
			n.user = user
		}
		if serverID, ok := r.Context().Value(handlers.ServerIDContextKey).(string); ok {
			n.serverID = serverID
		}
		if perms, ok := r.Context().Value(handlers.PermissionsContextKey).(models.Permission); ok {
			n.perms = perms
			n.hasPerms = true
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

// authedRequest, context'ine user (ve verildiyse serverID) yerleştirilmiş
// bir GET isteği üretir — auth/membership katmanlarının çıktısını taklit eder.
func authedRequest(user *models.User, serverID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/test", nil)
	ctx := context.WithValue(req.Context(), handlers.UserContextKey, user)
	if serverID != "" {
		ctx = context.WithValue(ctx, handlers.ServerIDContextKey, serverID)
	}
	return req.WithContext(ctx)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) pkg.ErrorBody {
	t.Helper()
	var body pkg.ErrorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}
