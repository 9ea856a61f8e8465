package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamzaiqbal/crmconnect/internal/models"
	"github.com/hamzaiqbal/crmconnect/internal/store/memory"
	"github.com/hamzaiqbal/crmconnect/internal/tenant"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery", hash)

	assert.True(t, CheckPassword(hash, "correct horse battery"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse battery"))
}

func TestIssueTokenRoundTrip(t *testing.T) {
	tenantID := uuid.New()
	u := &models.User{
		ID:       uuid.New(),
		TenantID: &tenantID,
		Email:    "admin@acme.test",
		Role:     models.RoleTenantAdmin,
	}

	signed, err := IssueToken(u, "secret", time.Hour)
	require.NoError(t, err)

	claims := &Claims{}
	_, err = jwt.ParseWithClaims(signed, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)

	assert.Equal(t, u.ID.String(), claims.Sub)
	assert.Equal(t, tenantID.String(), claims.TenantID)
	assert.Equal(t, string(models.RoleTenantAdmin), claims.Role)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, u.ID, got)
}

func TestAuthenticateMiddleware(t *testing.T) {
	st := memory.New()
	ts := tenant.NewService(st, nil)
	ctx := context.Background()

	tn := &models.Tenant{Name: "Acme", Status: models.TenantActive}
	require.NoError(t, st.CreateTenant(ctx, tn))
	u := &models.User{TenantID: &tn.ID, Email: "admin@acme.test", PasswordHash: "x", Role: models.RoleTenantAdmin}
	require.NoError(t, st.CreateUser(ctx, u))

	mw := NewJWTMiddleware("secret", ts)
	var seenTenant uuid.UUID
	var seenUser *models.User
	handler := mw.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTenant = tenant.IDFromContext(r.Context())
		seenUser = tenant.UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	// No token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Wrong secret.
	bad, err := IssueToken(u, "other-secret", time.Hour)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid token populates tenant and user context.
	good, err := IssueToken(u, "secret", time.Hour)
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, tn.ID, seenTenant)
	require.NotNil(t, seenUser)
	assert.Equal(t, u.ID, seenUser.ID)
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	guard := RequireRole(models.RoleSuperadmin)(next)

	rec := httptest.NewRecorder()
	guard.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	agent := &models.User{ID: uuid.New(), Role: models.RoleAgent}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(tenant.WithUser(req.Context(), agent))
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	root := &models.User{ID: uuid.New(), Role: models.RoleSuperadmin}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(tenant.WithUser(req.Context(), root))
	rec = httptest.NewRecorder()
	guard.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
