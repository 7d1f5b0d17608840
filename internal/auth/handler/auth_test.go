package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tourhub/internal/auth/service"
	"tourhub/pkg/auth"
	"tourhub/pkg/config"
	apperrors "tourhub/pkg/errors"
	"tourhub/pkg/logger"
	"tourhub/pkg/middleware"
	"tourhub/pkg/model"
)

type mockAuthService struct {
	service.AuthService
	loginFunc   func(ctx context.Context, req *service.LoginRequest) (*service.Session, error)
	refreshFunc func(ctx context.Context, token string) (*service.Session, error)
	logoutFunc  func(ctx context.Context, userID primitive.ObjectID) error
}

func (m *mockAuthService) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	if token == "good" {
		return &auth.Principal{UserID: primitive.NewObjectID(), Role: model.RoleCustomer}, nil
	}
	return nil, apperrors.Unauthorized("Invalid token")
}

func (m *mockAuthService) Login(ctx context.Context, req *service.LoginRequest) (*service.Session, error) {
	return m.loginFunc(ctx, req)
}

func (m *mockAuthService) Refresh(ctx context.Context, token string) (*service.Session, error) {
	return m.refreshFunc(ctx, token)
}

func (m *mockAuthService) Logout(ctx context.Context, userID primitive.ObjectID) error {
	if m.logoutFunc != nil {
		return m.logoutFunc(ctx, userID)
	}
	return nil
}

type noTenants struct{}

func (noTenants) ResolveTenant(ctx context.Context, hint middleware.TenantHint) (*model.Tenant, error) {
	return nil, nil
}

func testSession() *service.Session {
	exp := time.Now().Add(time.Hour)
	return &service.Session{
		User:         &model.User{ID: primitive.NewObjectID(), Email: "a@example.com"},
		AccessToken:  auth.IssuedToken{Token: "access-1", ExpiresAt: exp},
		RefreshToken: auth.IssuedToken{Token: "refresh-1", ExpiresAt: exp},
	}
}

func newTestRouter(svc service.AuthService, env string) *httprouter.Router {
	cfg := &config.Config{AppEnv: env, Log: logger.Nop()}
	router := httprouter.New()
	NewAuthHandler(svc, noTenants{}, cfg).RegisterRoutes(router)
	return router
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestLogin_SetsCookies(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, req *service.LoginRequest) (*service.Session, error) {
			assert.Equal(t, "a@example.com", req.Email)
			return testSession(), nil
		},
	}
	router := newTestRouter(svc, config.EnvironmentProduction)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := cookiesByName(rec)

	access := cookies[middleware.AccessTokenCookie]
	require.NotNil(t, access)
	assert.Equal(t, "access-1", access.Value)
	assert.Equal(t, "/", access.Path)
	assert.True(t, access.HttpOnly)
	assert.True(t, access.Secure)
	assert.Equal(t, http.SameSiteLaxMode, access.SameSite)

	refresh := cookies[middleware.RefreshTokenCookie]
	require.NotNil(t, refresh)
	assert.Equal(t, refreshPath, refresh.Path)
	assert.Contains(t, rec.Body.String(), `"accessToken":"access-1"`)
}

func TestLogin_Failure(t *testing.T) {
	svc := &mockAuthService{
		loginFunc: func(ctx context.Context, req *service.LoginRequest) (*service.Session, error) {
			return nil, apperrors.Unauthorized("Invalid email or password")
		},
	}
	router := newTestRouter(svc, "development")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"a@example.com","password":"nope"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestRefresh_CookieThenBody(t *testing.T) {
	var got []string
	svc := &mockAuthService{
		refreshFunc: func(ctx context.Context, token string) (*service.Session, error) {
			got = append(got, token)
			return testSession(), nil
		},
	}
	router := newTestRouter(svc, "development")

	req := httptest.NewRequest(http.MethodPost, refreshPath, nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: "from-cookie"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, refreshPath, strings.NewReader(`{"refreshToken":"from-body"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"from-cookie", "from-body"}, got)
}

func TestRefresh_FailureClearsCookies(t *testing.T) {
	svc := &mockAuthService{
		refreshFunc: func(ctx context.Context, token string) (*service.Session, error) {
			return nil, apperrors.Unauthorized("Invalid refresh token")
		},
	}
	router := newTestRouter(svc, "development")

	req := httptest.NewRequest(http.MethodPost, refreshPath, nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: "stale"})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, c.Name)
	}
}

func TestLogout(t *testing.T) {
	var loggedOut bool
	svc := &mockAuthService{
		logoutFunc: func(ctx context.Context, userID primitive.ObjectID) error {
			loggedOut = true
			return nil
		},
	}
	router := newTestRouter(svc, "development")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, loggedOut)
	assert.Len(t, rec.Result().Cookies(), 2)

	// anonymous logout still clears cookies
	loggedOut = false
	req = httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, loggedOut)
}

func TestMe_RequiresAuth(t *testing.T) {
	router := newTestRouter(&mockAuthService{}, "development")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
