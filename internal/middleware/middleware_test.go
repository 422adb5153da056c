package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"confectionery/internal/config"
	"confectionery/internal/domain/model"
	"confectionery/internal/middleware"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cfg = config.Config{JWTSecret: "test-secret"}

type fakeUsers struct {
	users map[uuid.UUID]*model.User
}

func (f *fakeUsers) Create(ctx context.Context, user *model.User) error { return nil }
func (f *fakeUsers) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return f.users[id], nil
}
func (f *fakeUsers) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (f *fakeUsers) Update(ctx context.Context, user *model.User) error           { return nil }
func (f *fakeUsers) IncrementTokenVersion(ctx context.Context, id uuid.UUID) error { return nil }

func sign(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func claimsFor(id uuid.UUID, role string, tv int) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":  id.String(),
		"role": role,
		"tv":   tv,
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(time.Minute).Unix(),
	}
}

// ミドルウェアを通した後のuser_idを返すだけのハンドラ
func whoami(c echo.Context) error {
	id := middleware.OptionalUserID(c)
	if id == nil {
		return c.String(http.StatusOK, "guest")
	}
	return c.String(http.StatusOK, id.String())
}

func serve(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthJWT(t *testing.T) {
	id := uuid.New()
	e := echo.New()
	e.GET("/", whoami, middleware.AuthJWT(cfg))

	rec := serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(id, "USER", 0)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, id.String(), rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, serve(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "garbage").Code)

	// HS256以外
	assert.Equal(t, http.StatusUnauthorized, serve(e, sign(t, jwt.SigningMethodHS384, claimsFor(id, "USER", 0))).Code)

	// 期限切れ
	expired := claimsFor(id, "USER", 0)
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	assert.Equal(t, http.StatusUnauthorized, serve(e, sign(t, jwt.SigningMethodHS256, expired)).Code)

	// subがuuidでない
	bad := claimsFor(id, "USER", 0)
	bad["sub"] = "42"
	assert.Equal(t, http.StatusUnauthorized, serve(e, sign(t, jwt.SigningMethodHS256, bad)).Code)
}

func TestOptionalAuth(t *testing.T) {
	id := uuid.New()
	e := echo.New()
	e.GET("/", whoami, middleware.OptionalAuth(cfg))

	rec := serve(e, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "guest", rec.Body.String())

	rec = serve(e, "garbage")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "guest", rec.Body.String())

	rec = serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(id, "USER", 0)))
	assert.Equal(t, id.String(), rec.Body.String())
}

func TestTokenVersionGuard(t *testing.T) {
	current := uuid.New()
	inactive := uuid.New()
	users := &fakeUsers{users: map[uuid.UUID]*model.User{
		current:  {ID: current, TokenVersion: 3, IsActive: true},
		inactive: {ID: inactive, TokenVersion: 0, IsActive: false},
	}}

	e := echo.New()
	e.GET("/", whoami, middleware.AuthJWT(cfg), middleware.TokenVersionGuard(users))

	assert.Equal(t, http.StatusOK, serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(current, "USER", 3))).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(current, "USER", 2))).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(inactive, "USER", 0))).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(uuid.New(), "USER", 0))).Code)

	// ゲストはOptionalAuthと組み合わせたとき素通り
	g := echo.New()
	g.GET("/", whoami, middleware.OptionalAuth(cfg), middleware.TokenVersionGuard(users))
	assert.Equal(t, http.StatusOK, serve(g, "").Code)
}

func TestAdminRoleGuard(t *testing.T) {
	id := uuid.New()
	e := echo.New()
	e.GET("/", whoami, middleware.AuthJWT(cfg), middleware.AdminRoleGuard())

	assert.Equal(t, http.StatusOK, serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(id, "ADMIN", 0))).Code)
	assert.Equal(t, http.StatusForbidden, serve(e, sign(t, jwt.SigningMethodHS256, claimsFor(id, "USER", 0))).Code)
}

func TestCartSession(t *testing.T) {
	e := echo.New()
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, middleware.CartSessionID(c))
	}, middleware.CartSession(time.Hour, false))

	// 初回は発行
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	issued := rec.Body.String()
	_, err := uuid.Parse(issued)
	require.NoError(t, err)
	assert.Equal(t, issued, rec.Header().Get(middleware.CartSessionHeader))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.CartSessionCookie, cookies[0].Name)
	assert.Equal(t, issued, cookies[0].Value)

	// cookieで持ち回る
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CartSessionCookie, Value: issued})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, issued, rec.Body.String())
	assert.Empty(t, rec.Result().Cookies())

	// ヘッダが優先
	other := uuid.NewString()
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.CartSessionHeader, other)
	req.AddCookie(&http.Cookie{Name: middleware.CartSessionCookie, Value: issued})
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, other, rec.Body.String())

	// 不正な値は発行し直す
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(middleware.CartSessionHeader, "cart:*")
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEqual(t, "cart:*", rec.Body.String())
	assert.Len(t, rec.Result().Cookies(), 1)
}
