package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	gormlog "gorm.io/gorm/logger"

	"github.com/charleshuang3/kinderauth/internal/gormw"
	"github.com/charleshuang3/kinderauth/internal/models"
	"github.com/charleshuang3/kinderauth/internal/session"
	"github.com/charleshuang3/kinderauth/internal/storage"
	"github.com/charleshuang3/kinderauth/testdata"
)

const (
	testPassword = "correctpassword"
	testIssuer   = "http://localhost:8080"
)

// setupTestProvider creates a provider with two users: "parent1" (id 1) and
// "admin1" (id 2), both with testPassword. A nil clock uses the real clock.
func setupTestProvider(t *testing.T, clock clockwork.Clock) (*Provider, *gormw.DB, *gin.Engine) {
	t.Helper()
	database, err := gormw.Open(&gormw.Config{
		LogLevel: gormlog.Silent,
	})
	require.NoError(t, err)

	err = database.Migrate()
	require.NoError(t, err)

	for _, u := range []*models.User{
		{Username: "parent1", Name: "Parent One", Email: "parent1@example.com", Roles: "parent"},
		{Username: "admin1", Name: "Admin One", Email: "admin1@example.com", Roles: "admin teacher"},
	} {
		require.NoError(t, u.SetPassword(testPassword))
		require.NoError(t, storage.CreateUser(database, u))
	}

	sessions, err := session.NewManager(&session.Config{
		PrivateKeyPEM:   testdata.PrivateKeyPEM,
		Issuer:          testIssuer,
		AccessTokenTTL:  600,
		RefreshTokenTTL: 24 * 3600,
	}, database, clock)
	require.NoError(t, err)

	provider := NewProvider(&Config{}, database, sessions)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	testGroup := router.Group("/")
	provider.RegisterHandlers(testGroup)

	return provider, database, router
}

func doLogin(t *testing.T, router *gin.Engine, username, password string) *httptest.ResponseRecorder {
	t.Helper()
	formData := url.Values{
		"username": {username},
		"password": {password},
	}
	req, err := http.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(formData.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// login returns the access token and refresh cookie of a successful login.
func login(t *testing.T, router *gin.Engine, username string) (string, *http.Cookie) {
	t.Helper()
	rec := doLogin(t, router, username, testPassword)
	require.Equal(t, http.StatusOK, rec.Code, "Body: %s", rec.Body.String())

	resp := &tokenResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp))
	return resp.AccessToken, refreshCookie(t, rec)
}

func refreshCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == defaultCookieName {
			return c
		}
	}
	require.FailNow(t, "refresh cookie not set")
	return nil
}

func doRefresh(t *testing.T, router *gin.Engine, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, "/auth/refresh", nil)
	require.NoError(t, err)
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func doBearer(t *testing.T, router *gin.Engine, method, path, accessToken string, body url.Values) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, path, strings.NewReader(body.Encode()))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequest(method, path, nil)
		require.NoError(t, err)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	resp := &errorResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), resp), "Body: %s", rec.Body.String())
	return resp.Error
}

func doRequest(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}
