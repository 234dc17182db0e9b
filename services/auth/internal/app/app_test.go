package app

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/services/auth/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type harness struct {
	router *gin.Engine
	db     *gorm.DB
	jwt    *jwt.Service
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:auth-app-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.UserModel{}))
	for _, stmt := range []string{
		`CREATE TABLE posts (id TEXT PRIMARY KEY, author_id TEXT NOT NULL)`,
		`CREATE TABLE post_tags (post_id TEXT NOT NULL, tag_id TEXT NOT NULL)`,
		`CREATE TABLE post_edits (id TEXT PRIMARY KEY, post_id TEXT NOT NULL, edited_by TEXT NOT NULL)`,
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}

	jwtService := jwt.NewService("test-secret")
	router := NewRouter(Deps{
		DB:  db,
		JWT: jwtService,
		Log: logger.NewWithWriters(io.Discard, io.Discard),
	})
	return &harness{router: router, db: db, jwt: jwtService}
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func signUpJSON(username string, isAdmin bool) string {
	return fmt.Sprintf(`{"username":%q,"email":"%s@tell-all.com","password":"s3cret-pass","password2":"s3cret-pass","first_name":"Ada","last_name":"Lovelace","is_admin":%t}`,
		username, username, isAdmin)
}

func (h *harness) login(t *testing.T, username string) string {
	t.Helper()

	w := h.do(t, "POST", "/api/v1/api-token-auth", "", fmt.Sprintf(`{"username":%q,"password":"s3cret-pass"}`, username))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Token
}

func TestRouter_SignUpLoginMe(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, "POST", "/api/v1/sign-up", "", signUpJSON("author1", false))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token := h.login(t, "author1")

	w = h.do(t, "GET", "/api/v1/me", token, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"email":"author1@tell-all.com"`)
}

func TestRouter_MeRequiresAuth(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, "GET", "/api/v1/me", "", "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_SelfServiceAdminIgnored(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, "POST", "/api/v1/sign-up", "", signUpJSON("sneaky", true))
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":false`)

	claims, err := h.jwt.ValidateToken(h.login(t, "sneaky"))
	require.NoError(t, err)
	assert.Equal(t, jwt.RoleUser, claims.Role)
}

func TestRouter_AdminCanCreateAdmin(t *testing.T) {
	h := newHarness(t)
	adminToken, err := h.jwt.GenerateToken("root", jwt.RoleAdmin)
	require.NoError(t, err)

	w := h.do(t, "POST", "/api/v1/sign-up", adminToken, signUpJSON("editor", true))

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":true`)
}

func TestRouter_DeleteUser(t *testing.T) {
	h := newHarness(t)

	w := h.do(t, "POST", "/api/v1/sign-up", "", signUpJSON("author1", false))
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	userToken := h.login(t, "author1")
	w = h.do(t, "DELETE", "/api/v1/users/"+created.ID, userToken, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = h.do(t, "DELETE", "/api/v1/users/"+created.ID, "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	adminToken, err := h.jwt.GenerateToken("root", jwt.RoleAdmin)
	require.NoError(t, err)
	w = h.do(t, "DELETE", "/api/v1/users/"+created.ID, adminToken, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = h.do(t, "DELETE", "/api/v1/users/"+created.ID, adminToken, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
