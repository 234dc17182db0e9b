package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/services/auth/internal/entity"
	"tell-all/services/auth/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthUseCase is a mock implementation of AuthUseCase
type MockAuthUseCase struct {
	mock.Mock
}

func (m *MockAuthUseCase) SignUp(ctx context.Context, input usecase.SignUpInput, grantAdmin bool) (*entity.User, error) {
	args := m.Called(ctx, input, grantAdmin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAuthUseCase) Login(ctx context.Context, username, password string) (string, error) {
	args := m.Called(ctx, username, password)
	return args.String(0), args.Error(1)
}

func (m *MockAuthUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.User), args.Error(1)
}

func (m *MockAuthUseCase) DeleteUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func setupRouter(uc usecase.AuthUseCase, role string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(uc, logger.NewWithWriters(io.Discard, io.Discard))

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if role != "" {
			c.Set("user_id", "caller-1")
			c.Set("user_role", role)
		}
		c.Next()
	})
	r.POST("/sign-up", h.SignUp)
	r.POST("/api-token-auth", h.Login)
	r.GET("/me", h.Me)
	r.DELETE("/users/:id", h.DeleteUser)
	return r
}

func doJSON(r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signUpBody(isAdmin bool) gin.H {
	return gin.H{
		"username":   "author1",
		"email":      "author1@tell-all.com",
		"password":   "s3cret-pass",
		"password2":  "s3cret-pass",
		"first_name": "Ada",
		"last_name":  "Lovelace",
		"is_admin":   isAdmin,
	}
}

func TestSignUp_Anonymous(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("SignUp", mock.Anything, mock.MatchedBy(func(in usecase.SignUpInput) bool {
		return in.Username == "author1" && in.IsAdmin && in.Password2 == "s3cret-pass"
	}), false).Return(&entity.User{ID: "u1", Username: "author1", Email: "author1@tell-all.com"}, nil)

	w := doJSON(setupRouter(uc, ""), http.MethodPost, "/sign-up", signUpBody(true))

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp UserResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "u1", resp.ID)
	assert.False(t, resp.IsAdmin)
	assert.NotContains(t, w.Body.String(), "password")
	uc.AssertExpectations(t)
}

func TestSignUp_AdminCallerGrantsAdmin(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("SignUp", mock.Anything, mock.Anything, true).
		Return(&entity.User{ID: "u2", Username: "author1", IsAdmin: true}, nil)

	w := doJSON(setupRouter(uc, jwt.RoleAdmin), http.MethodPost, "/sign-up", signUpBody(true))

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"is_admin":true`)
	uc.AssertExpectations(t)
}

func TestSignUp_ValidationError(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("SignUp", mock.Anything, mock.Anything, false).
		Return(nil, &usecase.ValidationError{Fields: map[string]string{"password": "Password fields does not match."}})

	w := doJSON(setupRouter(uc, ""), http.MethodPost, "/sign-up", signUpBody(false))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Password fields does not match.")
}

func TestLogin_Success(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("Login", mock.Anything, "author1", "s3cret-pass").Return("signed.jwt.token", nil)

	w := doJSON(setupRouter(uc, ""), http.MethodPost, "/api-token-auth", gin.H{"username": "author1", "password": "s3cret-pass"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"token":"signed.jwt.token"}`, w.Body.String())
}

func TestLogin_BadCredentials(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("Login", mock.Anything, "author1", "nope").Return("", usecase.ErrInvalidCredentials)

	w := doJSON(setupRouter(uc, ""), http.MethodPost, "/api-token-auth", gin.H{"username": "author1", "password": "nope"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Unable to log in with provided credentials.")
}

func TestLogin_MissingFields(t *testing.T) {
	uc := new(MockAuthUseCase)

	w := doJSON(setupRouter(uc, ""), http.MethodPost, "/api-token-auth", gin.H{})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "username")
	assert.Contains(t, w.Body.String(), "password")
	uc.AssertNotCalled(t, "Login", mock.Anything, mock.Anything, mock.Anything)
}

func TestMe(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("GetUser", mock.Anything, "caller-1").Return(&entity.User{ID: "caller-1", Username: "author1"}, nil)

	w := doJSON(setupRouter(uc, jwt.RoleUser), http.MethodGet, "/me", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"username":"author1"`)
}

func TestDeleteUser(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("DeleteUser", mock.Anything, "u1").Return(nil)

	w := doJSON(setupRouter(uc, jwt.RoleAdmin), http.MethodDelete, "/users/u1", nil)

	assert.Equal(t, http.StatusNoContent, w.Code)
	uc.AssertExpectations(t)
}

func TestDeleteUser_NotFound(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("DeleteUser", mock.Anything, "missing").Return(usecase.ErrUserNotFound)

	w := doJSON(setupRouter(uc, jwt.RoleAdmin), http.MethodDelete, "/users/missing", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteUser_StorageFailure(t *testing.T) {
	uc := new(MockAuthUseCase)
	uc.On("DeleteUser", mock.Anything, "u1").Return(errors.New("db down"))

	w := doJSON(setupRouter(uc, jwt.RoleAdmin), http.MethodDelete, "/users/u1", nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
