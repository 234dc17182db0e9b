package http

import (
	"errors"
	"net/http"

	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/services/auth/internal/entity"
	"tell-all/services/auth/internal/usecase"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authUseCase usecase.AuthUseCase
	logger      *logger.Logger
}

func NewAuthHandler(authUseCase usecase.AuthUseCase, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authUseCase: authUseCase,
		logger:      logger,
	}
}

type SignUpRequest struct {
	Username  string `form:"username" json:"username"`
	Email     string `form:"email" json:"email"`
	Password  string `form:"password" json:"password"`
	Password2 string `form:"password2" json:"password2"`
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	IsAdmin   bool   `form:"is_admin" json:"is_admin"`
}

type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Password string `form:"password" json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	IsAdmin   bool   `json:"is_admin"`
}

func toUserResponse(u *entity.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsAdmin:   u.IsAdmin,
	}
}

// SignUp godoc
// @Summary      Sign up
// @Description  Create an account. is_admin only takes effect when the caller is an authenticated admin.
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        request body SignUpRequest true "Sign-up data"
// @Success      201  {object}  UserResponse
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": err.Error()})
		return
	}

	grantAdmin := c.GetString("user_role") == jwt.RoleAdmin
	user, err := h.authUseCase.SignUp(c.Request.Context(), usecase.SignUpInput{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Password2: req.Password2,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsAdmin:   req.IsAdmin,
	}, grantAdmin)
	if err != nil {
		h.writeError(c, "sign-up failed", err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

// Login godoc
// @Summary      Obtain a token
// @Description  Exchange username and password for a JWT
// @Tags         auth
// @Accept       json,x-www-form-urlencoded
// @Produce      json
// @Param        request body LoginRequest true "Credentials"
// @Success      200  {object}  TokenResponse
// @Failure      400  {object}  map[string]interface{}
// @Router       /api-token-auth [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{err.Error()}})
		return
	}

	missing := gin.H{}
	if req.Username == "" {
		missing["username"] = []string{"This field is required."}
	}
	if req.Password == "" {
		missing["password"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		c.JSON(http.StatusBadRequest, missing)
		return
	}

	token, err := h.authUseCase.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidCredentials) {
			c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"Unable to log in with provided credentials."}})
			return
		}
		h.writeError(c, "login failed", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Token: token})
}

// Me godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  UserResponse
// @Failure      401  {object}  map[string]string
// @Router       /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authUseCase.GetUser(c.Request.Context(), c.GetString("user_id"))
	if err != nil {
		if errors.Is(err, usecase.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User not found"})
			return
		}
		h.writeError(c, "failed to fetch user", err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

// DeleteUser godoc
// @Summary      Delete a user
// @Description  Delete a user and every post they authored
// @Tags         users
// @Security     BearerAuth
// @Param        id path string true "User ID"
// @Success      204
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /users/{id} [delete]
func (h *AuthHandler) DeleteUser(c *gin.Context) {
	if err := h.authUseCase.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, "failed to delete user", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *AuthHandler) writeError(c *gin.Context, message string, err error) {
	if verr, ok := usecase.AsValidationError(err); ok {
		c.JSON(http.StatusBadRequest, verr.Fields)
		return
	}

	if errors.Is(err, usecase.ErrUserNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Not found."})
		return
	}

	h.logger.Error("[AUTH] %s: %v", message, err)
	c.JSON(http.StatusInternalServerError, gin.H{"message": message})
}
