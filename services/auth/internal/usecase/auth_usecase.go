package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode"

	"tell-all/pkg/jwt"
	"tell-all/pkg/logger"
	"tell-all/services/auth/internal/entity"
	"tell-all/services/auth/internal/repo/persistent"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	msgRequired    = "This field is required."
	minPasswordLen = 8
	maxUsernameLen = 150
	maxNameLen     = 150
)

type SignUpInput struct {
	Username  string
	Email     string
	Password  string
	Password2 string
	FirstName string
	LastName  string
	IsAdmin   bool
}

type AuthUseCase interface {
	// SignUp creates an account. IsAdmin is honoured only when grantAdmin is set,
	// which callers derive from an authenticated admin session.
	SignUp(ctx context.Context, input SignUpInput, grantAdmin bool) (*entity.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	GetUser(ctx context.Context, userID string) (*entity.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

type authUseCase struct {
	userRepo   persistent.UserRepository
	jwtService *jwt.Service
	logger     *logger.Logger
}

func NewAuthUseCase(userRepo persistent.UserRepository, jwtService *jwt.Service, logger *logger.Logger) AuthUseCase {
	return &authUseCase{
		userRepo:   userRepo,
		jwtService: jwtService,
		logger:     logger,
	}
}

func (uc *authUseCase) SignUp(ctx context.Context, input SignUpInput, grantAdmin bool) (*entity.User, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)

	if err := uc.validateSignUp(ctx, input); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		uc.logger.Error("Failed to hash password: %v", err)
		return nil, fmt.Errorf("failed to process registration: %w", err)
	}

	user := &entity.User{
		Email:     input.Email,
		Username:  input.Username,
		Password:  string(hashedPassword),
		FirstName: input.FirstName,
		LastName:  input.LastName,
		IsAdmin:   input.IsAdmin && grantAdmin,
		IsActive:  true,
	}
	if input.IsAdmin && !grantAdmin {
		uc.logger.Warn("[SIGN-UP] is_admin requested by non-admin caller for %s, ignoring", input.Username)
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		uc.logger.Error("Failed to create user: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	uc.logger.Info("[SIGN-UP] created user %s (admin=%t)", user.Username, user.IsAdmin)
	user.Password = ""
	return user, nil
}

func (uc *authUseCase) validateSignUp(ctx context.Context, input SignUpInput) error {
	verr := &ValidationError{}

	switch {
	case input.Username == "":
		verr.add("username", msgRequired)
	case len(input.Username) > maxUsernameLen:
		verr.add("username", fmt.Sprintf("Ensure this field has no more than %d characters.", maxUsernameLen))
	}

	if input.Email == "" {
		verr.add("email", msgRequired)
	} else if _, err := mail.ParseAddress(input.Email); err != nil {
		verr.add("email", "Enter a valid email address.")
	}

	if input.FirstName == "" {
		verr.add("first_name", msgRequired)
	} else if len(input.FirstName) > maxNameLen {
		verr.add("first_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLen))
	}
	if input.LastName == "" {
		verr.add("last_name", msgRequired)
	} else if len(input.LastName) > maxNameLen {
		verr.add("last_name", fmt.Sprintf("Ensure this field has no more than %d characters.", maxNameLen))
	}

	if input.Password == "" {
		verr.add("password", msgRequired)
	} else if msg := checkPassword(input.Password); msg != "" {
		verr.add("password", msg)
	}
	if input.Password2 == "" {
		verr.add("password2", msgRequired)
	} else if input.Password != input.Password2 {
		verr.add("password", "Password fields does not match.")
	}

	if !verr.has("username") {
		taken, err := uc.exists(ctx, func(ctx context.Context) (*entity.User, error) {
			return uc.userRepo.GetByUsername(ctx, input.Username)
		})
		if err != nil {
			return err
		}
		if taken {
			verr.add("username", "A user with that username already exists.")
		}
	}
	if !verr.has("email") {
		taken, err := uc.exists(ctx, func(ctx context.Context) (*entity.User, error) {
			return uc.userRepo.GetByEmail(ctx, input.Email)
		})
		if err != nil {
			return err
		}
		if taken {
			verr.add("email", "This field must be unique.")
		}
	}

	return verr.orNil()
}

func (uc *authUseCase) exists(ctx context.Context, lookup func(context.Context) (*entity.User, error)) (bool, error) {
	_, err := lookup(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check user: %w", err)
}

// checkPassword returns the first rule the password breaks, or "".
func checkPassword(password string) string {
	if len(password) < minPasswordLen {
		return fmt.Sprintf("This password is too short. It must contain at least %d characters.", minPasswordLen)
	}
	for _, r := range password {
		if !unicode.IsDigit(r) {
			return ""
		}
	}
	return "This password is entirely numeric."
}

func (uc *authUseCase) Login(ctx context.Context, username, password string) (string, error) {
	user, err := uc.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}
	if !user.IsActive {
		return "", ErrInvalidCredentials
	}

	token, err := uc.jwtService.GenerateToken(user.ID, user.Role())
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return token, nil
}

func (uc *authUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	user.Password = ""
	return user, nil
}

// DeleteUser removes the account and, with it, every post the user authored.
func (uc *authUseCase) DeleteUser(ctx context.Context, userID string) error {
	if err := uc.userRepo.Delete(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		uc.logger.Error("Failed to delete user %s: %v", userID, err)
		return fmt.Errorf("failed to delete user: %w", err)
	}
	uc.logger.Info("[USERS] deleted user %s and authored posts", userID)
	return nil
}
