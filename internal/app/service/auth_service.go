package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ikkim/pos-backend/internal/app/model"
	"github.com/ikkim/pos-backend/internal/app/repository"
	"github.com/ikkim/pos-backend/pkg/logger"
	"github.com/ikkim/pos-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrMobileAlreadyExists = errors.New("mobile number already registered")
	ErrUsernameTaken       = errors.New("username already taken")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidRegistration = errors.New("invalid registration")
)

var mobilePattern = regexp.MustCompile(`^[6-9]\d{9}$`)

// ValidMobile reports whether mobile is a 10 digit number starting with 6-9.
func ValidMobile(mobile string) bool {
	return mobilePattern.MatchString(mobile)
}

type RegisterInput struct {
	Name     string  `json:"name"`
	Mobile   string  `json:"mobile"`
	Username *string `json:"username"`
	Password string  `json:"password"`
}

// TokenRevoker stores revoked tokens until they would have expired anyway.
type TokenRevoker interface {
	Blacklist(ctx context.Context, token string, expiry time.Duration) error
}

type AuthService interface {
	Register(input RegisterInput) (*model.User, *util.TokenPair, error)
	Login(mobile, password string) (*model.User, *util.TokenPair, error)
	GetUserByID(id uint) (*model.User, error)
	Logout(ctx context.Context, token string, expiresAt time.Time) error
}

type authService struct {
	userRepo      repository.UserRepository
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	revoker       TokenRevoker
}

func NewAuthService(
	userRepo repository.UserRepository,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
	revoker ...TokenRevoker,
) AuthService {
	var r TokenRevoker
	if len(revoker) > 0 {
		r = revoker[0]
	}
	return &authService{
		userRepo:      userRepo,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
		revoker:       r,
	}
}

func (s *authService) Register(input RegisterInput) (*model.User, *util.TokenPair, error) {
	name := strings.TrimSpace(input.Name)
	mobile := strings.TrimSpace(input.Mobile)

	logger.Info("Attempting user registration", map[string]interface{}{
		"mobile": mobile,
		"name":   name,
	})

	if name == "" || mobile == "" || input.Password == "" {
		return nil, nil, fmt.Errorf("%w: name, mobile and password are required", ErrInvalidRegistration)
	}
	if !ValidMobile(mobile) {
		return nil, nil, fmt.Errorf("%w: mobile must be 10 digits starting with 6-9", ErrInvalidRegistration)
	}
	if len(input.Password) < util.MinPasswordLength {
		return nil, nil, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRegistration, util.MinPasswordLength)
	}

	existing, err := s.userRepo.FindByMobile(mobile)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, map[string]interface{}{
			"mobile": mobile,
		})
		return nil, nil, err
	}
	if existing != nil {
		logger.Warn("Registration failed: mobile already exists", map[string]interface{}{
			"mobile": mobile,
		})
		return nil, nil, ErrMobileAlreadyExists
	}

	var username *string
	if input.Username != nil && strings.TrimSpace(*input.Username) != "" {
		u := strings.TrimSpace(*input.Username)
		taken, err := s.userRepo.FindByUsername(u)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, err
		}
		if taken != nil {
			return nil, nil, ErrUsernameTaken
		}
		username = &u
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"mobile": mobile,
		})
		return nil, nil, err
	}

	user := &model.User{
		Name:         name,
		Mobile:       mobile,
		Username:     username,
		PasswordHash: hashedPassword,
		Role:         model.RoleCashier,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User registered successfully", map[string]interface{}{
		"user_id": user.ID,
		"mobile":  mobile,
		"role":    user.Role,
	})
	return user, tokens, nil
}

func (s *authService) Login(mobile, password string) (*model.User, *util.TokenPair, error) {
	mobile = strings.TrimSpace(mobile)
	logger.Info("Login attempt", map[string]interface{}{
		"mobile": mobile,
	})

	user, err := s.userRepo.FindByMobile(mobile)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"mobile": mobile,
			})
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"mobile":  mobile,
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, tokens, nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

// Logout revokes token for the rest of its lifetime. Without a revoker it is
// a no-op and the token stays valid until it expires.
func (s *authService) Logout(ctx context.Context, token string, expiresAt time.Time) error {
	if s.revoker == nil {
		logger.Warn("Logout without token revocation: blacklist disabled")
		return nil
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	if err := s.revoker.Blacklist(ctx, token, ttl); err != nil {
		logger.Error("Failed to revoke token", err)
		return err
	}
	return nil
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Mobile,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}
