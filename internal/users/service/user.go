package service

import (
	"context"
	"errors"

	userserrors "staybook/internal/users/errors"
	"staybook/internal/users/repository"
	"staybook/internal/users/validator"
	"staybook/pkg/auth"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"staybook/pkg/model"
	"staybook/pkg/sanitizer"
	"staybook/pkg/validation"
)

type UserService interface {
	Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error)
	Profile(ctx context.Context, userID string) (*model.User, error)
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
	DummyHash() string
}

type TokenIssuer interface {
	Issue(userID, email string) (string, error)
	Parse(token string) (*auth.Claims, error)
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	hasher    PasswordHasher
	tokens    TokenIssuer
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	hasher PasswordHasher,
	tokens TokenIssuer,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		hasher:    hasher,
		tokens:    tokens,
		cfg:       cfg,
	}
}

func (s *userService) Register(ctx context.Context, req *model.RegisterRequest) (*model.User, error) {
	if err := s.sanitizeRegister(req); err != nil {
		return nil, validation.ToAppError("Invalid registration input", err)
	}
	if err := s.validator.ValidateRegister(req); err != nil {
		s.cfg.Log.Warn("Registration validation failed", "email", req.Email, "error", err)
		return nil, validation.ToAppError("Invalid registration input", err)
	}

	existing, err := s.repo.FindByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, apperrors.DuplicateResource("User already exists")
	}
	if err != nil && !errors.Is(err, userserrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to check existing user", "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to register user", err)
	}

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, userserrors.ErrDuplicateEmail) {
			return nil, apperrors.DuplicateResource("User already exists")
		}
		s.cfg.Log.Error("Failed to create user", "error", err)
		return nil, apperrors.Internal("Failed to register user", err)
	}

	s.cfg.Log.Info("User registered successfully", "id", user.ID)
	return user, nil
}

func (s *userService) Login(ctx context.Context, req *model.LoginRequest) (*model.AuthResponse, error) {
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, apperrors.InvalidCredentials()
	}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) {
			_ = s.hasher.Compare(s.hasher.DummyHash(), req.Password)
			return nil, apperrors.InvalidCredentials()
		}
		s.cfg.Log.Error("Failed to load user for login", "error", err)
		return nil, apperrors.Internal("Failed to log in", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.InvalidCredentials()
		}
		return nil, apperrors.Internal("Failed to log in", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	s.cfg.Log.Info("User logged in", "id", user.ID)
	return &model.AuthResponse{User: user, Token: token}, nil
}

func (s *userService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}
	return user, nil
}

// Authenticate resolves a bearer token to its user. A token whose user no
// longer exists is rejected like any other invalid token.
func (s *userService) Authenticate(ctx context.Context, token string) (*model.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.Unauthorized("Invalid or expired token")
	}

	user, err := s.repo.FindByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, userserrors.ErrNotFound) || errors.Is(err, userserrors.ErrInvalidID) {
			return nil, apperrors.Unauthorized("Invalid or expired token")
		}
		return nil, apperrors.Internal("Failed to authenticate", err)
	}
	return user, nil
}

func (s *userService) sanitizeRegister(req *model.RegisterRequest) error {
	req.Name = sanitizer.NormalizeName(req.Name)
	req.Email = sanitizer.NormalizeEmail(req.Email)
	if raw := req.Phone; raw != "" {
		req.Phone = sanitizer.NormalizePhone(raw)
		if req.Phone == "" {
			return validation.Field("phone", "phone is not a valid phone number")
		}
	}
	return nil
}
