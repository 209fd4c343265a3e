package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"olh/internal/domain"
	"olh/internal/server/auth"
	"olh/internal/server/database"

	"github.com/google/uuid"
)

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// Profile is a user with their activity counters.
type Profile struct {
	User  *domain.User `json:"user"`
	Stats ProfileStats `json:"stats"`
}

type ProfileStats struct {
	UploadedCount  int64 `json:"uploadedCount"`
	FavoritesCount int64 `json:"favoritesCount"`
}

// UserService handles accounts: registration, login and administration.
type UserService struct {
	repo   Repository
	tokens *auth.TokenIssuer
}

// NewUserService creates a new user service.
func NewUserService(repo Repository, tokens *auth.TokenIssuer) *UserService {
	return &UserService{repo: repo, tokens: tokens}
}

// Register creates a regular member account and signs them in.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*AuthResult, error) {
	user, err := s.CreateAccount(ctx, username, email, password, domain.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.signIn(user)
}

// CreateAccount validates and stores a new account with the given role.
func (s *UserService) CreateAccount(ctx context.Context, username, email, password string, role domain.Role) (*domain.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return nil, validationf("please provide all fields")
	}
	if !strings.Contains(email, "@") {
		return nil, validationf("invalid email address")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, validationf("%v", err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	slog.Info("account created", "user_id", user.ID, "role", role)
	return user, nil
}

// Login checks credentials and issues a token. Unknown email and wrong
// password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationf("please provide email and password")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := auth.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.signIn(user)
}

func (s *UserService) signIn(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, User: user}, nil
}

// Me returns the caller's account.
func (s *UserService) Me(ctx context.Context, p domain.Principal) (*domain.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return s.get(ctx, p.UserID)
}

// Profile returns the caller's account with upload and favorite counts.
func (s *UserService) Profile(ctx context.Context, p domain.Principal) (*Profile, error) {
	user, err := s.Me(ctx, p)
	if err != nil {
		return nil, err
	}

	uploaded, err := s.repo.CountMaterials(ctx, database.MaterialFilter{UploadedBy: p.UserID})
	if err != nil {
		return nil, err
	}
	favorites, err := s.repo.CountMaterials(ctx, database.MaterialFilter{FavoritedBy: p.UserID})
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:  user,
		Stats: ProfileStats{UploadedCount: uploaded, FavoritesCount: favorites},
	}, nil
}

// List returns every account, newest first. Moderators only.
func (s *UserService) List(ctx context.Context, p domain.Principal) ([]*domain.User, error) {
	if err := requireModerator(p); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx)
}

// UpdateRole changes another account's role. Moderators only. The new role
// takes effect at that user's next login.
func (s *UserService) UpdateRole(ctx context.Context, p domain.Principal, id, role string) (*domain.User, error) {
	if err := requireModerator(p); err != nil {
		return nil, err
	}
	r, err := domain.ParseRole(strings.TrimSpace(role))
	if err != nil {
		return nil, validationf("%v", err)
	}

	if err := s.repo.UpdateUserRole(ctx, id, r); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	slog.Info("role updated", "user_id", id, "role", r, "moderator_id", p.UserID)
	return s.get(ctx, id)
}

// Delete removes an account. Moderators only. Content the user created is kept.
func (s *UserService) Delete(ctx context.Context, p domain.Principal, id string) error {
	if err := requireModerator(p); err != nil {
		return err
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	slog.Info("user deleted", "user_id", id, "moderator_id", p.UserID)
	return nil
}

func (s *UserService) get(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
