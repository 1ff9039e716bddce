package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"auction-market/internal/auth"
	"auction-market/internal/domain"
	"auction-market/pkg/logger"
	"auction-market/pkg/utils"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

var (
	errNameRequired  = fmt.Errorf("%w: el nombre es requerido", domain.ErrInvalidInput)
	errInvalidEmail  = fmt.Errorf("%w: por favor incluye un email válido", domain.ErrInvalidInput)
	errShortPassword = fmt.Errorf("%w: la contraseña debe tener 6 o más caracteres", domain.ErrInvalidInput)
)

type UserService struct {
	users    domain.UserRepository
	auctions domain.AuctionLedger
	bids     domain.BidRepository
	tokens   *auth.TokenManager
	log      logger.Logger
}

func NewUserService(
	users domain.UserRepository,
	auctions domain.AuctionLedger,
	bids domain.BidRepository,
	tokens *auth.TokenManager,
	log logger.Logger,
) *UserService {
	return &UserService{
		users:    users,
		auctions: auctions,
		bids:     bids,
		tokens:   tokens,
		log:      log,
	}
}

// Register creates an account and returns a signed token for it.
func (s *UserService) Register(ctx context.Context, name, email, password string) (string, error) {
	if name == "" {
		return "", errNameRequired
	}
	if !validEmail(email) {
		return "", errInvalidEmail
	}
	if len(password) < minPasswordLength {
		return "", errShortPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           utils.GenerateID("user"),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         "user",
		CreatedAt:    time.Now(),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		return "", err
	}

	s.log.Info("User registered", "user_id", user.ID)
	return s.tokens.Generate(user.ID)
}

// Login verifies the credentials and returns a signed token. A missing user
// and a wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return "", domain.ErrInvalidCredentials
		}
		return "", err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", domain.ErrInvalidCredentials
	}

	return s.tokens.Generate(user.ID)
}

func (s *UserService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.users.ListUsers(ctx)
}

type UpdateUserInput struct {
	Name            string
	Email           string
	CurrentPassword string
	NewPassword     string
}

// UpdateUser changes the account fields; a password change requires the
// current password to match.
func (s *UserService) UpdateUser(ctx context.Context, userID string, input UpdateUserInput) (*domain.User, error) {
	if input.Name == "" {
		return nil, errNameRequired
	}
	if !validEmail(input.Email) {
		return nil, errInvalidEmail
	}

	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Name = input.Name
	user.Email = input.Email

	if input.CurrentPassword != "" && input.NewPassword != "" {
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.CurrentPassword)) != nil {
			return nil, domain.ErrInvalidCredentials
		}
		if len(input.NewPassword) < minPasswordLength {
			return nil, errShortPassword
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.users.DeleteUser(ctx, userID)
}

type UpdateProfileInput struct {
	Name     string
	Email    string
	Bio      string
	Location string
	Website  string
	Avatar   string // new avatar path, empty to keep the current one
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Email != "" {
		if !validEmail(input.Email) {
			return nil, errInvalidEmail
		}
		user.Email = input.Email
	}
	user.Profile.Bio = input.Bio
	user.Profile.Location = input.Location
	user.Profile.Website = input.Website
	if input.Avatar != "" {
		user.Profile.Avatar = input.Avatar
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) RemoveAvatar(ctx context.Context, userID string) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}

	user.Profile.Avatar = ""
	return s.users.UpdateUser(ctx, user)
}

func (s *UserService) Stats(ctx context.Context, userID string) (*domain.UserStats, error) {
	totalAuctions, err := s.auctions.CountBySeller(ctx, userID)
	if err != nil {
		return nil, err
	}

	totalBids, err := s.bids.CountByBidder(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &domain.UserStats{
		TotalAuctions: totalAuctions,
		TotalBids:     totalBids,
	}, nil
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
