package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"auction-market/internal/auth"
	"auction-market/internal/domain"
	"auction-market/pkg/logger"

	"github.com/stretchr/testify/require"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*domain.User)}
}

func (r *fakeUserRepo) CreateUser(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.users {
		if existing.Email == user.Email {
			return domain.ErrEmailTaken
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (r *fakeUserRepo) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *fakeUserRepo) ListUsers(ctx context.Context) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var users []*domain.User
	for _, user := range r.users {
		copied := *user
		users = append(users, &copied)
	}
	return users, nil
}

func (r *fakeUserRepo) UpdateUser(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *fakeUserRepo) DeleteUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	delete(r.users, userID)
	return nil
}

func newTestUserService(t *testing.T) (*UserService, *fakeUserRepo, *auth.TokenManager) {
	t.Helper()

	tokens, err := auth.NewTokenManager("test-secret", "auction-market-test", time.Hour)
	require.NoError(t, err)

	repo := newFakeUserRepo()
	service := NewUserService(repo, newFakeLedger(), &fakeBidRepo{}, tokens, logger.NewNop())
	return service, repo, tokens
}

func TestRegister_Validation(t *testing.T) {
	service, _, _ := newTestUserService(t)

	tests := []struct {
		name     string
		userName string
		email    string
		password string
		wantErr  error
	}{
		{"missing_name", "", "ana@example.com", "secret1", errNameRequired},
		{"bad_email", "Ana", "not-an-email", "secret1", errInvalidEmail},
		{"short_password", "Ana", "ana@example.com", "12345", errShortPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.userName, tt.email, tt.password)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegister_And_Login(t *testing.T) {
	service, _, tokens := newTestUserService(t)

	token, err := service.Register(context.Background(), "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)

	userID, err := tokens.Validate(token)
	require.NoError(t, err)
	require.NotEmpty(t, userID)

	// Duplicate email
	_, err = service.Register(context.Background(), "Ana2", "ana@example.com", "secret2")
	require.ErrorIs(t, err, domain.ErrEmailTaken)

	// Login happy path returns a token for the same user.
	loginToken, err := service.Login(context.Background(), "ana@example.com", "secret1")
	require.NoError(t, err)
	loginUserID, err := tokens.Validate(loginToken)
	require.NoError(t, err)
	require.Equal(t, userID, loginUserID)

	// Wrong password and unknown account look identical.
	_, err = service.Login(context.Background(), "ana@example.com", "wrong")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	_, err = service.Login(context.Background(), "nobody@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUpdateUser_PasswordChange(t *testing.T) {
	service, _, tokens := newTestUserService(t)

	token, err := service.Register(context.Background(), "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	userID, err := tokens.Validate(token)
	require.NoError(t, err)

	// Wrong current password is rejected.
	_, err = service.UpdateUser(context.Background(), userID, UpdateUserInput{
		Name: "Ana", Email: "ana@example.com",
		CurrentPassword: "wrong", NewPassword: "newsecret",
	})
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// Correct current password rotates the credential.
	_, err = service.UpdateUser(context.Background(), userID, UpdateUserInput{
		Name: "Ana María", Email: "ana@example.com",
		CurrentPassword: "secret1", NewPassword: "newsecret",
	})
	require.NoError(t, err)

	_, err = service.Login(context.Background(), "ana@example.com", "newsecret")
	require.NoError(t, err)
	_, err = service.Login(context.Background(), "ana@example.com", "secret1")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestUpdateProfile_And_Avatar(t *testing.T) {
	service, repo, tokens := newTestUserService(t)

	token, err := service.Register(context.Background(), "Ana", "ana@example.com", "secret1")
	require.NoError(t, err)
	userID, err := tokens.Validate(token)
	require.NoError(t, err)

	user, err := service.UpdateProfile(context.Background(), userID, UpdateProfileInput{
		Bio:      "Coleccionista de arte",
		Location: "Madrid",
		Website:  "https://ana.example.com",
		Avatar:   "/uploads/avatar-1.png",
	})
	require.NoError(t, err)
	require.Equal(t, "Madrid", user.Profile.Location)
	require.Equal(t, "/uploads/avatar-1.png", user.Profile.Avatar)

	require.NoError(t, service.RemoveAvatar(context.Background(), userID))

	stored, err := repo.GetUser(context.Background(), userID)
	require.NoError(t, err)
	require.Empty(t, stored.Profile.Avatar)
	require.Equal(t, "Coleccionista de arte", stored.Profile.Bio)
}
