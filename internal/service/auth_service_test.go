package service

import (
	"context"
	"testing"
	"time"

	"techatlas/internal/middleware"
	"techatlas/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-for-hs256"

type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByEmailFn    func(context.Context, string) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, *models.User) error
	updateRoleFn    func(context.Context, uint, models.Role) error
	touchLoginFn    func(context.Context, uint, time.Time) error
	deleteFn        func(context.Context, uint) error
	listFn          func(context.Context, models.Role, int, int) ([]models.User, error)
	countFn         func(context.Context) (int64, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id uint, role models.Role) error {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) TouchLogin(ctx context.Context, id uint, at time.Time) error {
	return s.touchLoginFn(ctx, id, at)
}
func (s *userRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *userRepoStub) List(ctx context.Context, role models.Role, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, role, limit, offset)
}
func (s *userRepoStub) Count(ctx context.Context) (int64, error) {
	return s.countFn(ctx)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn:       func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByEmailFn:    func(context.Context, string) (*models.User, error) { return nil, nil },
		getByUsernameFn: func(context.Context, string) (*models.User, error) { return nil, nil },
		createFn:        func(context.Context, *models.User) error { return nil },
		updateFn:        func(context.Context, *models.User) error { return nil },
		updateRoleFn:    func(context.Context, uint, models.Role) error { return nil },
		touchLoginFn:    func(context.Context, uint, time.Time) error { return nil },
		deleteFn:        func(context.Context, uint) error { return nil },
		listFn:          func(context.Context, models.Role, int, int) ([]models.User, error) { return nil, nil },
		countFn:         func(context.Context) (int64, error) { return 0, nil },
	}
}

func TestAuthService_SignupValidation(t *testing.T) {
	t.Parallel()
	svc := NewAuthService(noopUserRepo(), nil, testSecret)
	ctx := context.Background()

	tests := []struct {
		name string
		in   SignupInput
	}{
		{"missing fields", SignupInput{Username: "nakato"}},
		{"bad username", SignupInput{Username: "-x", Email: "n@example.com", Password: "Str0ng!Passw0rd"}},
		{"bad email", SignupInput{Username: "nakato", Email: "nope", Password: "Str0ng!Passw0rd"}},
		{"weak password", SignupInput{Username: "nakato", Email: "n@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Signup(ctx, tt.in)
			assertValidationError(t, err)
		})
	}
}

func TestAuthService_SignupConflict(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.getByEmailFn = func(_ context.Context, email string) (*models.User, error) {
		return &models.User{ID: 3, Email: email}, nil
	}
	svc := NewAuthService(repo, nil, testSecret)

	_, err := svc.Signup(context.Background(), SignupInput{Username: "nakato", Email: "N@Example.com", Password: "Str0ng!Passw0rd"})
	assertAppError(t, err, models.CodeConflict)
}

func TestAuthService_SignupAndLogin(t *testing.T) {
	t.Parallel()
	var stored *models.User
	repo := noopUserRepo()
	repo.createFn = func(_ context.Context, u *models.User) error {
		u.ID = 11
		stored = u
		return nil
	}
	svc := NewAuthService(repo, nil, testSecret)
	ctx := context.Background()

	session, err := svc.Signup(ctx, SignupInput{Username: "nakato", Email: "Nakato@Example.com", Password: "Str0ng!Passw0rd"})
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "nakato@example.com", stored.Email)
	assert.Equal(t, models.RoleUser, stored.Role)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("Str0ng!Passw0rd")))

	claims, err := middleware.ParseToken(testSecret, session.Token)
	require.NoError(t, err)
	assert.Equal(t, uint(11), claims.UserID)
	assert.NotEmpty(t, claims.JTI)

	repo.getByEmailFn = func(context.Context, string) (*models.User, error) { return stored, nil }

	_, err = svc.Login(ctx, "nakato@example.com", "wrong-password")
	assertAppError(t, err, models.CodeUnauthenticated)

	session, err = svc.Login(ctx, " NAKATO@example.com ", "Str0ng!Passw0rd")
	require.NoError(t, err)
	assert.Equal(t, uint(11), session.User.ID)
	assert.NotNil(t, session.User.LastLoginAt)
}

func TestAuthService_LoginWithoutPassword(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repo.getByEmailFn = func(context.Context, string) (*models.User, error) {
		return &models.User{ID: 4, Email: "sso@example.com"}, nil
	}
	svc := NewAuthService(repo, nil, testSecret)

	_, err := svc.Login(context.Background(), "sso@example.com", "")
	assertAppError(t, err, models.CodeUnauthenticated)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	svc := NewAuthService(noopUserRepo(), rdb, testSecret)
	ctx := context.Background()

	_, claims, err := middleware.IssueToken(testSecret, 5, time.Hour)
	require.NoError(t, err)

	revoked, err := svc.Revoked(ctx, claims.JTI)
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, svc.Logout(ctx, claims))
	revoked, err = svc.Revoked(ctx, claims.JTI)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.True(t, mr.TTL("blacklist:"+claims.JTI) > 0)

	noRedis := NewAuthService(noopUserRepo(), nil, testSecret)
	assertAppError(t, noRedis.Logout(ctx, claims), models.CodeConfiguration)
	assertValidationError(t, svc.Logout(ctx, &middleware.Claims{UserID: 5}))
}
