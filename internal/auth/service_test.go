package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/bakehouse-backend/internal/users"
	pkgAuth "github.com/angelmondragon/bakehouse-backend/pkg/auth"
	"github.com/angelmondragon/bakehouse-backend/pkg/config"
	"github.com/angelmondragon/bakehouse-backend/pkg/db/models"
	"github.com/angelmondragon/bakehouse-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/bakehouse-backend/pkg/errors"
	"github.com/angelmondragon/bakehouse-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "bakehouse",
	ExpirationMinutes: 30,
}

func TestServiceLoginAdminRoleClaim(t *testing.T) {
	password := "oven-secret"
	user := &models.User{
		ID:           uuid.New(),
		Email:        "ops@bakehouse.example",
		PasswordHash: mustHashPassword(t, password),
		Name:         "Ops",
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	svc, sessions, err := buildTestService(user)
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "  OPS@bakehouse.example ", Password: password})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, claims.Role)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
	assert.Equal(t, claims.ID, sessions.accessID, "refresh session is keyed by the token jti")
	assert.Equal(t, user.ID, sessions.userID)
	require.NotNil(t, resp.User.LastLoginAt)
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	password := "right-password"
	active := &models.User{
		ID:           uuid.New(),
		Email:        "asha@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}

	svc, _, err := buildTestService(active)
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), LoginRequest{Email: active.Email, Password: "wrong-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Login(context.Background(), LoginRequest{Email: "", Password: password})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	inactive := *active
	inactive.IsActive = false
	svc, _, err = buildTestService(&inactive)
	require.NoError(t, err)
	_, err = svc.Login(context.Background(), LoginRequest{Email: active.Email, Password: password})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	missing, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{err: gorm.ErrRecordNotFound},
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)
	_, err = missing.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: password})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	broken, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{err: errors.New("connection reset")},
		SessionManager: &stubSessionManager{},
		JWTConfig:      testJWT,
	})
	require.NoError(t, err)
	_, err = broken.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: password})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInternal))
}

func TestRegisterCreatesCustomer(t *testing.T) {
	dsn := "file:auth_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.User{}))

	svc, err := NewRegisterService(users.NewRepository(conn), config.PasswordConfig{})
	require.NoError(t, err)

	created, err := svc.Register(context.Background(), RegisterRequest{
		Name:     "Asha",
		Email:    "Asha@Example.com",
		Password: "croissant-42",
	})
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", created.Email)
	assert.Equal(t, enums.UserRoleCustomer, created.Role)

	var stored models.User
	require.NoError(t, conn.First(&stored, "id = ?", created.ID).Error)
	ok, err := security.VerifyPassword("croissant-42", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = svc.Register(context.Background(), RegisterRequest{Name: "Asha", Email: "asha@example.com", Password: "croissant-42"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.Register(context.Background(), RegisterRequest{Name: "Ravi", Email: "ravi@example.com", Password: "short"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func buildTestService(user *models.User) (Service, *stubSessionManager, error) {
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{user: user},
		SessionManager: sessionMgr,
		JWTConfig:      testJWT,
	})
	return svc, sessionMgr, err
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

type stubSessionManager struct {
	refreshToken string
	accessID     string
	userID       uuid.UUID
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	s.accessID = accessID
	s.userID = userID
	return s.refreshToken, nil
}
