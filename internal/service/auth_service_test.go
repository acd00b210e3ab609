package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/guardian-portal-api/internal/dto"
	"github.com/noah-isme/guardian-portal-api/internal/models"
	appErrors "github.com/noah-isme/guardian-portal-api/pkg/errors"
)

type fakeStaffRepo struct {
	user       *models.StaffUser
	lastLogins []time.Time
}

func (f *fakeStaffRepo) FindStaffByEmail(_ context.Context, email string) (*models.StaffUser, error) {
	if f.user == nil || f.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return f.user, nil
}

func (f *fakeStaffRepo) UpdateStaffLastLogin(_ context.Context, _ string, ts time.Time) error {
	f.lastLogins = append(f.lastLogins, ts)
	return nil
}

func staffFixture(t *testing.T, password string) *models.StaffUser {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.StaffUser{
		ID:           "staff-1",
		SchoolID:     "school-1",
		Email:        "staff@example.com",
		PasswordHash: string(hash),
		FullName:     "Staff One",
		Role:         "admin",
		Active:       true,
	}
}

func newTestAuthService(repo authStaffRepository) *AuthService {
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "guardian-portal-api",
	})
}

func TestAuthServiceLoginIssuesSchoolScopedToken(t *testing.T) {
	repo := &fakeStaffRepo{user: staffFixture(t, "correct-horse-battery")}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", res.TokenType)
	assert.Equal(t, "school-1", res.SchoolID)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Len(t, repo.lastLogins, 1)

	claims, err := svc.ValidateToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", claims.UserID)
	assert.Equal(t, "school-1", claims.SchoolID)
	assert.Equal(t, "admin", claims.Role)
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc := newTestAuthService(&fakeStaffRepo{user: staffFixture(t, "correct-horse-battery")})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginUnknownEmail(t *testing.T) {
	svc := newTestAuthService(&fakeStaffRepo{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "nobody@example.com", Password: "irrelevant-password"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCredentials)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	user := staffFixture(t, "correct-horse-battery")
	user.Active = false
	svc := newTestAuthService(&fakeStaffRepo{user: user})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "staff@example.com", Password: "correct-horse-battery"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc := newTestAuthService(&fakeStaffRepo{})

	_, err := svc.Login(context.Background(), dto.LoginRequest{Email: "not-an-email", Password: "short"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc := newTestAuthService(&fakeStaffRepo{})

	_, err := svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestAuthServiceValidateTokenRejectsWrongSecret(t *testing.T) {
	repo := &fakeStaffRepo{user: staffFixture(t, "correct-horse-battery")}
	issuer := newTestAuthService(repo)
	res, err := issuer.Login(context.Background(), dto.LoginRequest{Email: "staff@example.com", Password: "correct-horse-battery"})
	require.NoError(t, err)

	verifier := NewAuthService(repo, nil, zap.NewNop(), AuthConfig{Secret: "other-secret", Expiration: time.Hour})
	_, err = verifier.ValidateToken(res.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
