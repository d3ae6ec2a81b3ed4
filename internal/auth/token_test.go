package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "rnp-recruitment/pkg/domain-errors"
)

func newTestService() *TokenService {
	return NewTokenService("test-signing-key", 8*time.Hour, time.Hour)
}

func Test_IssueApplicantSession(t *testing.T) {
	svc := newTestService()
	token, err := svc.IssueApplicantSession("applicant-1", "Jean Mugisha")
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, time.Minute)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "applicant-1", claims.Subject)
	assert.Equal(t, "Jean Mugisha", claims.Name)
	assert.Equal(t, RoleApplicant, claims.Role)
}

func Test_IssueAdmin(t *testing.T) {
	svc := newTestService()
	token, err := svc.IssueAdmin("admin-1", "Commissioner", RoleSuperAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), token.ExpiresAt, time.Minute)

	claims, err := svc.ValidateToken(token.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleSuperAdmin, claims.Role)

	_, err = svc.IssueAdmin("admin-1", "Commissioner", RoleApplicant)
	assert.Error(t, err)
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := newTestService().ValidateToken("invalid-token-string")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	token, err := newTestService().IssueApplicantSession("applicant-1", "Jean Mugisha")
	require.NoError(t, err)

	other := NewTokenService("another-key", time.Hour, time.Hour)
	_, err = other.ValidateToken(token.AccessToken)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	svc := newTestService()
	issuedAt := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issuedAt }
	token, err := svc.IssueApplicantSession("applicant-1", "Jean Mugisha")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token.AccessToken)
	require.Error(t, err)
	var de *dErrors.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "token has expired", de.Message)
}

func TestRoleAllows(t *testing.T) {
	assert.True(t, RoleSuperAdmin.Allows(RoleRecruiter, RoleSuperAdmin))
	assert.False(t, RoleApplicant.Allows(RoleRecruiter, RoleSuperAdmin))
}
