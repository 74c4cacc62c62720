package handlers_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/opshare/opshare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerPayload() map[string]string {
	return map[string]string{
		"email":    "test@example.com",
		"password": "Test@1234",
		"role":     "Ops",
		"name":     "Test",
	}
}

func TestRegisterRejectsInvalidRole(t *testing.T) {
	f := newFixture(t)

	payload := registerPayload()
	payload["role"] = "Hacker"
	rec := postJSON(t, f.handler.Register, "/api/v1/auth/register", payload)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid role.", decodePayload(t, rec).Message)

	// Rejected before any writes.
	var users int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&users).Error)
	assert.Zero(t, users)
}

func TestRegisterRequiresAllFields(t *testing.T) {
	f := newFixture(t)

	for _, missing := range []string{"email", "password", "role", "name"} {
		payload := registerPayload()
		payload[missing] = ""
		rec := postJSON(t, f.handler.Register, "/api/v1/auth/register", payload)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "missing %s", missing)
		assert.Equal(t, "All fields are required.", decodePayload(t, rec).Message)
	}
}

func TestRegisterRequiresVerifiedEmail(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.handler.Register, "/api/v1/auth/register", registerPayload())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "First verify your email.", decodePayload(t, rec).Message)

	// After a completed verification the same payload succeeds and creates
	// exactly one user and one role assignment.
	f.markVerified(t, "test@example.com")

	rec = postJSON(t, f.handler.Register, "/api/v1/auth/register", registerPayload())
	assert.Equal(t, http.StatusCreated, rec.Code)

	var users, assignments int64
	require.NoError(t, f.db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, f.db.Model(&models.RoleAssignment{}).Count(&assignments).Error)
	assert.Equal(t, int64(1), users)
	assert.Equal(t, int64(1), assignments)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	f := newFixture(t)
	f.markVerified(t, "test@example.com")

	payload := registerPayload()
	payload["password"] = "weak"
	rec := postJSON(t, f.handler.Register, "/api/v1/auth/register", payload)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodePayload(t, rec).Message, "Password must contain")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.markVerified(t, "test@example.com")
	f.newUser(t, "test@example.com", models.RoleOps)

	rec := postJSON(t, f.handler.Register, "/api/v1/auth/register", registerPayload())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email already exists.", decodePayload(t, rec).Message)
}

func TestLoginSetsSessionCookie(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, "test@example.com", models.RoleClient)

	rec := postJSON(t, f.handler.Login, "/api/v1/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "Test@1234",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "token", cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, "test@example.com", models.RoleClient)

	for _, body := range []map[string]string{
		{"email": "test@example.com", "password": "Wrong@1234"},
		{"email": "nobody@example.com", "password": "Test@1234"},
	} {
		rec := postJSON(t, f.handler.Login, "/api/v1/auth/login", body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Incorrect credentials", decodePayload(t, rec).Message)
	}
}

func TestLogoutIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.newUser(t, "test@example.com", models.RoleClient)

	// Without a session: still 200, informational message.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/logout", nil)
	rec := httptest.NewRecorder()
	f.handler.Logout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User is not authenticated.", decodePayload(t, rec).Message)

	// With a session: tears it down.
	login := postJSON(t, f.handler.Login, "/api/v1/auth/login", map[string]string{
		"email":    "test@example.com",
		"password": "Test@1234",
	})
	require.Equal(t, http.StatusOK, login.Code)
	session := login.Result().Cookies()[0]

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/logout", nil)
	req.AddCookie(session)
	rec = httptest.NewRecorder()
	f.handler.Logout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logout successful.", decodePayload(t, rec).Message)

	// Cleared cookie comes back with MaxAge < 0.
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Negative(t, cookies[0].MaxAge)

	// Second call right after: back to informational.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/logout", nil)
	rec = httptest.NewRecorder()
	f.handler.Logout(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "User is not authenticated.", decodePayload(t, rec).Message)
}

func TestVerifyEmailRequiresEmail(t *testing.T) {
	f := newFixture(t)
	rec := postJSON(t, f.handler.VerifyEmail, "/api/v1/auth/verify-email", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Email is required.", decodePayload(t, rec).Message)
}

func TestVerifyEmailFullFlow(t *testing.T) {
	f := newFixture(t)

	// Request a code.
	rec := postJSON(t, f.handler.VerifyEmail, "/api/v1/auth/verify-email", map[string]string{
		"email": "test@example.com",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Verification code sent to email.", decodePayload(t, rec).Message)

	require.Len(t, f.mailer.sent, 1)
	assert.Equal(t, "test@example.com", f.mailer.sent[0].to)
	code := strings.TrimPrefix(f.mailer.sent[0].body, "Your verification code is: ")
	require.Len(t, code, 4)

	// A wrong code is reported and leaves the record pending.
	rec = postJSON(t, f.handler.VerifyEmail, "/api/v1/auth/verify-email", map[string]string{
		"email": "test@example.com",
		"code":  "0000",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Incorrect verification code.", decodePayload(t, rec).Message)

	// The right code verifies.
	rec = postJSON(t, f.handler.VerifyEmail, "/api/v1/auth/verify-email", map[string]string{
		"email": "test@example.com",
		"code":  code,
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Email verified successfully.", decodePayload(t, rec).Message)

	// And only once.
	rec = postJSON(t, f.handler.VerifyEmail, "/api/v1/auth/verify-email", map[string]string{
		"email": "test@example.com",
		"code":  code,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Verification code not found or expired.", decodePayload(t, rec).Message)

	// Registration now goes through.
	reg := postJSON(t, f.handler.Register, "/api/v1/auth/register", registerPayload())
	assert.Equal(t, http.StatusCreated, reg.Code)
}

func TestVerifyEmailMailFailureKeepsRecord(t *testing.T) {
	f := newFixture(t)
	f.mailer.fail = true

	rec := postJSON(t, f.handler.VerifyEmail, "/api/v1/auth/verify-email", map[string]string{
		"email": "test@example.com",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decodePayload(t, rec).Message, "Failed to send email")

	// Delivery failure does not roll the record back.
	var count int64
	require.NoError(t, f.db.Model(&models.EmailVerification{}).
		Where("email = ? AND is_expired = ?", "test@example.com", false).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
