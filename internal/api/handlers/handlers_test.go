package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/opshare/opshare/internal/api/handlers"
	"github.com/opshare/opshare/internal/api/middleware"
	"github.com/opshare/opshare/internal/catalog"
	"github.com/opshare/opshare/internal/identity"
	"github.com/opshare/opshare/internal/models"
	"github.com/opshare/opshare/internal/repositories"
	"github.com/opshare/opshare/internal/roles"
	"github.com/opshare/opshare/internal/token"
	"github.com/opshare/opshare/internal/utils"
	"github.com/opshare/opshare/internal/verification"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// fakeMailer records deliveries instead of talking SMTP.
type fakeMailer struct {
	sent []sentMail
	fail bool
}

type sentMail struct {
	to, subject, body string
}

func (f *fakeMailer) Send(to, subject, body string) error {
	if f.fail {
		return errors.New("connection refused")
	}
	f.sent = append(f.sent, sentMail{to, subject, body})
	return nil
}

type fixture struct {
	handler *handlers.Handler
	db      *gorm.DB
	mailer  *fakeMailer
	blobs   repositories.BlobStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, repositories.Migrate(db))

	blobs, err := repositories.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key := make([]byte, 32)
	tokens, err := token.NewService(key)
	require.NoError(t, err)

	mailer := &fakeMailer{}
	h := &handlers.Handler{
		Identity:    identity.NewStore(db),
		Ledger:      verification.NewLedger(db),
		Roles:       roles.NewRegistry(db),
		Tokens:      tokens,
		Catalog:     catalog.NewCatalog(db),
		Mailer:      mailer,
		Blobs:       blobs,
		Log:         zap.NewNop(),
		JWTSecret:   "test-secret",
		Environment: "test",
	}
	return &fixture{handler: h, db: db, mailer: mailer, blobs: blobs}
}

// newUser registers a user directly through the stores, bypassing HTTP.
func (f *fixture) newUser(t *testing.T, email, role string) *models.User {
	t.Helper()
	user, err := f.handler.Identity.CreateUser(email, "Test@1234", "Test")
	require.NoError(t, err)
	require.NoError(t, f.handler.Roles.Assign(user.ID, role))
	return user
}

// markVerified plants a completed verification record for email.
func (f *fixture) markVerified(t *testing.T, email string) {
	t.Helper()
	rec := models.EmailVerification{
		Email:      email,
		Code:       "1234",
		IsVerified: true,
		IsExpired:  true,
	}
	require.NoError(t, f.db.Create(&rec).Error)
}

func postJSON(t *testing.T, fn http.HandlerFunc, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

// asUser stamps the request context the way the auth middleware would.
func asUser(r *http.Request, userID uint) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), middleware.UserIDKey, userID))
}

func decodePayload(t *testing.T, rec *httptest.ResponseRecorder) utils.Payload {
	t.Helper()
	var p utils.Payload
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
	return p
}
