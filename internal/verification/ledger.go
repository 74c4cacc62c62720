package verification

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/opshare/opshare/internal/models"
	"gorm.io/gorm"
)

// CodeTTL is how long an issued code stays redeemable.
const CodeTTL = 120 * time.Second

var (
	// ErrNotFound means no non-expired record exists for the email.
	ErrNotFound = errors.New("verification code not found")
	// ErrMismatch means the submitted code does not match the active record.
	// The record stays pending so the caller may retry.
	ErrMismatch = errors.New("incorrect verification code")
	// ErrExpired means the active record outlived its TTL. Detection expires
	// the record permanently.
	ErrExpired = errors.New("verification code expired")
)

// Ledger owns the EmailVerification lifecycle. Records accumulate as
// history and are never deleted; each transitions at most once from pending
// to verified or expired. The "active" record for an email is the
// most-recently-created pending one.
type Ledger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db, now: time.Now}
}

// RequestCode issues a fresh 4-digit code for email and returns it for
// delivery. Prior pending records for the same email are left untouched.
func (l *Ledger) RequestCode(email string) (string, error) {
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	rec := models.EmailVerification{
		Email: email,
		Code:  code,
	}
	if err := l.db.Create(&rec).Error; err != nil {
		return "", fmt.Errorf("create verification record: %w", err)
	}
	return code, nil
}

// CheckCode resolves the active record for email and attempts its one-shot
// transition. A wrong code leaves the record pending. A correct code moves
// it to verified, or to expired when the TTL has elapsed; either way the
// record is terminal afterwards.
//
// The transition is a conditional update on is_expired, so when two calls
// race exactly one wins; the loser observes no active record.
func (l *Ledger) CheckCode(email, code string) error {
	var rec models.EmailVerification
	err := l.db.Where("email = ? AND is_expired = ?", email, false).
		Order("id DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("fetch verification record: %w", err)
	}

	if rec.Code != code {
		return ErrMismatch
	}

	verified := l.now().Sub(rec.CreatedAt) <= CodeTTL

	res := l.db.Model(&models.EmailVerification{}).
		Where("id = ? AND is_expired = ?", rec.ID, false).
		Updates(map[string]any{"is_expired": true, "is_verified": verified})
	if res.Error != nil {
		return fmt.Errorf("transition verification record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost the race: the record already reached a terminal state.
		return ErrNotFound
	}

	if !verified {
		return ErrExpired
	}
	return nil
}

// HasVerifiedEmail reports whether any record for email ever completed
// verification. Any historical success satisfies registration, regardless
// of recency.
func (l *Ledger) HasVerifiedEmail(email string) (bool, error) {
	var count int64
	err := l.db.Model(&models.EmailVerification{}).
		Where("email = ? AND is_verified = ? AND is_expired = ?", email, true, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("count verified records: %w", err)
	}
	return count > 0, nil
}

// generateCode draws a uniform 4-digit numeric code in [1000, 9999].
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+1000), nil
}
