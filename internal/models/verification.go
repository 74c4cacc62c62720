package models

import (
	"time"
)

// EmailVerification tracks one issued verification code. Records are never
// deleted; each one transitions at most once, to either verified or expired,
// and both of those states are terminal.
type EmailVerification struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Email      string    `json:"email" gorm:"size:100;index;not null"`
	Code       string    `json:"-" gorm:"size:4;not null"`
	IsVerified bool      `json:"isVerified" gorm:"default:false"`
	IsExpired  bool      `json:"isExpired" gorm:"default:false"`
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
