package models

import (
	"time"
)

type File struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	OwnerID    *uint     `json:"ownerId" gorm:"index"` // nullable: survives user deletion
	Filename   string    `json:"filename" gorm:"not null"`
	BlobKey    string    `json:"-" gorm:"not null"` // key in the blob store
	SizeKB     int64     `json:"fileSizeKb" gorm:"not null"`
	LastOpened time.Time `json:"lastOpened"`
	Status     bool      `json:"status" gorm:"default:true"` // false = soft-deleted
	CreatedAt  time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt  time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}
