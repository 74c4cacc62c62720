package catalog

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/opshare/opshare/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrInvalidFileType means the filename extension is not allow-listed.
	ErrInvalidFileType = errors.New("invalid file type")
	// ErrNotFound means no active record exists with the given ID.
	ErrNotFound = errors.New("file not found")
)

// AllowedExtensions is the upload allow-list.
var AllowedExtensions = []string{".pptx", ".docx", ".xlsx"}

// ValidExtension reports whether filename carries an allow-listed extension.
func ValidExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// Catalog owns file metadata. Records are soft-deleted via the Status flag;
// every accessor here filters on it explicitly, so an admin path that needs
// a raw fetch can go straight to the DB without surprises.
type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// Create records an uploaded file. The blob itself is already stored under
// blobKey by the caller.
func (c *Catalog) Create(ownerID uint, blobKey, filename string, sizeKB int64) (*models.File, error) {
	if !ValidExtension(filename) {
		return nil, ErrInvalidFileType
	}
	rec := models.File{
		OwnerID:    &ownerID,
		Filename:   filename,
		BlobKey:    blobKey,
		SizeKB:     sizeKB,
		LastOpened: time.Now(),
		Status:     true,
	}
	if err := c.db.Create(&rec).Error; err != nil {
		return nil, fmt.Errorf("create file record: %w", err)
	}
	return &rec, nil
}

// ListActive returns all visible files, most recently opened first.
func (c *Catalog) ListActive() ([]models.File, error) {
	var files []models.File
	err := c.db.Where("status = ?", true).
		Order("last_opened DESC").
		Find(&files).Error
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// GetActive fetches a visible file by ID.
func (c *Catalog) GetActive(id uint) (*models.File, error) {
	var rec models.File
	err := c.db.Where("id = ? AND status = ?", id, true).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch file record: %w", err)
	}
	return &rec, nil
}

// TouchLastOpened stamps the record after a successful download.
func (c *Catalog) TouchLastOpened(id uint) error {
	err := c.db.Model(&models.File{}).
		Where("id = ?", id).
		Update("last_opened", time.Now()).Error
	if err != nil {
		return fmt.Errorf("touch file record: %w", err)
	}
	return nil
}
