package models

import (
	"time"

	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
)

// BaseModel provides common fields and auto-generated ULID for all models
type BaseModel struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(26)"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = NewID()
	}
	return nil
}

// NewID returns a new ULID string. Used when an ID is needed before insert.
func NewID() string {
	return ulid.Make().String()
}

// Config represents deployment-wide settings
// This is a singleton model (only one row should exist)
type Config struct {
	BaseModel
	JWTSecret string `json:"-" gorm:"type:varchar(64);not null"` // Generated on first start unless JWT_SECRET is set
}

// User represents an account
type User struct {
	BaseModel
	Email        string `json:"email" gorm:"unique;not null"`
	PasswordHash string `json:"-" gorm:"not null"`
	DisplayName  string `json:"display_name"`
	Bio          string `json:"bio"`
	AvatarKey    string `json:"-"` // Object key of the avatar image, empty if none
	IsVerified   bool   `json:"is_verified" gorm:"not null;default:false"`

	// One-time tokens are stored hashed
	VerifyTokenHash string     `json:"-"`
	VerifyExpiresAt *time.Time `json:"-"`
	ResetTokenHash  string     `json:"-"`
	ResetExpiresAt  *time.Time `json:"-"`

	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// Album groups photos of one user
type Album struct {
	BaseModel
	UserID string `json:"user_id" gorm:"not null;index"`
	Title  string `json:"title" gorm:"not null"`

	// Relationships
	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// Photo status values
const (
	PhotoStatusPending = "pending" // Ticket issued, upload not confirmed
	PhotoStatusReady   = "ready"
)

// Photo is an object in storage plus its metadata
type Photo struct {
	BaseModel
	AlbumID     string     `json:"album_id" gorm:"not null;index"`
	UserID      string     `json:"user_id" gorm:"not null;index"`
	Filename    string     `json:"filename" gorm:"not null"`
	ContentType string     `json:"content_type" gorm:"not null"`
	ObjectKey   string     `json:"-" gorm:"not null;unique"`
	Size        int64      `json:"size" gorm:"not null;default:0"`
	Status      string     `json:"status" gorm:"not null;default:pending;index"`
	UploadedAt  *time.Time `json:"uploaded_at" gorm:"index"` // Set when the upload is confirmed

	// Relationships
	Album *Album `json:"-" gorm:"foreignKey:AlbumID;constraint:OnDelete:CASCADE"`
}

// AutoMigrate runs database migrations for all models
func AutoMigrate(db *gorm.DB) error {
	// Collect all models
	models := []interface{}{
		&Config{}, &User{}, &Album{}, &Photo{},
	}

	return db.AutoMigrate(models...)
}

// FindByID safely finds a record by string ID
func FindByID[T any](db *gorm.DB, id string, model *T) error {
	return db.Where("id = ?", id).First(model).Error
}

// FindOwned finds a record by ID that belongs to userID
func FindOwned[T any](db *gorm.DB, id, userID string, model *T) error {
	return db.Where("id = ? AND user_id = ?", id, userID).First(model).Error
}
