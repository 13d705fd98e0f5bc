package api

import "time"

// User is the authenticated account
type User struct {
	UserID      string `json:"user_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	IsVerified  bool   `json:"is_verified"`
}

type Album struct {
	AlbumID   string    `json:"album_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	CoverURL  string    `json:"cover_url,omitempty"`
}

// Photo status values
const (
	PhotoStatusPending = "pending"
	PhotoStatusReady   = "ready"
)

type Photo struct {
	PhotoID     string     `json:"photo_id"`
	AlbumID     string     `json:"album_id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	Status      string     `json:"status"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`
	URL         string     `json:"url,omitempty"`
}

// PhotoPage is one page of an album listing. NextKey is empty on the last page.
type PhotoPage struct {
	Items   []Photo `json:"items"`
	NextKey string  `json:"next_key,omitempty"`
}

// UploadTicket is the server's answer to an upload request. PhotoID is set
// whenever FinalizeRequired is.
type UploadTicket struct {
	PutURL           string `json:"put_url"`
	PhotoID          string `json:"photo_id,omitempty"`
	FinalizeRequired bool   `json:"finalize_required,omitempty"`
}

type UploadTicketRequest struct {
	AlbumID     string `json:"album_id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

type Stats struct {
	Albums    int64     `json:"albums"`
	Photos    int64     `json:"photos"`
	StorageMB float64   `json:"storage_mb"`
	Timestamp time.Time `json:"ts"`
}

type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Credentials is the body of /login and /register
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	UserID      string `json:"user_id"`
	EmailSent   bool   `json:"email_sent"`
	NeedVerify  bool   `json:"need_verify"`
	AccessToken string `json:"access_token,omitempty"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type ProfileUpdate struct {
	DisplayName *string `json:"display_name,omitempty"`
	Bio         *string `json:"bio,omitempty"`
}

type PasswordChange struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type okResponse struct {
	OK bool `json:"ok"`
}
