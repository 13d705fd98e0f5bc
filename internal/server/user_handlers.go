package server

import (
	"bytes"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nuagevault/nuagevault/internal/auth"
	"github.com/nuagevault/nuagevault/internal/models"
	"github.com/nuagevault/nuagevault/internal/storage"
)

const maxAvatarSize = 5 << 20

// UserResponse represents the current user
type UserResponse struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	IsVerified  bool      `json:"is_verified"`
	CreatedAt   time.Time `json:"created_at"`
}

// UpdateProfileRequest changes the fields that are present
type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=80"`
	Bio         *string `json:"bio" validate:"omitempty,max=500"`
}

// ChangePasswordRequest represents a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=128"`
}

func (s *Server) currentUser(c *gin.Context) (*models.User, bool) {
	session := mustSession(c)

	var user models.User
	if err := models.FindByID(s.db, session.UserID, &user); err != nil {
		s.internalError(c, err, "Failed to load user")
		return nil, false
	}
	return &user, true
}

func (s *Server) userResponse(c *gin.Context, user *models.User) (UserResponse, error) {
	resp := UserResponse{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		IsVerified:  user.IsVerified,
		CreatedAt:   user.CreatedAt,
	}
	if user.AvatarKey != "" {
		url, err := s.store.PresignGet(c.Request.Context(), user.AvatarKey, readURLTTL)
		if err != nil {
			return resp, err
		}
		resp.AvatarURL = url
	}
	return resp, nil
}

// @Summary Get current user
// @Tags users
// @Security BearerAuth
// @Router /users/me [get]
func (s *Server) getCurrentUser(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	resp, err := s.userResponse(c, user)
	if err != nil {
		s.internalError(c, err, "Failed to presign avatar")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Update profile
// @Tags users
// @Security BearerAuth
// @Router /users/me [put]
func (s *Server) updateCurrentUser(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if !s.bindJSON(c, &req) {
		return
	}

	updates := map[string]interface{}{}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
		updates["display_name"] = user.DisplayName
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
		updates["bio"] = user.Bio
	}
	if len(updates) > 0 {
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			s.internalError(c, err, "Failed to update profile")
			return
		}
	}

	resp, err := s.userResponse(c, user)
	if err != nil {
		s.internalError(c, err, "Failed to presign avatar")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Upload avatar
// @Description Multipart form with a "file" image part
// @Tags users
// @Security BearerAuth
// @Router /users/me/avatar [put]
func (s *Server) updateAvatar(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		detail(c, http.StatusUnprocessableEntity, "file is required")
		return
	}
	if fileHeader.Size == 0 {
		detail(c, http.StatusBadRequest, "empty file")
		return
	}
	if fileHeader.Size > maxAvatarSize {
		detail(c, http.StatusRequestEntityTooLarge, "avatar must be at most 5 MiB")
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		s.internalError(c, err, "Failed to open avatar upload")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.internalError(c, err, "Failed to read avatar upload")
		return
	}

	// Trust the bytes, not the part header
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		detail(c, http.StatusBadRequest, "file must be an image")
		return
	}

	key := storage.AvatarKey(user.ID)
	if err := s.store.Put(c.Request.Context(), key, mime.String(), bytes.NewReader(data), int64(len(data))); err != nil {
		s.internalError(c, err, "Failed to store avatar")
		return
	}
	if err := s.db.Model(user).Update("avatar_key", key).Error; err != nil {
		s.internalError(c, err, "Failed to update avatar")
		return
	}

	url, err := s.store.PresignGet(c.Request.Context(), key, readURLTTL)
	if err != nil {
		s.internalError(c, err, "Failed to presign avatar")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("content_type", mime.String()).Msg("Avatar updated")
	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}

// @Summary Change password
// @Description A wrong current password is a 400: the caller's token is still valid
// @Tags users
// @Security BearerAuth
// @Router /users/me/password [put]
func (s *Server) changePassword(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if !s.bindJSON(c, &req) {
		return
	}

	if err := auth.VerifyPassword(req.CurrentPassword, user.PasswordHash); err != nil {
		detail(c, http.StatusBadRequest, "wrong password")
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}
	if err := s.db.Model(user).Update("password_hash", passwordHash).Error; err != nil {
		s.internalError(c, err, "Failed to update password")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password changed")
	c.JSON(http.StatusOK, gin.H{"msg": "changed"})
}

// @Summary Delete account
// @Description Removes the user, their albums, photos and stored objects
// @Tags users
// @Security BearerAuth
// @Router /users/me [delete]
func (s *Server) deleteCurrentUser(c *gin.Context) {
	user, ok := s.currentUser(c)
	if !ok {
		return
	}

	var photos []models.Photo
	if err := s.db.Where("user_id = ?", user.ID).Find(&photos).Error; err != nil {
		s.internalError(c, err, "Failed to list photos")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Album{}).Error; err != nil {
			return err
		}
		return tx.Delete(user).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to delete account")
		return
	}

	s.deleteObjects(c, photos)
	if user.AvatarKey != "" {
		if err := s.store.Delete(c.Request.Context(), user.AvatarKey); err != nil {
			s.logger.Warn().Err(err).Str("key", user.AvatarKey).Msg("Failed to delete avatar")
		}
	}

	s.logger.Info().Str("user_id", user.ID).Int("photos", len(photos)).Msg("Account deleted")
	c.Status(http.StatusNoContent)
}
