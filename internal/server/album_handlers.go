package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nuagevault/nuagevault/internal/models"
)

// AlbumRequest is the body of album create and rename
type AlbumRequest struct {
	Title string `json:"title" validate:"albumtitle"`
}

// AlbumResponse represents an album in API responses
type AlbumResponse struct {
	AlbumID   string    `json:"album_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func toAlbumResponse(album *models.Album) AlbumResponse {
	return AlbumResponse{
		AlbumID:   album.ID,
		Title:     album.Title,
		CreatedAt: album.CreatedAt,
	}
}

// findAlbum loads an album owned by the session user and answers 404 otherwise
func (s *Server) findAlbum(c *gin.Context, albumID string) (*models.Album, bool) {
	session := mustSession(c)

	var album models.Album
	if err := models.FindOwned(s.db, albumID, session.UserID, &album); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "Album not found")
			return nil, false
		}
		s.internalError(c, err, "Failed to find album")
		return nil, false
	}
	return &album, true
}

// @Summary List albums
// @Tags albums
// @Security BearerAuth
// @Router /albums/ [get]
func (s *Server) listAlbums(c *gin.Context) {
	session := mustSession(c)

	var albums []models.Album
	if err := s.db.Where("user_id = ?", session.UserID).Order("created_at ASC, id ASC").Find(&albums).Error; err != nil {
		s.internalError(c, err, "Failed to list albums")
		return
	}

	resp := make([]AlbumResponse, 0, len(albums))
	for i := range albums {
		resp = append(resp, toAlbumResponse(&albums[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary Create album
// @Tags albums
// @Security BearerAuth
// @Router /albums/ [post]
func (s *Server) createAlbum(c *gin.Context) {
	session := mustSession(c)

	var req AlbumRequest
	if !s.bindJSON(c, &req) {
		return
	}

	album := &models.Album{
		UserID: session.UserID,
		Title:  strings.TrimSpace(req.Title),
	}
	if err := s.db.Create(album).Error; err != nil {
		s.internalError(c, err, "Failed to create album")
		return
	}

	s.logger.Info().Str("album_id", album.ID).Str("user_id", session.UserID).Msg("Album created")
	c.JSON(http.StatusCreated, toAlbumResponse(album))
}

// @Summary Rename album
// @Tags albums
// @Security BearerAuth
// @Router /albums/{id} [put]
func (s *Server) renameAlbum(c *gin.Context) {
	album, ok := s.findAlbum(c, c.Param("id"))
	if !ok {
		return
	}

	var req AlbumRequest
	if !s.bindJSON(c, &req) {
		return
	}

	title := strings.TrimSpace(req.Title)
	if err := s.db.Model(album).Update("title", title).Error; err != nil {
		s.internalError(c, err, "Failed to rename album")
		return
	}
	album.Title = title
	c.JSON(http.StatusOK, toAlbumResponse(album))
}

// @Summary Delete album
// @Description Deletes the album, its photos and their stored objects
// @Tags albums
// @Security BearerAuth
// @Router /albums/{id} [delete]
func (s *Server) deleteAlbum(c *gin.Context) {
	album, ok := s.findAlbum(c, c.Param("id"))
	if !ok {
		return
	}

	var photos []models.Photo
	if err := s.db.Where("album_id = ?", album.ID).Find(&photos).Error; err != nil {
		s.internalError(c, err, "Failed to list album photos")
		return
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("album_id = ?", album.ID).Delete(&models.Photo{}).Error; err != nil {
			return err
		}
		return tx.Delete(album).Error
	})
	if err != nil {
		s.internalError(c, err, "Failed to delete album")
		return
	}

	s.deleteObjects(c, photos)

	s.logger.Info().Str("album_id", album.ID).Int("photos", len(photos)).Msg("Album deleted")
	c.Status(http.StatusNoContent)
}

// deleteObjects removes stored objects after their rows are gone.
// Failures are logged: an orphaned object is preferable to a dangling row.
func (s *Server) deleteObjects(c *gin.Context, photos []models.Photo) {
	for _, photo := range photos {
		if err := s.store.Delete(c.Request.Context(), photo.ObjectKey); err != nil {
			s.logger.Warn().Err(err).Str("photo_id", photo.ID).Str("key", photo.ObjectKey).Msg("Failed to delete object")
		}
	}
}

// @Summary Album cover
// @Description Presigned URL of the most recent ready photo, null for empty albums
// @Tags albums
// @Security BearerAuth
// @Router /albums/{id}/cover [get]
func (s *Server) albumCover(c *gin.Context) {
	album, ok := s.findAlbum(c, c.Param("id"))
	if !ok {
		return
	}

	var photo models.Photo
	err := s.db.Where("album_id = ? AND status = ?", album.ID, models.PhotoStatusReady).
		Order("uploaded_at DESC, id DESC").
		First(&photo).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusOK, gin.H{"url": nil})
			return
		}
		s.internalError(c, err, "Failed to find cover photo")
		return
	}

	url, err := s.store.PresignGet(c.Request.Context(), photo.ObjectKey, readURLTTL)
	if err != nil {
		s.internalError(c, err, "Failed to presign cover")
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
