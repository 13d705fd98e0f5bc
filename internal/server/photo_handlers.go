package server

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nuagevault/nuagevault/internal/models"
	"github.com/nuagevault/nuagevault/internal/storage"
	"github.com/nuagevault/nuagevault/internal/tasks"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	readURLTTL      = time.Hour
)

// UploadURLRequest asks for a presigned upload URL
type UploadURLRequest struct {
	AlbumID     string `json:"album_id" validate:"required"`
	Filename    string `json:"filename" validate:"required,max=255"`
	ContentType string `json:"content_type" validate:"required"`
}

// UploadURLResponse is the upload ticket
type UploadURLResponse struct {
	PutURL           string `json:"put_url"`
	PhotoID          string `json:"photo_id"`
	FinalizeRequired bool   `json:"finalize_required"`
}

// PhotoResponse represents a photo in API responses
type PhotoResponse struct {
	PhotoID     string     `json:"photo_id"`
	AlbumID     string     `json:"album_id"`
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Size        int64      `json:"size"`
	Status      string     `json:"status"`
	UploadedAt  *time.Time `json:"uploaded_at,omitempty"`
	URL         string     `json:"url,omitempty"`
}

// PhotoPageResponse is one page of an album listing
type PhotoPageResponse struct {
	Items   []PhotoResponse `json:"items"`
	NextKey *string         `json:"next_key"`
}

func toPhotoResponse(photo *models.Photo, url string) PhotoResponse {
	return PhotoResponse{
		PhotoID:     photo.ID,
		AlbumID:     photo.AlbumID,
		Filename:    photo.Filename,
		ContentType: photo.ContentType,
		Size:        photo.Size,
		Status:      photo.Status,
		UploadedAt:  photo.UploadedAt,
		URL:         url,
	}
}

// findPhoto loads a photo owned by the session user and answers 404 otherwise
func (s *Server) findPhoto(c *gin.Context) (*models.Photo, bool) {
	session := mustSession(c)

	var photo models.Photo
	if err := models.FindOwned(s.db, c.Param("id"), session.UserID, &photo); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "Photo not found")
			return nil, false
		}
		s.internalError(c, err, "Failed to find photo")
		return nil, false
	}
	return &photo, true
}

// @Summary List photos
// @Description Ready photos of an album, newest first, with presigned GET URLs.
// @Description next_key is set only when more photos follow.
// @Tags photos
// @Security BearerAuth
// @Param album_id query string true "Album ID"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param last_key query string false "next_key of the previous page"
// @Router /photos/ [get]
func (s *Server) listPhotos(c *gin.Context) {
	albumID := c.Query("album_id")
	if albumID == "" {
		detail(c, http.StatusUnprocessableEntity, "album_id is required")
		return
	}

	limit := defaultPageSize
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPageSize {
			detail(c, http.StatusUnprocessableEntity, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	album, ok := s.findAlbum(c, albumID)
	if !ok {
		return
	}

	query := s.db.Where("album_id = ? AND status = ?", album.ID, models.PhotoStatusReady).Session(&gorm.Session{})

	if lastKey := c.Query("last_key"); lastKey != "" {
		var cursor models.Photo
		err := query.Where("id = ?", lastKey).First(&cursor).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				detail(c, http.StatusBadRequest, "invalid last_key")
				return
			}
			s.internalError(c, err, "Failed to load cursor photo")
			return
		}
		query = query.Where("(uploaded_at < ? OR (uploaded_at = ? AND id < ?))",
			*cursor.UploadedAt, *cursor.UploadedAt, cursor.ID)
	}

	// One extra row tells whether another page follows
	var photos []models.Photo
	if err := query.Order("uploaded_at DESC, id DESC").Limit(limit + 1).Find(&photos).Error; err != nil {
		s.internalError(c, err, "Failed to list photos")
		return
	}

	resp := PhotoPageResponse{Items: make([]PhotoResponse, 0, limit)}
	if len(photos) > limit {
		photos = photos[:limit]
		next := photos[limit-1].ID
		resp.NextKey = &next
	}

	for i := range photos {
		url, err := s.store.PresignGet(c.Request.Context(), photos[i].ObjectKey, readURLTTL)
		if err != nil {
			s.internalError(c, err, "Failed to presign photo")
			return
		}
		resp.Items = append(resp.Items, toPhotoResponse(&photos[i], url))
	}

	c.JSON(http.StatusOK, resp)
}

// @Summary Request upload URL
// @Description Issues a presigned PUT URL for a new photo. The album must belong
// @Description to the caller. When finalize_required is true the photo stays
// @Description pending until POST /photos/{id}/finalize.
// @Tags photos
// @Security BearerAuth
// @Router /photos/upload-url [post]
func (s *Server) createUploadURL(c *gin.Context) {
	session := mustSession(c)

	var req UploadURLRequest
	if !s.bindJSON(c, &req) {
		return
	}

	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	if !strings.HasPrefix(contentType, "image/") {
		detail(c, http.StatusBadRequest, "file must be an image")
		return
	}

	// The album is a body field here, so a miss is a bad request
	var album models.Album
	if err := models.FindOwned(s.db, req.AlbumID, session.UserID, &album); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusBadRequest, "album not found")
			return
		}
		s.internalError(c, err, "Failed to find album")
		return
	}

	photoID := models.NewID()
	photo := &models.Photo{
		BaseModel:   models.BaseModel{ID: photoID},
		AlbumID:     album.ID,
		UserID:      session.UserID,
		Filename:    path.Base(strings.ReplaceAll(req.Filename, "\\", "/")),
		ContentType: contentType,
		ObjectKey:   storage.PhotoKey(session.UserID, photoID),
		Status:      models.PhotoStatusPending,
	}

	finalizeRequired := s.config.Storage.FinalizeRequired
	if !finalizeRequired {
		// Listed right away; reconciliation removes it if no bytes arrive
		now := time.Now().UTC()
		photo.Status = models.PhotoStatusReady
		photo.UploadedAt = &now
	}

	if err := s.db.Create(photo).Error; err != nil {
		s.internalError(c, err, "Failed to create photo")
		return
	}

	putURL, err := s.store.PresignPut(c.Request.Context(), photo.ObjectKey, contentType, s.config.Storage.PresignTTL)
	if err != nil {
		s.internalError(c, err, "Failed to presign upload")
		return
	}

	s.scheduleReconcile(photo.ID)
	if m := metricsFrom(c); m != nil {
		m.uploadTickets.Inc()
	}

	s.logger.Info().
		Str("photo_id", photo.ID).
		Str("album_id", album.ID).
		Bool("finalize_required", finalizeRequired).
		Msg("Upload URL issued")

	c.JSON(http.StatusCreated, UploadURLResponse{
		PutURL:           putURL,
		PhotoID:          photo.ID,
		FinalizeRequired: finalizeRequired,
	})
}

// scheduleReconcile enqueues the check that runs once the upload URL expired
func (s *Server) scheduleReconcile(photoID string) {
	if s.enqueuer == nil {
		return
	}

	task, err := tasks.NewReconcileUploadTask(photoID)
	if err != nil {
		s.logger.Error().Err(err).Str("photo_id", photoID).Msg("Failed to create reconcile task")
		return
	}
	_, err = s.enqueuer.Enqueue(task, tasks.ReconcileUploadOptions(s.config.Storage.PresignTTL)...)
	if err != nil {
		s.logger.Warn().Err(err).Str("photo_id", photoID).Msg("Failed to enqueue reconcile task")
	}
}

// @Summary Finalize upload
// @Description Confirms that the bytes reached storage and makes the photo visible
// @Tags photos
// @Security BearerAuth
// @Router /photos/{id}/finalize [post]
func (s *Server) finalizePhoto(c *gin.Context) {
	photo, ok := s.findPhoto(c)
	if !ok {
		return
	}

	m := metricsFrom(c)
	outcome := "confirmed"
	defer func() {
		if m != nil {
			m.finalizedTotal.WithLabelValues(outcome).Inc()
		}
	}()

	info, err := s.store.Stat(c.Request.Context(), photo.ObjectKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			outcome = "missing"
			detail(c, http.StatusConflict, "upload not found in storage")
			return
		}
		outcome = "error"
		s.internalError(c, err, "Failed to stat object")
		return
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{
		"size":   info.Size,
		"status": models.PhotoStatusReady,
	}
	if photo.Status != models.PhotoStatusReady || photo.UploadedAt == nil {
		updates["uploaded_at"] = now
		photo.UploadedAt = &now
	} else {
		outcome = "repeat"
	}
	if err := s.db.Model(photo).Updates(updates).Error; err != nil {
		outcome = "error"
		s.internalError(c, err, "Failed to finalize photo")
		return
	}
	photo.Size = info.Size
	photo.Status = models.PhotoStatusReady

	s.logger.Info().Str("photo_id", photo.ID).Int64("size", info.Size).Msg("Upload finalized")
	c.JSON(http.StatusOK, toPhotoResponse(photo, ""))
}

// @Summary Delete photo
// @Tags photos
// @Security BearerAuth
// @Router /photos/{id} [delete]
func (s *Server) deletePhoto(c *gin.Context) {
	photo, ok := s.findPhoto(c)
	if !ok {
		return
	}

	if err := s.db.Delete(photo).Error; err != nil {
		s.internalError(c, err, "Failed to delete photo")
		return
	}
	s.deleteObjects(c, []models.Photo{*photo})

	s.logger.Info().Str("photo_id", photo.ID).Msg("Photo deleted")
	c.Status(http.StatusNoContent)
}
