package server

import (
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nuagevault/nuagevault/internal/models"
)

// StatsResponse summarizes the caller's usage
type StatsResponse struct {
	Albums    int64     `json:"albums"`
	Photos    int64     `json:"photos"`
	StorageMB float64   `json:"storage_mb"`
	Timestamp time.Time `json:"ts"`
}

// @Summary Usage stats
// @Description Album count, ready photo count and stored MiB
// @Tags stats
// @Security BearerAuth
// @Router /stats/ [get]
func (s *Server) getStats(c *gin.Context) {
	session := mustSession(c)

	var resp StatsResponse
	if err := s.db.Model(&models.Album{}).Where("user_id = ?", session.UserID).Count(&resp.Albums).Error; err != nil {
		s.internalError(c, err, "Failed to count albums")
		return
	}

	var usage struct {
		Photos int64
		Bytes  int64
	}
	err := s.db.Model(&models.Photo{}).
		Select("COUNT(*) AS photos, COALESCE(SUM(size), 0) AS bytes").
		Where("user_id = ? AND status = ?", session.UserID, models.PhotoStatusReady).
		Scan(&usage).Error
	if err != nil {
		s.internalError(c, err, "Failed to sum photo sizes")
		return
	}

	resp.Photos = usage.Photos
	resp.StorageMB = math.Round(float64(usage.Bytes)/(1<<20)*100) / 100
	resp.Timestamp = time.Now().UTC()
	c.JSON(http.StatusOK, resp)
}
