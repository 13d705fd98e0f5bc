package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nuagevault/nuagevault/internal/storage"
)

// objectKey returns the key of an /objects/*key request
func objectKey(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("key"), "/")
}

// putObject accepts the bytes of a presigned disk upload. The signature is
// the only credential: Authorization headers are ignored.
func (s *Server) putObject(c *gin.Context) {
	key := objectKey(c)
	claims, err := s.tokens.VerifyObject(c.Query("sig"), key, storage.OpPut)
	if err != nil {
		respondWithError(c, s.logger, http.StatusForbidden, err, "invalid or expired signature")
		return
	}

	contentType := c.ContentType()
	if claims.ContentType != "" && contentType != claims.ContentType {
		detail(c, http.StatusForbidden, "content type does not match signature")
		return
	}

	if err := s.disk.Put(c.Request.Context(), key, contentType, c.Request.Body, c.Request.ContentLength); err != nil {
		s.internalError(c, err, "Failed to store object")
		return
	}
	c.Status(http.StatusOK)
}

// getObject serves a presigned disk download
func (s *Server) getObject(c *gin.Context) {
	key := objectKey(c)
	if _, err := s.tokens.VerifyObject(c.Query("sig"), key, storage.OpGet); err != nil {
		respondWithError(c, s.logger, http.StatusForbidden, err, "invalid or expired signature")
		return
	}

	rc, info, err := s.disk.Open(key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			detail(c, http.StatusNotFound, "object not found")
			return
		}
		s.internalError(c, err, "Failed to open object")
		return
	}
	defer rc.Close()

	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Length", strconv.FormatInt(info.Size, 10))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Failed to stream object")
	}
}
