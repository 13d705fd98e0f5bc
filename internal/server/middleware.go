package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/nuagevault/nuagevault/internal/auth"
	"github.com/nuagevault/nuagevault/internal/models"
)

const (
	bearerPrefix = "Bearer "
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
	ErrUserNotFound      = errors.New("user not found")
)

func setSession(c *gin.Context, sessionData *auth.SessionData) {
	c.Set("session", sessionData)
}

func GetSessionData(c *gin.Context) (*auth.SessionData, bool) {
	session, exists := c.Get("session")
	if !exists {
		return nil, false
	}

	sessionData, ok := session.(*auth.SessionData)
	return sessionData, ok
}

// mustSession returns the session set by JWTAuthMiddleware
func mustSession(c *gin.Context) *auth.SessionData {
	sessionData, ok := GetSessionData(c)
	if !ok {
		panic("handler registered without JWTAuthMiddleware")
	}
	return sessionData
}

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// detail writes the API's error body
func detail(c *gin.Context, statusCode int, message string) {
	c.AbortWithStatusJSON(statusCode, gin.H{"detail": message})
}

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	detail(c, statusCode, message)
}

// internalError logs err and answers 500
func (s *Server) internalError(c *gin.Context, err error, message string) {
	s.logger.Error().Err(err).Str("path", c.FullPath()).Msg(message)
	detail(c, http.StatusInternalServerError, "Internal server error")
}

// JWTAuthMiddleware validates bearer tokens and loads the session
func JWTAuthMiddleware(db *gorm.DB, tokens *auth.TokenManager, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Extract token from Authorization header
		authHeader := c.GetHeader("Authorization")
		token, err := extractBearerToken(authHeader)
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Not authenticated"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			respondWithError(c, log, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := tokens.ValidateToken(token)
		if err != nil {
			respondWithError(c, log, http.StatusUnauthorized, err, "Invalid or expired token")
			return
		}

		// Deleted accounts invalidate their outstanding tokens
		var user models.User
		if err := models.FindByID(db, claims.UserID, &user); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				respondWithError(c, log, http.StatusUnauthorized, ErrUserNotFound, "User not found")
				return
			}
			// Not the token's fault, keep the client's session
			log.Error().Err(err).Str("path", c.FullPath()).Msg("Failed to load session user")
			detail(c, http.StatusInternalServerError, "Internal server error")
			return
		}

		setSession(c, &auth.SessionData{
			UserID: user.ID,
			Email:  user.Email,
		})

		c.Next()
	}
}
