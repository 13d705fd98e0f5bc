package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/nuagevault/nuagevault/internal/auth"
	"github.com/nuagevault/nuagevault/internal/mailer"
	"github.com/nuagevault/nuagevault/internal/models"
)

const (
	verifyTokenTTL = 24 * time.Hour
	resetTokenTTL  = time.Hour
)

// CredentialsRequest is the body of /register and /login
type CredentialsRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// LoginRequest accepts any non-empty password so that old accounts can sign in
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterResponse represents a signup response
type RegisterResponse struct {
	UserID      string `json:"user_id"`
	EmailSent   bool   `json:"email_sent"`
	NeedVerify  bool   `json:"need_verify"`
	AccessToken string `json:"access_token,omitempty"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// EmailRequest is the body of resend-verification and forgot-password
type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyRequest confirms an email address
type VerifyRequest struct {
	Email string `json:"email" validate:"required,email"`
	Token string `json:"token" validate:"required"`
}

// ResetRequest sets a new password with a reset token
type ResetRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=128"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// findUserByEmail returns gorm.ErrRecordNotFound for unknown addresses
func (s *Server) findUserByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// @Summary Register
// @Description Create an account. Sends a verification email unless users are auto-verified.
// @Tags auth
// @Router /register [post]
func (s *Server) register(c *gin.Context) {
	var req CredentialsRequest
	if !s.bindJSON(c, &req) {
		return
	}

	email := normalizeEmail(req.Email)
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		s.internalError(c, err, "Failed to count users")
		return
	}
	if count > 0 {
		detail(c, http.StatusBadRequest, "email already registered")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	user := &models.User{
		Email:        email,
		PasswordHash: passwordHash,
		IsVerified:   s.config.Auth.AutoVerifyUsers,
	}

	var verifyToken string
	if !user.IsVerified {
		token, hash, err := auth.NewOneTimeToken()
		if err != nil {
			s.internalError(c, err, "Failed to generate verification token")
			return
		}
		expires := time.Now().Add(verifyTokenTTL)
		user.VerifyTokenHash = hash
		user.VerifyExpiresAt = &expires
		verifyToken = token
	}

	if err := s.db.Create(user).Error; err != nil {
		s.internalError(c, err, "Failed to create user")
		return
	}

	resp := RegisterResponse{
		UserID:     user.ID,
		NeedVerify: !user.IsVerified,
	}

	if user.IsVerified {
		token, err := s.tokens.GenerateToken(user.ID, user.Email)
		if err != nil {
			s.internalError(c, err, "Failed to generate token")
			return
		}
		resp.AccessToken = token
	} else {
		resp.EmailSent = s.sendMail(c, mailer.VerificationMessage(s.config.Server.PublicUIURL, user.Email, verifyToken))
	}

	s.logger.Info().Str("user_id", user.ID).Bool("need_verify", resp.NeedVerify).Msg("User registered")
	c.JSON(http.StatusOK, resp)
}

// sendMail delivers msg and reports success. Failures are logged, not returned.
func (s *Server) sendMail(c *gin.Context, msg mailer.Message) bool {
	if err := s.mailer.Send(c.Request.Context(), msg); err != nil {
		s.logger.Error().Err(err).Str("to", msg.To).Msg("Failed to send email")
		return false
	}
	return true
}

// @Summary Login
// @Description Authenticate with email and password
// @Tags auth
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /login [post]
func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusUnauthorized, "bad credentials")
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		detail(c, http.StatusUnauthorized, "bad credentials")
		return
	}

	if !user.IsVerified {
		detail(c, http.StatusForbidden, "email not verified")
		return
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("User logged in")
	c.JSON(http.StatusOK, LoginResponse{AccessToken: token, TokenType: "bearer"})
}

// @Summary Verify email
// @Tags auth
// @Router /auth/verify [post]
func (s *Server) verifyEmail(c *gin.Context) {
	var req VerifyRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusNotFound, "User not found")
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	// Verifying twice succeeds
	if user.IsVerified {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	if user.VerifyExpiresAt == nil || time.Now().After(*user.VerifyExpiresAt) {
		detail(c, http.StatusBadRequest, "Verification token expired")
		return
	}
	if !auth.MatchOneTimeToken(req.Token, user.VerifyTokenHash) {
		detail(c, http.StatusBadRequest, "Invalid token")
		return
	}

	err = s.db.Model(user).Updates(map[string]interface{}{
		"is_verified":       true,
		"verify_token_hash": "",
		"verify_expires_at": nil,
	}).Error
	if err != nil {
		s.internalError(c, err, "Failed to verify user")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Email verified")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// @Summary Resend verification email
// @Description Always answers ok so that account existence is not revealed
// @Tags auth
// @Router /auth/resend-verification [post]
func (s *Server) resendVerification(c *gin.Context) {
	var req EmailRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Msg("Failed to find user")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}
	if user.IsVerified {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	token, ok := s.issueOneTimeToken(c, user, "verify_token_hash", "verify_expires_at", verifyTokenTTL)
	if !ok {
		return
	}
	s.sendMail(c, mailer.VerificationMessage(s.config.Server.PublicUIURL, user.Email, token))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// @Summary Forgot password
// @Description Always answers ok so that account existence is not revealed
// @Tags auth
// @Router /auth/forgot-password [post]
func (s *Server) forgotPassword(c *gin.Context) {
	var req EmailRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error().Err(err).Msg("Failed to find user")
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	token, ok := s.issueOneTimeToken(c, user, "reset_token_hash", "reset_expires_at", resetTokenTTL)
	if !ok {
		return
	}
	s.sendMail(c, mailer.PasswordResetMessage(s.config.Server.PublicUIURL, user.Email, token))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// issueOneTimeToken stores a fresh token hash in the given columns
func (s *Server) issueOneTimeToken(c *gin.Context, user *models.User, hashColumn, expiresColumn string, ttl time.Duration) (string, bool) {
	token, hash, err := auth.NewOneTimeToken()
	if err != nil {
		s.internalError(c, err, "Failed to generate token")
		return "", false
	}

	err = s.db.Model(user).Updates(map[string]interface{}{
		hashColumn:    hash,
		expiresColumn: time.Now().Add(ttl),
	}).Error
	if err != nil {
		s.internalError(c, err, "Failed to store token")
		return "", false
	}
	return token, true
}

// @Summary Reset password
// @Tags auth
// @Router /auth/reset-password [post]
func (s *Server) resetPassword(c *gin.Context) {
	var req ResetRequest
	if !s.bindJSON(c, &req) {
		return
	}

	user, err := s.findUserByEmail(req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			detail(c, http.StatusBadRequest, "Invalid token")
			return
		}
		s.internalError(c, err, "Failed to find user")
		return
	}

	if user.ResetExpiresAt == nil || time.Now().After(*user.ResetExpiresAt) {
		detail(c, http.StatusBadRequest, "Token expired")
		return
	}
	if !auth.MatchOneTimeToken(req.Token, user.ResetTokenHash) {
		detail(c, http.StatusBadRequest, "Invalid token")
		return
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		s.internalError(c, err, "Failed to hash password")
		return
	}

	// A reset link also proves ownership of the address
	err = s.db.Model(user).Updates(map[string]interface{}{
		"password_hash":    passwordHash,
		"is_verified":      true,
		"reset_token_hash": "",
		"reset_expires_at": nil,
	}).Error
	if err != nil {
		s.internalError(c, err, "Failed to update password")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Msg("Password reset")
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
