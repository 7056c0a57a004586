package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/Dan-MapMAchina/XATSimplified/internal/auth"
	"github.com/Dan-MapMAchina/XATSimplified/internal/db"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=1,max=150"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type TokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := auth.ValidatePassword(req.Password); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": gin.H{"password": "Password must be at least 8 characters and not entirely numeric"},
		})
		return
	}

	tenant, err := h.repo.GetTenantByName(h.config.Tenant.Name)
	if err != nil {
		h.internalError(c, "Failed to resolve tenant", err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(c, "Failed to hash password", err)
		return
	}

	user := &db.User{
		ID:        uuid.New().String(),
		TenantID:  tenant.ID,
		Username:  req.Username,
		Email:     req.Email,
		CreatedAt: time.Now(),
	}

	if err := h.repo.CreateUser(user, string(hashedPassword)); err != nil {
		var dup *db.DuplicateError
		if errors.As(err, &dup) {
			fields := gin.H{}
			for _, f := range dup.Fields {
				fields[f] = "Already in use"
			}
			c.JSON(http.StatusBadRequest, gin.H{"errors": fields})
			return
		}
		h.internalError(c, "Failed to create user", err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// ObtainToken exchanges credentials for an access/refresh pair.
func (h *Handler) ObtainToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenant, err := h.repo.GetTenantByName(h.config.Tenant.Name)
	if err != nil {
		h.internalError(c, "Failed to resolve tenant", err)
		return
	}

	user, hashedPassword, err := h.repo.GetUserByUsername(tenant.ID, req.Username)
	if err != nil {
		// Uniform response for unknown user and bad password
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(req.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	access, refresh, err := h.tokens.IssuePair(user.ID, user.TenantID)
	if err != nil {
		h.internalError(c, "Failed to generate tokens", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Access: access, Refresh: refresh})
}

func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	claims, err := h.tokens.ParseRefresh(c.Request.Context(), req.Refresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	access, refresh, err := h.tokens.IssuePair(claims.Subject, claims.TenantID)
	if err != nil {
		h.internalError(c, "Failed to generate tokens", err)
		return
	}

	c.JSON(http.StatusOK, TokenResponse{Access: access, Refresh: refresh})
}

func (h *Handler) VerifyToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.tokens.ParseAccess(req.Token); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

func (h *Handler) CurrentUser(c *gin.Context) {
	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	user, err := h.repo.GetUser(tenantID, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		h.internalError(c, "Failed to get user", err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// ChangePassword requires the current password to match; the stored hash is
// untouched on any failure.
func (h *Handler) ChangePassword(c *gin.Context) {
	var req struct {
		OldPassword string `json:"old_password" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tenantID := c.GetString("tenant_id")
	userID := c.GetString("user_id")

	currentHash, err := h.repo.GetUserPasswordHash(tenantID, userID)
	if err != nil {
		h.internalError(c, "Failed to load password hash", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(currentHash), []byte(req.OldPassword)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"errors": gin.H{"new_password": "Password must be at least 8 characters and not entirely numeric"},
		})
		return
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		h.internalError(c, "Failed to hash password", err)
		return
	}

	if err := h.repo.UpdateUserPassword(tenantID, userID, string(newHash)); err != nil {
		h.internalError(c, "Failed to update password", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// Logout blacklists the presented refresh token for the rest of its
// lifetime.
func (h *Handler) Logout(c *gin.Context) {
	var req struct {
		Refresh string `json:"refresh" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokens.RevokeRefresh(c.Request.Context(), req.Refresh); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refresh token"})
			return
		}
		h.internalError(c, "Failed to revoke token", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}
