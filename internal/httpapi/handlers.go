package httpapi

import (
	"net/http"
	"time"

	"voice-runtime/internal/auth"
	"voice-runtime/internal/runtime"
	"voice-runtime/pkg/logger"
	"voice-runtime/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth    *auth.Manager
	Runtime *runtime.Runtime

	// Redis backs the per-workspace in-flight turn cap. Nil disables
	// the cap (tests, local runs without Redis).
	Redis     *redis.Client
	TurnLimit int
}

// --- Auth ---

type loginRequest struct {
	UserID      string `json:"user_id"`
	WorkspaceID string `json:"workspace_id"`
	Role        string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.WorkspaceID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, workspace_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.WorkspaceID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Turns ---

type turnRequest struct {
	Text string `json:"text"`
}

// capTTL guards against leaked slots if a release is lost.
const capTTL = 2 * time.Minute

// ProcessTurn runs one caller utterance through the pipeline.
// The workspace comes from the verified token, never from the body.
func (h Handlers) ProcessTurn(c *gin.Context) {
	if h.Runtime == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "runtime not configured"})
		return
	}
	workspaceID, err := auth.WorkspaceID(c.Request.Context())
	if err != nil || workspaceID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return
	}
	callID := c.Param("call_id")
	if callID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "call_id required"})
		return
	}
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Text == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "text required"})
		return
	}

	if h.Redis != nil && h.TurnLimit > 0 {
		key := "turncap:" + workspaceID
		ok, err := utils.AcquireConcurrencyCap(c.Request.Context(), h.Redis, key, h.TurnLimit, capTTL)
		if err != nil {
			// The cap is protection, not correctness; losing Redis must
			// not take calls down with it.
			logger.FromGin(c).Warn("turn cap check failed", "err", err)
		} else if !ok {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "workspace turn limit reached"})
			return
		} else {
			defer func() {
				if err := utils.ReleaseConcurrencyCap(c.Request.Context(), h.Redis, key); err != nil {
					logger.FromGin(c).Warn("turn cap release failed", "err", err)
				}
			}()
		}
	}

	res := h.Runtime.ProcessTurn(c.Request.Context(), runtime.TurnRequest{
		CallID:      callID,
		WorkspaceID: workspaceID,
		Text:        req.Text,
	})
	c.JSON(http.StatusOK, res)
}
