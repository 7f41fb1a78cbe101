package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mindwell/internal/accounts"
	"mindwell/internal/auth"
	"mindwell/internal/models"
	"mindwell/internal/schedule"
	"mindwell/internal/video"
)

// Handler wires HTTP routes to the account, scheduling, and video services.
type Handler struct {
	accounts *accounts.Service
	schedule *schedule.Service
	auth     *auth.Service
	issuer   *video.Issuer
}

// NewHandler constructs a Handler instance.
func NewHandler(accountsService *accounts.Service, scheduleService *schedule.Service, authService *auth.Service, issuer *video.Issuer) *Handler {
	return &Handler{
		accounts: accountsService,
		schedule: scheduleService,
		auth:     authService,
		issuer:   issuer,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	api.POST("/users/register", h.registerUser)
	api.POST("/users/login", h.loginUser)

	authMW := h.auth.Middleware()
	authed := api.Group("")
	authed.Use(authMW)
	authed.POST("/users/logout", h.logoutUser)
	authed.GET("/therapists", h.listTherapists)

	sessionRoutes := authed.Group("/session")
	sessionRoutes.Use(h.auth.CSRFMiddleware())
	sessionRoutes.POST("/schedule", h.scheduleSession)
	sessionRoutes.GET("/my-sessions", h.mySessions)
	sessionRoutes.GET("/key", h.videoKey)
	sessionRoutes.POST("/:id/start", h.startSession)
	sessionRoutes.POST("/:id/end", h.endSession)
	sessionRoutes.POST("/:id/cancel", h.cancelSession)
	sessionRoutes.GET("/:id/token", h.videoToken)
}

func (h *Handler) authorizedUserID(c *gin.Context) (int64, bool) {
	userID, ok := auth.UserIDFromContext(c)
	if !ok || userID <= 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
		return 0, false
	}
	return userID, true
}

type registerRequest struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

func (h *Handler) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.RegisterUser(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"created_at": user.CreatedAt,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) loginUser(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	user, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	authToken, err := h.auth.IssueToken(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	csrfToken, err := h.auth.NewCSRFToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	h.setAuthCookies(c, authToken, csrfToken)
	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"role":       user.Role,
		"auth_token": authToken,
	})
}

func (h *Handler) logoutUser(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	if authToken, ok := auth.AuthTokenFromContext(c); ok {
		_ = h.auth.RevokeToken(c.Request.Context(), authToken)
	}
	h.clearAuthCookies(c)
	c.Status(http.StatusNoContent)
}

func (h *Handler) listTherapists(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	therapists, err := h.accounts.ListTherapists(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}
	if therapists == nil {
		therapists = make([]models.Party, 0)
	}
	c.JSON(http.StatusOK, gin.H{"therapists": therapists})
}

type scheduleRequest struct {
	TherapistID     int64     `json:"therapist_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationMinutes int       `json:"duration_minutes"`
}

func (h *Handler) scheduleSession(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid request body"})
		return
	}
	sess, err := h.schedule.ScheduleSession(c.Request.Context(), userID, req.TherapistID, req.StartTime, req.EndTime, req.DurationMinutes)
	if err != nil {
		h.writeSessionError(c, err, "Session cannot be scheduled")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"session": sess})
}

func (h *Handler) mySessions(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessions, err := h.schedule.MySessions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
		return
	}
	if sessions == nil {
		sessions = make([]models.Session, 0)
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *Handler) startSession(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}
	sess, err := h.schedule.StartSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.writeSessionError(c, err, "Session cannot be started")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session": sess,
		"channel": sess.ChannelName,
	})
}

func (h *Handler) endSession(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}
	sess, err := h.schedule.EndSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.writeSessionError(c, err, "Session is not ongoing")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *Handler) cancelSession(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}
	sess, err := h.schedule.CancelSession(c.Request.Context(), sessionID, userID)
	if err != nil {
		h.writeSessionError(c, err, "Session cannot be cancelled")
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": sess})
}

func (h *Handler) videoToken(c *gin.Context) {
	userID, ok := h.authorizedUserID(c)
	if !ok {
		return
	}
	sessionID, ok := h.sessionIDParam(c)
	if !ok {
		return
	}
	sess, err := h.schedule.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		h.writeSessionError(c, err, "Session is not ongoing")
		return
	}
	cred, err := h.issuer.IssueCredential(sess, userID)
	if err != nil {
		if errors.Is(err, video.ErrCredentialIssuance) {
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
			return
		}
		h.writeSessionError(c, err, "Session is not ongoing")
		return
	}
	c.JSON(http.StatusOK, cred)
}

func (h *Handler) videoKey(c *gin.Context) {
	if _, ok := h.authorizedUserID(c); !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"app_id": h.issuer.AppID()})
}

func (h *Handler) sessionIDParam(c *gin.Context) (int64, bool) {
	sessionID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sessionID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"message": "invalid session id"})
		return 0, false
	}
	return sessionID, true
}

// writeSessionError maps core scheduling errors to HTTP statuses:
// validation/conflict/transition 400, unauthorized 403, unknown session 404,
// anything else 500.
func (h *Handler) writeSessionError(c *gin.Context, err error, transitionMsg string) {
	switch {
	case errors.Is(err, schedule.ErrInvalidParty):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid therapist"})
	case errors.Is(err, schedule.ErrSchedulingConflict):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Therapist is not available at this time"})
	case errors.Is(err, schedule.ErrInvalidInterval):
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid time window"})
	case errors.Is(err, schedule.ErrInvalidStateTransition):
		c.JSON(http.StatusBadRequest, gin.H{"message": transitionMsg})
	case errors.Is(err, schedule.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"message": "Not authorized"})
	case errors.Is(err, schedule.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": "Session not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}

func (h *Handler) setAuthCookies(c *gin.Context, authToken, csrfToken string) {
	ttl := int(h.auth.TokenTTL().Seconds())
	if ttl <= 0 {
		ttl = 3600
	}
	secure := gin.Mode() == gin.ReleaseMode
	setCookie(c, &http.Cookie{
		Name:     h.auth.AuthCookieName(),
		Value:    authToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	setCookie(c, &http.Cookie{
		Name:     h.auth.CSRFCookieName(),
		Value:    csrfToken,
		MaxAge:   ttl,
		Path:     "/",
		Secure:   secure,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearAuthCookies(c *gin.Context) {
	for _, name := range []string{h.auth.AuthCookieName(), h.auth.CSRFCookieName()} {
		setCookie(c, &http.Cookie{
			Name:     name,
			Value:    "",
			MaxAge:   -1,
			Path:     "/",
			Secure:   gin.Mode() == gin.ReleaseMode,
			HttpOnly: name == h.auth.AuthCookieName(),
			SameSite: http.SameSiteStrictMode,
		})
	}
}

func setCookie(c *gin.Context, ck *http.Cookie) {
	if ck == nil {
		return
	}
	http.SetCookie(c.Writer, ck)
}
