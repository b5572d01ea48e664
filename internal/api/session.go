package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crewlog/internal/auth"
	"crewlog/internal/roster"
	"crewlog/internal/session"
	"crewlog/pkg/logger"
)

const esCLDate = "02-01-2006"

type sessionView struct {
	RUT  string   `json:"rut"`
	Name string   `json:"name"`
	Role string   `json:"role"`
	Tabs []string `json:"tabs"`
}

func viewOf(s session.Session) sessionView {
	return sessionView{RUT: s.Identifier, Name: s.DisplayName, Role: s.RoleLabel(), Tabs: roster.VisibleTabs(s.Role)}
}

type loginRequest struct {
	RUT      string `json:"rut"`
	Secret   string `json:"clave"`
	DeviceID string `json:"device_id" binding:"required"`
}

func (s *server) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.Directory.Authenticate(req.RUT, req.Secret)
	switch {
	case errors.Is(err, roster.ErrMissingCredentials):
		s.Metrics.Logins.WithLabelValues("missing").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ingresa tu RUT y clave."})
		return
	case errors.Is(err, roster.ErrInvalidCredentials):
		s.Metrics.Logins.WithLabelValues("rejected").Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "RUT o clave incorrectos."})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	log := s.log.With(zap.String(logger.FieldRUT, user.RUT), zap.String(logger.FieldDeviceID, req.DeviceID))
	st := s.Sessions.Scope(req.DeviceID)
	if err := s.resetForm(c, st); err != nil {
		log.Error("form reset failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	sess, err := session.NewManager(st).SignIn(c.Request.Context(), user)
	if err != nil {
		log.Error("sign-in failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	tokens, err := s.Tokens.Issue(user.RUT, user.Role.String(), req.DeviceID)
	if err != nil {
		log.Error("token issue failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}

	s.Metrics.Logins.WithLabelValues("ok").Inc()
	log.Info("signed in", zap.String(logger.FieldRole, user.Role.String()))
	c.JSON(http.StatusOK, gin.H{"session": viewOf(sess), "tokens": tokens})
}

func (s *server) refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims, err := s.Tokens.Parse(req.RefreshToken, auth.KindRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	sess, ok, err := session.NewManager(s.Sessions.Scope(claims.DeviceID)).Load(c.Request.Context())
	if err != nil {
		s.log.Error("session lookup failed", zap.String(logger.FieldDeviceID, claims.DeviceID), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	if !ok || sess.Identifier != claims.Subject {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "session ended"})
		return
	}
	tokens, err := s.Tokens.Issue(sess.Identifier, sess.RoleLabel(), claims.DeviceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// resetForm drops any form state left on the device by a previous user.
func (s *server) resetForm(c *gin.Context, st session.Store) error {
	if s.Forms == nil {
		return nil
	}
	return s.Forms.Reset(c.Request.Context(), st)
}

func (s *server) logout(c *gin.Context) {
	st, _ := auth.StoreFrom(c)
	if err := s.resetForm(c, st); err != nil {
		s.log.Error("form reset failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	if err := session.NewManager(st).SignOut(c.Request.Context()); err != nil {
		s.log.Error("sign-out failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) currentSession(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	c.JSON(http.StatusOK, gin.H{"session": viewOf(sess)})
}

// home is the landing tab: greeting, today's date and the deadline reminder.
func (s *server) home(c *gin.Context) {
	sess, _ := auth.SessionFrom(c)
	now := s.Now().In(s.Location)
	rem := s.Clock.Compute(sess.RoleLabel(), now)
	if rem.IsAlert {
		s.Metrics.ReminderAlerts.WithLabelValues(rem.Level.String()).Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"session":  viewOf(sess),
		"date":     now.Format(esCLDate),
		"reminder": rem,
	})
}
