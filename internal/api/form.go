package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crewlog/internal/attendance"
	"crewlog/internal/auth"
	"crewlog/internal/session"
	"crewlog/pkg/logger"
)

func driverOf(s session.Session) attendance.Driver {
	return attendance.Driver{RUT: s.Identifier, Name: s.DisplayName, Role: s.RoleLabel()}
}

func formContext(c *gin.Context) (session.Session, session.Store) {
	sess, _ := auth.SessionFrom(c)
	st, _ := auth.StoreFrom(c)
	return sess, st
}

func (s *server) openForm(c *gin.Context) {
	sess, st := formContext(c)
	draft, err := s.Forms.Open(c.Request.Context(), st)
	if err != nil {
		s.formFailure(c, "open", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"driver":    driverOf(sess),
		"timestamp": draft.CapturedAt.In(s.Location).Format(attendance.TimestampLayout),
		"crew":      draft.Crew,
	})
}

func (s *server) toggleCrew(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "crew id must be a number"})
		return
	}
	_, st := formContext(c)
	draft, err := s.Forms.Toggle(c.Request.Context(), st, id)
	if err != nil {
		if errors.Is(err, attendance.ErrUnknownCrewID) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.formFailure(c, "toggle", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"crew": draft.Crew})
}

type submitRequest struct {
	Plate     string                     `json:"patente"`
	Auxiliary *attendance.AuxiliaryInput `json:"part_time"`
}

func (s *server) submitForm(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, st := formContext(c)
	rec, err := s.Forms.Submit(c.Request.Context(), st, driverOf(sess), req.Plate, req.Auxiliary)
	var verr *attendance.ValidationError
	switch {
	case errors.As(err, &verr):
		s.Metrics.Submissions.WithLabelValues("submit", "invalid").Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "validation failed",
			"codes":   verr.Codes,
			"message": verr.Message(),
		})
		return
	case errors.Is(err, attendance.ErrNoDraft):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.formFailure(c, "submit", err)
		return
	}
	s.Metrics.Submissions.WithLabelValues("submit", "ok").Inc()
	c.JSON(http.StatusOK, gin.H{"record": rec, "summary": rec.Summary()})
}

func (s *server) confirmForm(c *gin.Context) {
	_, st := formContext(c)
	rec, err := s.Forms.Confirm(c.Request.Context(), st)
	if err != nil {
		if errors.Is(err, attendance.ErrNoPending) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		s.formFailure(c, "confirm", err)
		return
	}
	s.Metrics.Submissions.WithLabelValues("confirm", "ok").Inc()
	c.JSON(http.StatusCreated, gin.H{"record": rec})
}

func (s *server) cancelForm(c *gin.Context) {
	_, st := formContext(c)
	if err := s.Forms.Cancel(c.Request.Context(), st); err != nil {
		s.formFailure(c, "cancel", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) formFailure(c *gin.Context, stage string, err error) {
	sess, _ := auth.SessionFrom(c)
	s.Metrics.Submissions.WithLabelValues(stage, "error").Inc()
	s.log.Error("form operation failed",
		zap.String(logger.FieldOperation, stage),
		zap.String(logger.FieldRUT, sess.Identifier),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "form unavailable"})
}
