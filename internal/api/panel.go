package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"crewlog/internal/attendance"
)

const (
	pageLimit   = 50
	exportLimit = 1000
)

func (s *server) requireRecords(c *gin.Context) {
	if s.Records == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "record storage not configured"})
		return
	}
	c.Next()
}

func filterFrom(c *gin.Context, defaultLimit int) attendance.Filter {
	f := attendance.Filter{
		DriverRUT: c.Query("driver_rut"),
		Plate:     c.Query("plate"),
		Status:    c.Query("status"),
		Limit:     defaultLimit,
	}
	if v := c.Query("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			f.Limit = parsed
		}
	}
	if f.Limit > exportLimit {
		f.Limit = exportLimit
	}
	if v := c.Query("offset"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			f.Offset = parsed
		}
	}
	return f
}

func (s *server) listRecords(c *gin.Context) {
	f := filterFrom(c, pageLimit)
	records, err := s.Records.ListRecords(c.Request.Context(), f)
	if err != nil {
		s.log.Error("list records failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "records unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "limit": f.Limit, "offset": f.Offset})
}

func (s *server) getRecord(c *gin.Context) {
	rec, err := s.Records.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		s.log.Error("get record failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "records unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": rec, "summary": rec.Summary()})
}

func (s *server) exportRecords(c *gin.Context) {
	records, err := s.Records.ListRecords(c.Request.Context(), filterFrom(c, exportLimit))
	if err != nil {
		s.log.Error("export records failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "records unavailable"})
		return
	}
	name := fmt.Sprintf("asistencia-%s.csv", s.Now().In(s.Location).Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := attendance.WriteCSV(c.Writer, records); err != nil {
		s.log.Error("write export failed", zap.Error(err))
	}
}
