package attendance

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crewlog/pkg/logger"
)

// LogSink stands in for a database: it stamps the record and logs it.
type LogSink struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewLogSink returns a sink that only logs.
func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Or(log), now: time.Now}
}

// Save logs rec and returns it with an id and pending status.
func (s *LogSink) Save(_ context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.Status = StatusPending
	created := s.now().UTC()
	rec.CreatedAt = &created
	s.logger.Info("attendance record received",
		zap.String(logger.FieldRecordID, rec.ID),
		zap.String(logger.FieldRUT, rec.Driver.RUT),
		zap.String(logger.FieldPlate, rec.Plate),
		zap.String("fecha", rec.Timestamp),
		zap.String("presentes", strings.Join(rec.PresentCrew, ", ")),
		zap.String("ausentes", namesOrNone(rec.AbsentCrew)),
	)
	return rec, nil
}
