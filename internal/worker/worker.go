// Package worker checks confirmed attendance records in the background.
package worker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"crewlog/internal/attendance"
	"crewlog/internal/metrics"
	"crewlog/internal/queue"
	"crewlog/internal/roster"
	"crewlog/pkg/logger"
)

// Records is the slice of the repository the worker needs.
type Records interface {
	GetRecord(ctx context.Context, id string) (attendance.Record, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Processor re-verifies submitted records against the crew roster.
type Processor struct {
	records Records
	crew    []roster.CrewMember
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New builds a Processor.
func New(records Records, crew []roster.CrewMember, m *metrics.Metrics, log *zap.Logger) *Processor {
	if m == nil {
		m = metrics.Nop()
	}
	return &Processor{records: records, crew: crew, metrics: m, logger: logger.Or(log)}
}

// Run handles messages until the channel closes.
func (p *Processor) Run(ctx context.Context, messages <-chan queue.Message) {
	for msg := range messages {
		if msg.Type != attendance.SubmissionMessage {
			p.logger.Debug("skipping message", zap.String("type", msg.Type))
			continue
		}
		if _, err := p.Process(ctx, string(msg.Body)); err != nil {
			p.logger.Error("record processing failed", zap.String(logger.FieldRecordID, string(msg.Body)), zap.Error(err))
		}
	}
}

// Process marks record id processed when its invariants hold and rejected otherwise.
// Records already out of pending are left alone.
func (p *Processor) Process(ctx context.Context, id string) (string, error) {
	log := p.logger.With(zap.String(logger.FieldRecordID, id))

	rec, err := p.records.GetRecord(ctx, id)
	if err != nil {
		if errors.Is(err, attendance.ErrRecordNotFound) {
			log.Warn("record not found, dropping message")
			return "", nil
		}
		return "", err
	}
	if rec.Status != attendance.StatusPending {
		log.Debug("record already handled", zap.String("status", rec.Status))
		return rec.Status, nil
	}

	status := attendance.StatusProcessed
	if verr := attendance.Verify(p.crew, rec); verr != nil {
		status = attendance.StatusRejected
		log.Warn("record failed verification", zap.Error(verr))
	}
	if err := p.records.UpdateStatus(ctx, id, status); err != nil {
		return "", err
	}
	p.metrics.RecordsProcessed.WithLabelValues(status).Inc()
	log.Info("record checked", zap.String("status", status), zap.String(logger.FieldPlate, rec.Plate))
	return status, nil
}
