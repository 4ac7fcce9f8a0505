package audit

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/frahmantamala/company-authz/internal"
	auditDatamodel "github.com/frahmantamala/company-authz/internal/core/datamodel/audit"
	"github.com/frahmantamala/company-authz/internal/core/events"
	"github.com/frahmantamala/company-authz/internal/core/metrics"
)

// WriterAPI appends rows. Implementations must never update or delete.
type WriterAPI interface {
	Append(ctx context.Context, row *auditDatamodel.AuditLog) error
}

type ReaderAPI interface {
	Find(ctx context.Context, filter Filter) ([]*auditDatamodel.AuditLog, error)
}

// AlertPublisher is the operator-visible channel for lost entries.
type AlertPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Recorder is what other packages depend on to write audit entries.
type Recorder interface {
	LogAction(ctx context.Context, rec Record) (*Entry, error)
}

type Options struct {
	LogAllActions      bool
	SecurityEventsOnly bool
}

type Service struct {
	writer  WriterAPI
	reader  ReaderAPI
	alerts  AlertPublisher
	opts    Options
	stamper *stamper
	logger  *slog.Logger
}

func NewService(writer WriterAPI, reader ReaderAPI, alerts AlertPublisher, opts Options, logger *slog.Logger) *Service {
	return &Service{
		writer:  writer,
		reader:  reader,
		alerts:  alerts,
		opts:    opts,
		stamper: newStamper(time.Now),
		logger:  logger,
	}
}

// WithClock replaces the wall clock used for timestamps.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.stamper = newStamper(now)
	return s
}

// LogAction persists one entry. It returns (nil, nil) when the configuration
// filters the record out. A StorageError means the entry is lost; it has
// already been raised to operators, so callers log it and carry on.
func (s *Service) LogAction(ctx context.Context, rec Record) (*Entry, error) {
	if !rec.Action.IsValid() {
		return nil, internal.NewValidationFieldError("action", "unknown audit action "+strconv.Quote(string(rec.Action)), internal.ErrCodeValidationFailed)
	}
	if rec.ResourceType == "" {
		return nil, internal.NewValidationFieldError("resource_type", "resource_type is required", internal.ErrCodeValidationFailed)
	}

	if !s.shouldPersist(rec) {
		s.logger.Debug("audit record skipped by configuration",
			"action", rec.Action,
			"resource_type", rec.ResourceType)
		return nil, nil
	}

	origin := internal.OriginFromContext(ctx)
	if rec.Origin != nil {
		origin = *rec.Origin
	}

	entry := &Entry{
		ActorID:         rec.ActorID,
		CompanyID:       rec.CompanyID,
		Action:          rec.Action,
		ResourceType:    rec.ResourceType,
		Details:         rec.Details,
		IsSecurityEvent: rec.IsSecurityEvent,
		IPAddress:       origin.IPAddress,
		UserAgent:       origin.UserAgent,
		RequestID:       origin.RequestID,
	}
	if rec.ResourceID != "" {
		id := rec.ResourceID
		entry.ResourceID = &id
	}

	row, err := ToDataModel(entry)
	if err != nil {
		return nil, internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	}

	entry.OccurredAt, entry.ID = s.stamper.stamp()
	row.OccurredAt, row.ID = entry.OccurredAt, entry.ID

	if err := s.writer.Append(ctx, row); err != nil {
		s.raiseWriteFailure(ctx, rec, err)
		return nil, internal.NewStorageError("audit log unavailable", err)
	}

	metrics.AuditEntries.WithLabelValues(strconv.FormatBool(rec.IsSecurityEvent)).Inc()
	return entry, nil
}

// LogBestEffort writes the record and only logs a failure.
func (s *Service) LogBestEffort(ctx context.Context, rec Record) {
	if _, err := s.LogAction(ctx, rec); err != nil {
		s.logger.Warn("audit entry not recorded", "action", rec.Action, "error", err)
	}
}

func (s *Service) Query(ctx context.Context, filter Filter) ([]*Entry, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.reader.Find(ctx, filter.Normalized())
	if err != nil {
		s.logger.Error("failed to query audit log", "error", err)
		return nil, internal.NewStorageError("audit log unavailable", err)
	}

	entries := make([]*Entry, 0, len(rows))
	for _, row := range rows {
		e, err := FromDataModel(row)
		if err != nil {
			return nil, internal.NewInternalError("corrupt audit entry", err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *Service) shouldPersist(rec Record) bool {
	if rec.IsSecurityEvent {
		return true
	}
	if s.opts.SecurityEventsOnly {
		return false
	}
	if !s.opts.LogAllActions && rec.Action.IsReadOnly() {
		return false
	}
	return true
}

func (s *Service) raiseWriteFailure(ctx context.Context, rec Record, cause error) {
	metrics.AuditWriteFailures.Inc()
	s.logger.Error("failed to persist audit entry",
		"action", rec.Action,
		"resource_type", rec.ResourceType,
		"is_security_event", rec.IsSecurityEvent,
		"error", cause)

	if s.alerts == nil {
		return
	}
	event := events.NewAuditWriteFailedEvent(string(rec.Action), rec.ResourceType, rec.IsSecurityEvent, rec.ActorID, rec.CompanyID, cause.Error())
	if err := s.alerts.Publish(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("failed to publish audit failure alert", "error", err)
	}
}
