// Package core implements the report store: the process-wide, newest-first
// collection of submitted reports, mirrored to durable storage on every change.
package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"

	"oprdesk/pkg/domain"
)

var (
	// ErrDeleteDeclined is returned when the confirmer refuses a deletion.
	ErrDeleteDeclined = errors.New("deletion not confirmed")
	// ErrTooManyImages is returned when a submission carries more than domain.MaxImages images.
	ErrTooManyImages = fmt.Errorf("%w: more than %d images", domain.ErrValidation, domain.MaxImages)
)

// Confirmer approves destructive operations before they run.
type Confirmer interface {
	Confirm(ctx context.Context, report domain.Report) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, report domain.Report) (bool, error)

// Confirm implements Confirmer.
func (f ConfirmFunc) Confirm(ctx context.Context, report domain.Report) (bool, error) {
	return f(ctx, report)
}

// AlwaysConfirm approves every deletion.
var AlwaysConfirm Confirmer = ConfirmFunc(func(context.Context, domain.Report) (bool, error) { return true, nil })

// IDGenerator derives a record id from its creation time.
type IDGenerator func(now time.Time) string

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source used for ids and timestamps.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger injects a structured logger.
func WithLogger(logger Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder injects an operation metrics recorder.
func WithMetricsRecorder(metrics MetricsRecorder) Option {
	return func(s *Service) {
		if metrics != nil {
			s.metrics = metrics
		}
	}
}

// WithTracer injects a tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// Service is the report store. All mutations are serialised and written
// through to the repository before they become visible.
type Service struct {
	mu      sync.RWMutex
	repo    domain.ReportRepository
	reports []domain.Report

	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	newID   IDGenerator
}

// NewService builds the store and loads the persisted collection. Read
// failures are logged and leave the store empty; they never fail construction.
func NewService(ctx context.Context, repo domain.ReportRepository, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		clock:   ClockFunc(time.Now),
		logger:  noopLogger{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		newID:   defaultID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reports = s.loadAll(ctx)
	s.updateGauge()
	return s
}

func defaultID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + suffix
}

func (s *Service) loadAll(ctx context.Context) []domain.Report {
	reports, err := s.repo.Load(ctx)
	if err != nil {
		s.logger.Warn("report store: discarding unreadable collection", "key", domain.StorageKey, "error", err)
		return []domain.Report{}
	}
	s.logger.Info("report store: loaded", "reports", len(reports))
	return reports
}

func (s *Service) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	started := s.clock.Now()
	ctx, span := s.tracer.Start(ctx, op)
	err := fn(ctx)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(started))
	if err != nil {
		s.logger.Debug("report store: operation failed", "operation", op, "error", err)
	}
	return err
}

func (s *Service) updateGauge() {
	if g, ok := s.metrics.(ReportGauge); ok {
		g.SetReports(len(s.reports))
	}
}

// Create validates fields, stamps id and created_at, prepends the record and
// persists the whole collection. On any failure the collection is unchanged.
func (s *Service) Create(ctx context.Context, fields domain.Fields, images []string) (domain.Report, error) {
	var created domain.Report
	err := s.run(ctx, "create_report", func(ctx context.Context) error {
		if err := fields.Validate(); err != nil {
			return err
		}
		if len(images) > domain.MaxImages {
			return ErrTooManyImages
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		now := s.clock.Now().UTC()
		record := domain.Report{
			ID:        s.uniqueID(now),
			CreatedAt: now,
			Fields:    fields,
			Images:    append([]string(nil), images...),
		}
		next := make([]domain.Report, 0, len(s.reports)+1)
		next = append(next, record)
		next = append(next, s.reports...)
		if err := s.repo.SaveAll(ctx, next); err != nil {
			return fmt.Errorf("persist reports: %w", err)
		}
		s.reports = next
		s.updateGauge()
		created = record.Clone()
		return nil
	})
	if err != nil {
		return domain.Report{}, err
	}
	s.logger.Info("report store: created", "id", created.ID, "program", created.ProgramName)
	return created, nil
}

// uniqueID disambiguates generator collisions with a numeric suffix.
// Callers hold s.mu.
func (s *Service) uniqueID(now time.Time) string {
	base := s.newID(now)
	id := base
	for n := 1; s.indexOf(id) >= 0; n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	return id
}

func (s *Service) indexOf(id string) int {
	for i := range s.reports {
		if s.reports[i].ID == id {
			return i
		}
	}
	return -1
}

// List returns a copy of the collection, newest first.
func (s *Service) List(_ context.Context) []domain.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneReports(s.reports)
}

// Len returns the number of stored reports.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Get returns the report with id or domain.ErrNotFound.
func (s *Service) Get(_ context.Context, id string) (domain.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.reports[i].Clone(), nil
	}
	return domain.Report{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
}

// Delete removes the report with id after confirm approves it. It reports
// whether a record was removed; an unknown id is a no-op without a write.
func (s *Service) Delete(ctx context.Context, id string, confirm Confirmer) (bool, error) {
	if confirm == nil {
		return false, ErrDeleteDeclined
	}
	target, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	ok, err := confirm.Confirm(ctx, target)
	if err != nil {
		return false, fmt.Errorf("confirm delete: %w", err)
	}
	if !ok {
		s.logger.Info("report store: delete declined", "id", id)
		return false, ErrDeleteDeclined
	}
	deleted := false
	err = s.run(ctx, "delete_report", func(ctx context.Context) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		i := s.indexOf(id)
		if i < 0 {
			return nil
		}
		next := make([]domain.Report, 0, len(s.reports)-1)
		next = append(next, s.reports[:i]...)
		next = append(next, s.reports[i+1:]...)
		if err := s.repo.SaveAll(ctx, next); err != nil {
			return fmt.Errorf("persist reports: %w", err)
		}
		s.reports = next
		s.updateGauge()
		deleted = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if deleted {
		s.logger.Info("report store: deleted", "id", id)
	}
	return deleted, nil
}

// Filter returns reports whose program name or organizer contains term,
// compared under Unicode case folding. An empty term returns everything.
func (s *Service) Filter(ctx context.Context, term string) []domain.Report {
	if term == "" {
		return s.List(ctx)
	}
	fold := cases.Fold()
	needle := fold.String(term)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if strings.Contains(fold.String(r.ProgramName), needle) || strings.Contains(fold.String(r.Organizer), needle) {
			out = append(out, r.Clone())
		}
	}
	return out
}
