// Package assist offers AI help while filling in a report: refining a text
// field into formal Malay and suggesting program objectives.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"oprdesk/internal/draft"
	"oprdesk/pkg/domain"
)

// MinRefineLength is the shortest text worth refining, in characters.
const MinRefineLength = 5

var (
	// ErrTooShort is returned before any model call for text under MinRefineLength.
	ErrTooShort = errors.New("text too short to refine")
	// ErrProgramNameRequired is returned when suggesting objectives without a program name.
	ErrProgramNameRequired = errors.New("program name required")
	// ErrBusy is returned while the same action is already running for the same draft field.
	ErrBusy = errors.New("assist action already in progress")
	// ErrUnavailable is returned when no model is configured.
	ErrUnavailable = errors.New("assist model not configured")
	// ErrEmptyResult is returned when a suggestion comes back blank.
	ErrEmptyResult = errors.New("model returned no text")
)

// GenerateOptions tunes one model call. Nil fields use the model defaults.
type GenerateOptions struct {
	Temperature *float32
	TopK        *float32
	TopP        *float32
}

// Model produces text for a prompt.
type Model interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Logger is the logging surface used here.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any) {}
func (noopLogger) Warn(string, ...any) {}

func ptr[T any](v T) *T { return &v }

var refineOptions = GenerateOptions{Temperature: ptr[float32](0.7), TopK: ptr[float32](40), TopP: ptr[float32](0.95)}

// Service wraps a Model with input checks and a per-field busy guard.
type Service struct {
	model  Model
	logger Logger

	mu   sync.Mutex
	busy map[string]struct{}
}

// Option customises a Service.
type Option func(*Service)

// WithLogger injects a logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService returns a Service. A nil model makes every call fail with ErrUnavailable.
func NewService(model Model, opts ...Option) *Service {
	s := &Service{model: model, logger: noopLogger{}, busy: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available reports whether a model is configured.
func (s *Service) Available() bool { return s.model != nil }

// Refine rewrites text for field. A blank model answer returns text unchanged.
func (s *Service) Refine(ctx context.Context, field domain.Field, text string) (string, error) {
	if utf8.RuneCountInString(text) < MinRefineLength {
		return "", ErrTooShort
	}
	if s.model == nil {
		return "", ErrUnavailable
	}
	out, err := s.model.Generate(ctx, refinePrompt(field, text), refineOptions)
	if err != nil {
		return "", fmt.Errorf("refine %s: %w", field, err)
	}
	if strings.TrimSpace(out) == "" {
		return text, nil
	}
	return strings.TrimSpace(out), nil
}

// SuggestObjectives returns three numbered objectives for programName.
func (s *Service) SuggestObjectives(ctx context.Context, programName string) (string, error) {
	if strings.TrimSpace(programName) == "" {
		return "", ErrProgramNameRequired
	}
	if s.model == nil {
		return "", ErrUnavailable
	}
	out, err := s.model.Generate(ctx, suggestPrompt(programName), GenerateOptions{})
	if err != nil {
		return "", fmt.Errorf("suggest objectives: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResult
	}
	return strings.TrimSpace(out), nil
}

// RefineDraft refines the draft's field in place. On any failure the draft is unchanged.
func (s *Service) RefineDraft(ctx context.Context, d *draft.Draft, field domain.Field) (string, error) {
	release, err := s.acquire(d.ID, field)
	if err != nil {
		return "", err
	}
	defer release()
	out, err := s.Refine(ctx, field, d.Field(field))
	if err != nil {
		s.logger.Warn("assist: refine failed", "draft", d.ID, "field", field, "error", err)
		return "", err
	}
	if err := d.SetField(field, out); err != nil {
		return "", err
	}
	s.logger.Info("assist: refined", "draft", d.ID, "field", field)
	return out, nil
}

// SuggestForDraft fills the draft's objectives from its program name.
func (s *Service) SuggestForDraft(ctx context.Context, d *draft.Draft) (string, error) {
	release, err := s.acquire(d.ID, domain.FieldObjectives)
	if err != nil {
		return "", err
	}
	defer release()
	out, err := s.SuggestObjectives(ctx, d.Field(domain.FieldProgramName))
	if err != nil {
		s.logger.Warn("assist: suggest failed", "draft", d.ID, "error", err)
		return "", err
	}
	if err := d.SetField(domain.FieldObjectives, out); err != nil {
		return "", err
	}
	s.logger.Info("assist: objectives suggested", "draft", d.ID)
	return out, nil
}

func (s *Service) acquire(draftID string, field domain.Field) (func(), error) {
	key := draftID + "/" + string(field)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[key]; ok {
		return nil, ErrBusy
	}
	s.busy[key] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.busy, key)
		s.mu.Unlock()
	}, nil
}

func refinePrompt(field domain.Field, text string) string {
	return fmt.Sprintf(`Sebagai seorang penolong kanan sekolah yang profesional, tolong murnikan ayat untuk bahagian %q dalam Laporan Program (OPR) berikut supaya lebih formal dan padat dalam Bahasa Melayu. Kekalkan maksud asal. Hanya berikan teks yang telah dimurnikan sahaja.

Teks asal: %q`, string(field), text)
}

func suggestPrompt(programName string) string {
	return fmt.Sprintf(`Berikan 3 objektif program yang mantap untuk program sekolah bertajuk %q dalam format senarai bernombor. Bahasa Melayu yang profesional.`, programName)
}
