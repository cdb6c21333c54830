// Package upload delivers exported documents to an external destination and
// remembers which reports were already sent.
package upload

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrDisabled is returned when no upload destination is configured.
	ErrDisabled = errors.New("upload: disabled")
	// ErrAlreadyUploaded is returned for a second upload of the same report.
	ErrAlreadyUploaded = errors.New("upload: report already uploaded")
)

// Ack is what a sink reports after a send. Confirmed is false when the
// destination accepted the request without confirming storage.
type Ack struct {
	Sink      string `json:"sink"`
	FileName  string `json:"file_name"`
	Confirmed bool   `json:"confirmed"`
	Location  string `json:"location,omitempty"`
}

// Sink is an upload destination.
type Sink interface {
	Send(ctx context.Context, pdf []byte, fileName string) (Ack, error)
	Name() string
}

// Driver names a sink implementation.
type Driver string

const (
	DriverNone    Driver = "none"
	DriverWebhook Driver = "webhook"
	DriverS3      Driver = "s3"
)

type disabledSink struct{}

// Disabled returns a sink that always fails with ErrDisabled.
func Disabled() Sink { return disabledSink{} }

func (disabledSink) Send(context.Context, []byte, string) (Ack, error) { return Ack{}, ErrDisabled }
func (disabledSink) Name() string                                        { return string(DriverNone) }

// Service wraps a sink and tracks uploaded reports for the process lifetime.
type Service struct {
	sink     Sink
	mu       sync.Mutex
	uploaded map[string]Ack
}

// NewService returns a Service sending through sink. A nil sink disables uploads.
func NewService(sink Sink) *Service {
	if sink == nil {
		sink = Disabled()
	}
	return &Service{sink: sink, uploaded: make(map[string]Ack)}
}

// Enabled reports whether a real destination is configured.
func (s *Service) Enabled() bool { return s.sink.Name() != string(DriverNone) }

// SinkName returns the configured sink name.
func (s *Service) SinkName() string { return s.sink.Name() }

// Uploaded returns the acknowledgement of a previous upload of reportID.
func (s *Service) Uploaded(reportID string) (Ack, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ack, ok := s.uploaded[reportID]
	return ack, ok
}

// Send uploads pdf for reportID once. Failed sends are not remembered.
func (s *Service) Send(ctx context.Context, reportID string, pdf []byte, fileName string) (Ack, error) {
	if _, ok := s.Uploaded(reportID); ok {
		return Ack{}, fmt.Errorf("%w: %s", ErrAlreadyUploaded, reportID)
	}
	ack, err := s.sink.Send(ctx, pdf, fileName)
	if err != nil {
		return Ack{}, err
	}
	ack.Sink = s.sink.Name()
	ack.FileName = fileName
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.uploaded[reportID]; ok {
		return Ack{}, fmt.Errorf("%w: %s", ErrAlreadyUploaded, reportID)
	}
	s.uploaded[reportID] = ack
	return ack, nil
}
