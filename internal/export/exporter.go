// Package export turns a report into its one-page A4 document, archives local
// saves and hands uploads to the upload service.
package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"oprdesk/internal/blob"
	"oprdesk/internal/core"
	"oprdesk/internal/upload"
	"oprdesk/pkg/domain"
)

// ContentType of every exported document.
const ContentType = "application/pdf"

// ArchivePrefix is where local saves are kept in the blob store.
const ArchivePrefix = "documents/"

// ErrBusy is returned while the same action already runs for the same report.
var ErrBusy = errors.New("export already in progress")

// Printer prints an HTML page to PDF.
type Printer interface {
	PrintPDF(ctx context.Context, html []byte) ([]byte, error)
}

// Document is a rendered report. FileName is the display name offered to
// the user; StorageName is the same name reduced to one safe path segment.
type Document struct {
	FileName    string `json:"file_name"`
	StorageName string `json:"storage_name"`
	ContentType string `json:"content_type"`
	ArchiveKey  string `json:"archive_key,omitempty"`
	Data        []byte `json:"-"`
}

// Exporter renders, archives and uploads report documents.
type Exporter struct {
	printer Printer
	blobs   blob.Store
	layout  Layout
	clock   core.Clock
	logger  core.Logger

	mu   sync.Mutex
	busy map[string]struct{}
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithLayout overrides the letterhead.
func WithLayout(l Layout) Option { return func(e *Exporter) { e.layout = l } }

// WithClock sets the time source for file names.
func WithClock(c core.Clock) Option {
	return func(e *Exporter) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithLogger injects a logger.
func WithLogger(l core.Logger) Option {
	return func(e *Exporter) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an Exporter. A nil blobs store disables archiving.
func New(printer Printer, blobs blob.Store, opts ...Option) *Exporter {
	e := &Exporter{
		printer: printer,
		blobs:   blobs,
		layout:  DefaultLayout,
		clock:   core.ClockFunc(func() time.Time { return time.Now().UTC() }),
		logger:  core.NoopLogger(),
		busy:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render produces the PDF for report named for a local save.
func (e *Exporter) Render(ctx context.Context, report domain.Report) (Document, error) {
	return e.render(ctx, report, LocalFileName(report.ProgramName, e.clock.Now()))
}

func (e *Exporter) render(ctx context.Context, report domain.Report, fileName string) (Document, error) {
	if e.printer == nil {
		return Document{}, errors.New("export: no printer configured")
	}
	html, err := RenderHTML(report, e.layout)
	if err != nil {
		return Document{}, err
	}
	pdf, err := e.printer.PrintPDF(ctx, html)
	if err != nil {
		return Document{}, fmt.Errorf("export %s: %w", report.ID, err)
	}
	return Document{FileName: fileName, StorageName: StorageName(fileName), ContentType: ContentType, Data: pdf}, nil
}

// Save renders report and archives it under documents/<id>/<storage name>,
// replacing an earlier copy with the same name.
func (e *Exporter) Save(ctx context.Context, report domain.Report) (Document, error) {
	release, err := e.acquire(report.ID, "save")
	if err != nil {
		return Document{}, err
	}
	defer release()

	doc, err := e.Render(ctx, report)
	if err != nil {
		return Document{}, err
	}
	if e.blobs == nil {
		return doc, nil
	}
	key := ArchivePrefix + report.ID + "/" + doc.StorageName
	if _, err := blob.Replace(ctx, e.blobs, key, doc.Data, blob.PutOptions{
		ContentType: ContentType,
		Metadata:    map[string]string{"report-id": report.ID},
	}); err != nil {
		return Document{}, fmt.Errorf("archive %s: %w", key, err)
	}
	doc.ArchiveKey = key
	e.logger.Info("export: document archived", "report", report.ID, "key", key, "bytes", len(doc.Data))
	return doc, nil
}

// Archived lists the stored documents of a report.
func (e *Exporter) Archived(ctx context.Context, reportID string) ([]blob.Info, error) {
	if e.blobs == nil {
		return nil, nil
	}
	return e.blobs.List(ctx, ArchivePrefix+reportID+"/")
}

// Upload renders report under its upload file name and sends it once.
func (e *Exporter) Upload(ctx context.Context, report domain.Report, uploads *upload.Service) (upload.Ack, error) {
	if uploads == nil || !uploads.Enabled() {
		return upload.Ack{}, upload.ErrDisabled
	}
	if _, ok := uploads.Uploaded(report.ID); ok {
		return upload.Ack{}, fmt.Errorf("%w: %s", upload.ErrAlreadyUploaded, report.ID)
	}
	release, err := e.acquire(report.ID, "upload")
	if err != nil {
		return upload.Ack{}, err
	}
	defer release()

	doc, err := e.render(ctx, report, UploadFileName(report.ProgramName, e.clock.Now()))
	if err != nil {
		return upload.Ack{}, err
	}
	ack, err := uploads.Send(ctx, report.ID, doc.Data, doc.FileName)
	if err != nil {
		e.logger.Warn("export: upload failed", "report", report.ID, "sink", uploads.SinkName(), "error", err)
		return upload.Ack{}, err
	}
	e.logger.Info("export: document uploaded", "report", report.ID, "sink", ack.Sink, "confirmed", ack.Confirmed)
	return ack, nil
}

func (e *Exporter) acquire(reportID, action string) (func(), error) {
	key := reportID + "/" + action
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.busy[key]; ok {
		return nil, ErrBusy
	}
	e.busy[key] = struct{}{}
	return func() {
		e.mu.Lock()
		delete(e.busy, key)
		e.mu.Unlock()
	}, nil
}
