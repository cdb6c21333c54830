// Package httpapi exposes the report desk over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"oprdesk/docs/schema/openapi"
	"oprdesk/internal/assist"
	"oprdesk/internal/core"
	"oprdesk/internal/draft"
	"oprdesk/internal/export"
	"oprdesk/internal/gallery"
	"oprdesk/internal/upload"
	"oprdesk/internal/view"
	"oprdesk/pkg/domain"
)

const (
	reportsPrefix = "/api/v1/reports"
	draftsPrefix  = "/api/v1/drafts"
	viewPath      = "/api/v1/view"

	// ConfirmHeader approves a deletion when set to "yes".
	ConfirmHeader = "X-Confirm-Delete"

	defaultMaxUploadBytes int64 = 32 << 20
)

// Handler routes the report desk API. Reports, Drafts and View are required;
// a nil Assist, Exports or Metrics answers 503 (404 for Metrics).
type Handler struct {
	Reports *core.Service
	Drafts  *draft.Registry
	View    *view.Controller
	Assist  *assist.Service
	Exports *export.Exporter
	Uploads *upload.Service
	Metrics http.Handler
	Logger  core.Logger

	MaxUploadBytes int64
}

// NewHandler constructs a handler over the required services.
func NewHandler(reports *core.Service, drafts *draft.Registry, ctrl *view.Controller) *Handler {
	return &Handler{Reports: reports, Drafts: drafts, View: ctrl, Logger: core.NoopLogger()}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Reports == nil || h.Drafts == nil || h.View == nil {
		writeError(w, http.StatusInternalServerError, "report desk not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/healthz":
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "reports": h.Reports.Len()})
	case path == "/openapi.yaml":
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(openapi.Spec())
	case path == "/metrics":
		if h.Metrics == nil {
			http.NotFound(w, r)
			return
		}
		h.Metrics.ServeHTTP(w, r)
	case path == reportsPrefix:
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleListReports(w, r)
	case strings.HasPrefix(path, reportsPrefix+"/"):
		h.handleReport(w, r, strings.Split(strings.TrimPrefix(path, reportsPrefix+"/"), "/"))
	case path == draftsPrefix:
		h.handleDrafts(w, r)
	case strings.HasPrefix(path, draftsPrefix+"/"):
		h.handleDraft(w, r, strings.Split(strings.TrimPrefix(path, draftsPrefix+"/"), "/"))
	case path == viewPath:
		h.handleView(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleListReports(w http.ResponseWriter, r *http.Request) {
	reports := h.Reports.Filter(r.Context(), r.URL.Query().Get("q"))
	writeJSON(w, http.StatusOK, map[string]any{"reports": reports, "total": h.Reports.Len()})
}

func (h *Handler) handleReport(w http.ResponseWriter, r *http.Request, segments []string) {
	id := segments[0]
	if id == "" || len(segments) > 2 {
		writeError(w, http.StatusNotFound, "report endpoint not found")
		return
	}
	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			report, err := h.Reports.Get(r.Context(), id)
			if err != nil {
				h.fail(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"report": report})
		case http.MethodDelete:
			h.handleDeleteReport(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	switch segments[1] {
	case "document":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleDocument(w, r, id)
	case "upload":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleUpload(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "report endpoint not found")
	}
}

// requestConfirmer approves a deletion only when the request carries an
// explicit confirmation.
func requestConfirmer(r *http.Request) core.Confirmer {
	ok := strings.EqualFold(r.URL.Query().Get("confirm"), "true") ||
		strings.EqualFold(r.Header.Get(ConfirmHeader), "yes")
	return core.ConfirmFunc(func(context.Context, domain.Report) (bool, error) { return ok, nil })
}

func (h *Handler) handleDeleteReport(w http.ResponseWriter, r *http.Request, id string) {
	removed, err := h.Reports.Delete(r.Context(), id, requestConfirmer(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	if removed {
		h.View.Forget(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDocument(w http.ResponseWriter, r *http.Request, id string) {
	if h.Exports == nil {
		writeError(w, http.StatusServiceUnavailable, "document export not configured")
		return
	}
	report, err := h.Reports.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	doc, err := h.Exports.Save(r.Context(), report)
	if err != nil {
		h.failUpstream(w, err)
		return
	}
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	if doc.ArchiveKey != "" {
		w.Header().Set("X-Archive-Key", doc.ArchiveKey)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request, id string) {
	if h.Exports == nil {
		writeError(w, http.StatusServiceUnavailable, "document export not configured")
		return
	}
	report, err := h.Reports.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	ack, err := h.Exports.Upload(r.Context(), report, h.Uploads)
	if err != nil {
		h.failUpstream(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"upload": ack})
}

func (h *Handler) handleDrafts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		d := h.Drafts.New()
		_ = h.View.Navigate(view.ModeForm)
		writeJSON(w, http.StatusCreated, map[string]any{"draft": d.Snapshot()})
	case http.MethodGet:
		drafts := h.Drafts.List()
		out := make([]draft.Snapshot, 0, len(drafts))
		for _, d := range drafts {
			out = append(out, d.Snapshot())
		}
		writeJSON(w, http.StatusOK, map[string]any{"drafts": out})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type fieldRequest struct {
	Value string `json:"value"`
}

func (h *Handler) handleDraft(w http.ResponseWriter, r *http.Request, segments []string) {
	d, err := h.Drafts.Get(segments[0])
	if err != nil {
		h.fail(w, err)
		return
	}
	if len(segments) == 1 {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"draft": d.Snapshot()})
		case http.MethodDelete:
			h.Drafts.Discard(d.ID)
			w.WriteHeader(http.StatusNoContent)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
		return
	}

	action := segments[1]
	switch {
	case action == "fields" && len(segments) == 3 && r.Method == http.MethodPut:
		h.handleSetField(w, r, d, segments[2])
	case action == "images" && len(segments) == 2 && r.Method == http.MethodPost:
		h.handleAddImages(w, r, d)
	case action == "images" && len(segments) == 3 && r.Method == http.MethodDelete:
		h.handleRemoveImage(w, d, segments[2])
	case action == "refine" && len(segments) == 3 && r.Method == http.MethodPost:
		h.handleRefine(w, r, d, segments[2])
	case action == "objectives" && len(segments) == 2 && r.Method == http.MethodPost:
		h.handleObjectives(w, r, d)
	case action == "submit" && len(segments) == 2 && r.Method == http.MethodPost:
		h.handleSubmit(w, r, d)
	default:
		writeError(w, http.StatusNotFound, "draft endpoint not found")
	}
}

func (h *Handler) handleSetField(w http.ResponseWriter, r *http.Request, d *draft.Draft, name string) {
	field, err := domain.ParseField(name)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req fieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid field payload")
		return
	}
	if err := d.SetField(field, req.Value); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"draft": d.Snapshot()})
}

func (h *Handler) handleAddImages(w http.ResponseWriter, r *http.Request, d *draft.Draft) {
	limit := h.MaxUploadBytes
	if limit <= 0 {
		limit = defaultMaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}
	files, truncated, err := readImageParts(mr, d.Gallery.Remaining())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart payload")
		return
	}
	result, err := d.Gallery.AddImages(r.Context(), files)
	if err != nil {
		h.fail(w, err)
		return
	}
	if truncated {
		result.Notices = append(result.Notices, gallery.Notice{
			Level:   gallery.LevelInfo,
			Message: fmt.Sprintf("upload exceeds %dMB; later files were skipped", limit>>20),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result, "draft": d.Snapshot()})
}

// readImageParts streams the "images" parts of a multipart body. At most keep
// parts are buffered, each up to domain.MaxImageBytes+1 bytes; larger parts
// are drained and reported by size so the gallery rejects them one by one.
// truncated is set when the request body limit cut the stream short; the
// files read before the cut are still returned.
func readImageParts(mr *multipart.Reader, keep int) ([]gallery.File, bool, error) {
	var (
		files  []gallery.File
		tooBig *http.MaxBytesError
	)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return files, false, nil
		}
		if errors.As(err, &tooBig) {
			return files, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		name := part.FileName()
		if part.FormName() != "images" || name == "" {
			_, err = io.Copy(io.Discard, part)
			_ = part.Close()
			if errors.As(err, &tooBig) {
				return files, true, nil
			}
			if err != nil {
				return nil, false, err
			}
			continue
		}

		var data []byte
		if len(files) < keep {
			data, err = io.ReadAll(io.LimitReader(part, domain.MaxImageBytes+1))
		}
		size := int64(len(data))
		if err == nil && (size > domain.MaxImageBytes || len(files) >= keep) {
			var rest int64
			rest, err = io.Copy(io.Discard, part)
			size += rest
		}
		_ = part.Close()
		if errors.As(err, &tooBig) {
			if size > domain.MaxImageBytes {
				files = append(files, gallery.File{Name: name, Size: size})
			}
			return files, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		if size > domain.MaxImageBytes || len(files) >= keep {
			files = append(files, gallery.File{Name: name, Size: size})
			continue
		}
		files = append(files, gallery.BytesFile(name, data))
	}
}

func (h *Handler) handleRemoveImage(w http.ResponseWriter, d *draft.Draft, raw string) {
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image index must be an integer")
		return
	}
	removed := d.Gallery.RemoveImage(index)
	writeJSON(w, http.StatusOK, map[string]any{"removed": removed, "draft": d.Snapshot()})
}

func (h *Handler) handleRefine(w http.ResponseWriter, r *http.Request, d *draft.Draft, name string) {
	if h.Assist == nil {
		writeError(w, http.StatusServiceUnavailable, assist.ErrUnavailable.Error())
		return
	}
	field, err := domain.ParseField(name)
	if err != nil {
		h.fail(w, err)
		return
	}
	text, err := h.Assist.RefineDraft(r.Context(), d, field)
	if err != nil {
		h.failUpstream(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": field, "value": text, "draft": d.Snapshot()})
}

func (h *Handler) handleObjectives(w http.ResponseWriter, r *http.Request, d *draft.Draft) {
	if h.Assist == nil {
		writeError(w, http.StatusServiceUnavailable, assist.ErrUnavailable.Error())
		return
	}
	text, err := h.Assist.SuggestForDraft(r.Context(), d)
	if err != nil {
		h.failUpstream(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"field": domain.FieldObjectives, "value": text, "draft": d.Snapshot()})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request, d *draft.Draft) {
	report, err := h.Drafts.Submit(r.Context(), d.ID, h.Reports)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.View.Created()
	writeJSON(w, http.StatusCreated, map[string]any{"report": report, "view": h.View.State()})
}

type viewRequest struct {
	Mode     string `json:"mode"`
	ReportID string `json:"report_id"`
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"view": h.View.State()})
	case http.MethodPost:
		var req viewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid view payload")
			return
		}
		mode, err := view.ParseMode(req.Mode)
		if err != nil {
			h.fail(w, err)
			return
		}
		if mode == view.ModePreview && req.ReportID != "" {
			report, err := h.Reports.Get(r.Context(), req.ReportID)
			if err != nil {
				h.fail(w, err)
				return
			}
			h.View.Preview(report)
		} else if err := h.View.Navigate(mode); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"view": h.View.State()})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// fail maps a service error onto a status code; anything unrecognised is a 500.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.respond(w, err, http.StatusInternalServerError)
}

// failUpstream is fail for calls that reach the AI model, the PDF printer or
// an upload sink: unrecognised errors become a generic 502.
func (h *Handler) failUpstream(w http.ResponseWriter, err error) {
	h.respond(w, err, http.StatusBadGateway)
}

func (h *Handler) respond(w http.ResponseWriter, err error, fallback int) {
	var verr domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "missing": verr.Missing})
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownField),
		errors.Is(err, view.ErrUnknownMode),
		errors.Is(err, assist.ErrProgramNameRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, assist.ErrTooShort):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error(), "level": gallery.LevelInfo})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, draft.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, core.ErrDeleteDeclined):
		writeError(w, http.StatusPreconditionRequired, "deletion must be confirmed with ?confirm=true or "+ConfirmHeader+": yes")
	case errors.Is(err, assist.ErrBusy),
		errors.Is(err, export.ErrBusy),
		errors.Is(err, upload.ErrAlreadyUploaded),
		errors.Is(err, view.ErrNoActiveReport):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, assist.ErrUnavailable), errors.Is(err, upload.ErrDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, assist.ErrEmptyResult):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request cancelled")
	case fallback == http.StatusBadGateway:
		h.Logger.Warn("httpapi: upstream failure", "error", err)
		writeError(w, http.StatusBadGateway, "external service failed; nothing was changed")
	default:
		h.Logger.Error("httpapi: request failed", "error", err)
		writeError(w, fallback, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
