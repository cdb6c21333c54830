// Package gallery manages the bounded image collection attached to a draft.
package gallery

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"oprdesk/pkg/domain"
)

var (
	// ErrTooLarge marks a file over domain.MaxImageBytes.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrNotImage marks a payload whose sniffed type is not image/*.
	ErrNotImage = errors.New("file is not an image")
)

// File is one candidate image. Size is the declared payload length; Open
// yields the payload and is only called for files that pass the size check.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// BytesFile wraps an in-memory payload.
func BytesFile(name string, data []byte) File {
	return File{
		Name: name,
		Size: int64(len(data)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Level classifies a notice.
type Level string

const (
	LevelInfo  Level = "info"
	LevelError Level = "error"
)

// Notice is user-facing feedback from AddImages.
type Notice struct {
	Level   Level  `json:"level"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

// Result summarises one AddImages call.
type Result struct {
	Added   int      `json:"added"`
	Notices []Notice `json:"notices,omitempty"`
}

// Gallery holds at most domain.MaxImages encoded images in insertion order.
// It is safe for concurrent use; AddImages calls are serialised.
type Gallery struct {
	mu     sync.Mutex
	images []string
}

// New returns an empty gallery.
func New() *Gallery { return &Gallery{} }

// AddImages accepts up to the remaining capacity from files, in order. Files
// beyond capacity are dropped with an info notice; oversized or non-image
// files are rejected with an error notice while the rest proceed. Accepted
// files are encoded concurrently and land in submission order.
func (g *Gallery) AddImages(ctx context.Context, files []File) (Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var res Result
	available := domain.MaxImages - len(g.images)
	if len(files) > available {
		res.Notices = append(res.Notices, Notice{
			Level:   LevelInfo,
			Message: fmt.Sprintf("only %d slots remain", max(available, 0)),
		})
		files = files[:max(available, 0)]
	}

	accepted := make([]File, 0, len(files))
	for _, f := range files {
		if f.Size > domain.MaxImageBytes {
			res.Notices = append(res.Notices, rejection(f.Name, ErrTooLarge))
			continue
		}
		accepted = append(accepted, f)
	}
	if len(accepted) == 0 {
		return res, nil
	}

	slots := make([]string, len(accepted))
	failures := make([]error, len(accepted))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, f := range accepted {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			slots[i], failures[i] = encode(f)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return Result{}, err
	}

	for i, f := range accepted {
		if failures[i] != nil {
			res.Notices = append(res.Notices, rejection(f.Name, failures[i]))
			continue
		}
		g.images = append(g.images, slots[i])
		res.Added++
	}
	return res, nil
}

func rejection(name string, err error) Notice {
	msg := err.Error()
	if errors.Is(err, ErrTooLarge) {
		msg = fmt.Sprintf("%s exceeds the %dMB limit", name, domain.MaxImageBytes>>20)
	}
	return Notice{Level: LevelError, File: name, Message: msg}
}

// encode reads f (never more than the limit plus one byte) and returns a data URL.
func encode(f File) (string, error) {
	if f.Open == nil {
		return "", fmt.Errorf("%s: no content", f.Name)
	}
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("%s: open: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(io.LimitReader(rc, domain.MaxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("%s: read: %w", f.Name, err)
	}
	if int64(len(data)) > domain.MaxImageBytes {
		return "", ErrTooLarge
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s: %w (%s)", f.Name, ErrNotImage, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// RemoveImage deletes the image at index, shifting later ones left. It
// reports whether anything was removed; out-of-range indexes are ignored.
func (g *Gallery) RemoveImage(index int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if index < 0 || index >= len(g.images) {
		return false
	}
	g.images = append(g.images[:index], g.images[index+1:]...)
	return true
}

// Images returns a copy of the encoded images in order.
func (g *Gallery) Images() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.images...)
}

// Count returns the number of images held.
func (g *Gallery) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.images)
}

// Remaining returns the free capacity.
func (g *Gallery) Remaining() int { return domain.MaxImages - g.Count() }
