package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type webhookPayload struct {
	PDFBase64 string `json:"pdfBase64"`
	FileName  string `json:"fileName"`
}

// WebhookSink posts the document as base64 JSON to a script endpoint. The
// endpoint's reply is drained but not interpreted, so every Ack is unconfirmed.
type WebhookSink struct {
	url    string
	client *http.Client
}

// NewWebhook returns a sink posting to url. A nil client gets a 60s timeout.
func NewWebhook(url string, client *http.Client) (*WebhookSink, error) {
	if url == "" {
		return nil, errors.New("upload: webhook url required")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &WebhookSink{url: url, client: client}, nil
}

func (w *WebhookSink) Name() string { return string(DriverWebhook) }

func (w *WebhookSink) Send(ctx context.Context, pdf []byte, fileName string) (Ack, error) {
	body, err := json.Marshal(webhookPayload{
		PDFBase64: base64.StdEncoding.EncodeToString(pdf),
		FileName:  fileName,
	})
	if err != nil {
		return Ack{}, fmt.Errorf("encode webhook payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return Ack{}, fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return Ack{}, fmt.Errorf("post webhook: %w", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return Ack{Confirmed: false}, nil
}
