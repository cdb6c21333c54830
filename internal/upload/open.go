package upload

import (
	"fmt"
	"net/http"

	"oprdesk/internal/blob"
)

// Config selects the upload sink.
type Config struct {
	Driver     Driver `yaml:"driver"`
	WebhookURL string `yaml:"webhook_url"`
}

// Open builds the sink named by cfg. The s3 driver writes through blobs.
func Open(cfg Config, blobs blob.Store, client *http.Client) (Sink, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Disabled(), nil
	case DriverWebhook:
		return NewWebhook(cfg.WebhookURL, client)
	case DriverS3:
		if blobs == nil || blobs.Driver() != blob.DriverS3 {
			return nil, fmt.Errorf("upload driver s3 needs the s3 blob driver")
		}
		return NewBlobSink(blobs)
	default:
		return nil, fmt.Errorf("unknown upload driver %s", cfg.Driver)
	}
}
