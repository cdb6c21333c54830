package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"oprdesk/internal/blob"
)

// UploadPrefix is where the blob sink stores documents.
const UploadPrefix = "uploads/"

// BlobSink stores documents in a blob store, normally the S3 driver.
type BlobSink struct {
	store  blob.Store
	expiry time.Duration
}

// NewBlobSink returns a sink writing to store.
func NewBlobSink(store blob.Store) (*BlobSink, error) {
	if store == nil {
		return nil, errors.New("upload: blob store required")
	}
	return &BlobSink{store: store, expiry: time.Hour}, nil
}

func (b *BlobSink) Name() string { return string(b.store.Driver()) }

func (b *BlobSink) Send(ctx context.Context, pdf []byte, fileName string) (Ack, error) {
	key := UploadPrefix + fileName
	if _, err := b.store.Put(ctx, key, bytes.NewReader(pdf), blob.PutOptions{ContentType: "application/pdf"}); err != nil {
		return Ack{}, fmt.Errorf("store upload %s: %w", key, err)
	}
	ack := Ack{Confirmed: true, Location: key}
	if url, err := b.store.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: b.expiry}); err == nil {
		ack.Location = url
	}
	return ack, nil
}
