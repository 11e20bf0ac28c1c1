package storage

import (
	"context"
	"time"
)

// ObjectSigner creates time-bounded, credential-less read URLs for stored
// objects. The moderation pipeline uses it so the vision classifier can fetch
// images without bucket credentials. The interface allows for easy mocking in
// tests.
type ObjectSigner interface {
	SignedURL(ctx context.Context, key string, expires time.Duration) (string, error)
}

// Ensure S3Storage implements ObjectSigner
var _ ObjectSigner = (*S3Storage)(nil)
