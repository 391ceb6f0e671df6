package storage

import (
	"context"
	"io"
)

// BlobStore is the binary storage collaborator. Save returns a locator that is
// persisted as the file row's url; Delete is best-effort cleanup by locator.
type BlobStore interface {
	Save(ctx context.Context, name string, r io.Reader) (string, error)
	Delete(ctx context.Context, locator string) error
}
