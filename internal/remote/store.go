package remote

import (
	"context"
	"time"
)

// Kind tags a remote entry as a folder or a file
type Kind string

const (
	KindFolder Kind = "folder"
	KindFile   Kind = "file"
)

// Item is a remote folder or file as seen by the sync engine. ModifiedTime
// is the RFC 3339 string reported by the storage service.
type Item struct {
	ID           string
	Name         string
	Kind         Kind
	ModifiedTime string
}

// IsFolder reports whether the item is a folder
func (i Item) IsFolder() bool {
	return i.Kind == KindFolder
}

// Modified parses ModifiedTime. Fractional seconds are accepted.
func (i Item) Modified() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, i.ModifiedTime)
}

// Store is the remote hierarchical storage the local tree is mirrored into
type Store interface {
	// ListChildren returns the immediate children of folderID in listing order.
	ListChildren(ctx context.Context, folderID string) ([]Item, error)
	CreateFolder(ctx context.Context, parentID, name string) (Item, error)
	// Upload creates a new file under parentID named after the local file.
	Upload(ctx context.Context, parentID, localPath string) (Item, error)
	UpdateContents(ctx context.Context, fileID, localPath string) (Item, error)
	// Delete removes a file, or a folder together with its contents when
	// recursive is set.
	Delete(ctx context.Context, id string, recursive bool) error
	Get(ctx context.Context, id string) (Item, error)
}
