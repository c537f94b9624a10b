package remote

import (
	"context"

	"github.com/dl-alexandre/mrisync/internal/api"
	"github.com/dl-alexandre/mrisync/internal/files"
	"github.com/dl-alexandre/mrisync/internal/folders"
	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/afero"
)

// DriveStore implements Store on top of the Drive folder and file managers.
// Every call derives a request context from the run's base context so all
// API log lines of one run share a trace ID.
type DriveStore struct {
	folders   *folders.Manager
	files     *files.Manager
	base      *types.RequestContext
	permanent bool
	logger    logging.Logger
}

// DriveStoreOptions configures a DriveStore
type DriveStoreOptions struct {
	// Fs is where uploaded content is read from. Defaults to the OS filesystem.
	Fs afero.Fs
	// PermanentDelete removes entries instead of moving them to the trash.
	PermanentDelete bool
	// TraceID is attached to every request; a fresh one is generated if empty.
	TraceID string
}

// NewDriveStore creates a Store backed by Google Drive
func NewDriveStore(client *api.Client, opts DriveStoreOptions) *DriveStore {
	base := api.NewRequestContext("default", "", types.RequestTypeGetByID)
	if opts.TraceID != "" {
		base.TraceID = opts.TraceID
	}
	return &DriveStore{
		folders:   folders.NewManager(client),
		files:     files.NewManager(client, opts.Fs),
		base:      base,
		permanent: opts.PermanentDelete,
		logger:    client.Logger().WithTraceID(base.TraceID),
	}
}

// TraceID returns the trace ID shared by this store's requests
func (s *DriveStore) TraceID() string {
	return s.base.TraceID
}

func (s *DriveStore) ListChildren(ctx context.Context, folderID string) ([]Item, error) {
	children, err := s.folders.ListAll(ctx, s.base.Derive(types.RequestTypeListChildren), folderID)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(children))
	for _, f := range children {
		// Shortcuts are neither a mirrored folder nor file content.
		if f.MimeType == utils.MimeTypeShortcut {
			s.logger.Debug("Skipping shortcut", logging.F("name", f.Name), logging.F("id", f.ID))
			continue
		}
		items = append(items, toItem(f))
	}
	return items, nil
}

func (s *DriveStore) CreateFolder(ctx context.Context, parentID, name string) (Item, error) {
	f, err := s.folders.Create(ctx, s.base.Derive(types.RequestTypeMutation), name, parentID)
	if err != nil {
		return Item{}, err
	}
	return toItem(f), nil
}

func (s *DriveStore) Upload(ctx context.Context, parentID, localPath string) (Item, error) {
	f, err := s.files.Upload(ctx, s.base.Derive(types.RequestTypeUpload), localPath, files.UploadOptions{
		ParentID: parentID,
	})
	if err != nil {
		return Item{}, err
	}
	return toItem(f), nil
}

func (s *DriveStore) UpdateContents(ctx context.Context, fileID, localPath string) (Item, error) {
	f, err := s.files.UpdateContent(ctx, s.base.Derive(types.RequestTypeUpload), fileID, localPath, files.UpdateContentOptions{})
	if err != nil {
		return Item{}, err
	}
	return toItem(f), nil
}

// Delete trashes the entry unless the store was configured for permanent
// deletion. Drive removes a folder's descendants with it, so a recursive
// delete is a single call.
func (s *DriveStore) Delete(ctx context.Context, id string, recursive bool) error {
	reqCtx := s.base.Derive(types.RequestTypeMutation)
	if recursive {
		return s.folders.Delete(ctx, reqCtx, id, true, s.permanent)
	}
	return s.files.Delete(ctx, reqCtx, id, s.permanent)
}

func (s *DriveStore) Get(ctx context.Context, id string) (Item, error) {
	f, err := s.folders.Get(ctx, s.base.Derive(types.RequestTypeGetByID), id, "")
	if err != nil {
		return Item{}, err
	}
	return toItem(f), nil
}

func toItem(f *types.DriveFile) Item {
	kind := KindFile
	if f.MimeType == utils.MimeTypeFolder {
		kind = KindFolder
	}
	return Item{
		ID:           f.ID,
		Name:         f.Name,
		Kind:         kind,
		ModifiedTime: f.ModifiedTime,
	}
}
