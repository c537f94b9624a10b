package files

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/dl-alexandre/mrisync/internal/api"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/afero"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const fileFields = "id,name,mimeType,size,md5Checksum,createdTime,modifiedTime,parents,trashed"

// Manager handles file operations. Local content is read through fs.
type Manager struct {
	client *api.Client
	fs     afero.Fs
}

// NewManager creates a new file manager
func NewManager(client *api.Client, fs afero.Fs) *Manager {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Manager{
		client: client,
		fs:     fs,
	}
}

// UploadOptions configures file upload
type UploadOptions struct {
	ParentID string
	Name     string
	MimeType string
}

type UpdateContentOptions struct {
	MimeType string
}

// Upload creates a new Drive file from a local file
func (m *Manager) Upload(ctx context.Context, reqCtx *types.RequestContext, localPath string, opts UploadOptions) (*types.DriveFile, error) {
	file, err := m.fs.Open(localPath)
	if err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			fmt.Sprintf("Failed to open file: %s", err)).
			WithContext("path", localPath).
			Build())
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	name := opts.Name
	if name == "" {
		name = filepath.Base(localPath)
	}

	metadata := &drive.File{
		Name: name,
	}
	if opts.ParentID != "" {
		metadata.Parents = []string{opts.ParentID}
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, opts.ParentID)
	}
	if opts.MimeType != "" {
		metadata.MimeType = opts.MimeType
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		// A retried upload must resend the content from the start.
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		call := m.client.Service().Files.Create(metadata).
			SupportsAllDrives(true).
			Fields(fileFields).
			Media(file, mediaOptions(stat.Size(), opts.MimeType)...)
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
}

// UpdateContent replaces the content of an existing Drive file
func (m *Manager) UpdateContent(ctx context.Context, reqCtx *types.RequestContext, fileID string, localPath string, opts UpdateContentOptions) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	file, err := m.fs.Open(localPath)
	if err != nil {
		return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidPath,
			fmt.Sprintf("Failed to open file: %s", err)).
			WithContext("path", localPath).
			Build())
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		call := m.client.Service().Files.Update(fileID, &drive.File{}).
			SupportsAllDrives(true).
			Fields(fileFields).
			Media(file, mediaOptions(stat.Size(), opts.MimeType)...)
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
}

// mediaOptions sends small files in a single multipart request and larger
// ones as resumable chunked uploads.
func mediaOptions(size int64, mimeType string) []googleapi.MediaOption {
	var opts []googleapi.MediaOption
	if size > int64(utils.UploadSimpleMaxBytes) {
		opts = append(opts, googleapi.ChunkSize(utils.UploadChunkSize))
	} else {
		opts = append(opts, googleapi.ChunkSize(0))
	}
	if mimeType != "" {
		opts = append(opts, googleapi.ContentType(mimeType))
	}
	return opts
}

// Get retrieves file metadata
func (m *Manager) Get(ctx context.Context, reqCtx *types.RequestContext, fileID string, fields string) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	call := m.client.Service().Files.Get(fileID).SupportsAllDrives(true)
	if fields != "" {
		call = call.Fields(googleapi.Field(fields))
	} else {
		call = call.Fields(fileFields)
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
}

// Delete trashes a file, or removes it for good when permanent is set
func (m *Manager) Delete(ctx context.Context, reqCtx *types.RequestContext, fileID string, permanent bool) error {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, fileID)

	if !permanent {
		call := m.client.Service().Files.Update(fileID, &drive.File{Trashed: true}).
			SupportsAllDrives(true).
			Fields("id")
		_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
			return call.Context(ctx).Do()
		})
		return err
	}

	call := m.client.Service().Files.Delete(fileID).SupportsAllDrives(true)
	_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (interface{}, error) {
		return nil, call.Context(ctx).Do()
	})
	return err
}

func convertDriveFile(f *drive.File) *types.DriveFile {
	return &types.DriveFile{
		ID:           f.Id,
		Name:         f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		MD5Checksum:  f.Md5Checksum,
		CreatedTime:  f.CreatedTime,
		ModifiedTime: f.ModifiedTime,
		Parents:      f.Parents,
		Trashed:      f.Trashed,
	}
}
