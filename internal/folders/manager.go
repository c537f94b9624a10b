package folders

import (
	"context"
	"fmt"

	"github.com/dl-alexandre/mrisync/internal/api"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

const folderFields = "id,name,mimeType,size,createdTime,modifiedTime,parents,trashed"

// Manager handles folder operations
type Manager struct {
	client *api.Client
}

// NewManager creates a new folder manager
func NewManager(client *api.Client) *Manager {
	return &Manager{client: client}
}

// Create creates a new folder
func (m *Manager) Create(ctx context.Context, reqCtx *types.RequestContext, name string, parentID string) (*types.DriveFile, error) {
	if parentID != "" {
		reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, parentID)
	}

	metadata := &drive.File{
		Name:     name,
		MimeType: utils.MimeTypeFolder,
	}
	if parentID != "" {
		metadata.Parents = []string{parentID}
	}

	call := m.client.Service().Files.Create(metadata).
		SupportsAllDrives(true).
		Fields(folderFields)

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
}

// List lists one page of folder contents
func (m *Manager) List(ctx context.Context, reqCtx *types.RequestContext, folderID string, pageSize int, pageToken string) (*types.FileListResult, error) {
	reqCtx.InvolvedParentIDs = append(reqCtx.InvolvedParentIDs, folderID)

	query := fmt.Sprintf("'%s' in parents and trashed = false", folderID)

	call := m.client.Service().Files.List().Q(query).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Fields("nextPageToken,incompleteSearch,files(" + folderFields + ")")

	if pageSize > 0 {
		call = call.PageSize(int64(pageSize))
	}
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.FileList, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	files := make([]*types.DriveFile, len(result.Files))
	for i, f := range result.Files {
		files[i] = convertDriveFile(f)
	}

	return &types.FileListResult{
		Files:            files,
		NextPageToken:    result.NextPageToken,
		IncompleteSearch: result.IncompleteSearch,
	}, nil
}

// ListAll follows page tokens until the folder's children are exhausted.
// A page Drive flags as incomplete fails the listing.
func (m *Manager) ListAll(ctx context.Context, reqCtx *types.RequestContext, folderID string) ([]*types.DriveFile, error) {
	var all []*types.DriveFile
	pageToken := ""
	for {
		page, err := m.List(ctx, reqCtx, folderID, 1000, pageToken)
		if err != nil {
			return nil, err
		}
		if page.IncompleteSearch {
			return nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeEnumerationFailed,
				"Drive returned an incomplete folder listing").
				WithContext("folderId", folderID).
				Build())
		}
		all = append(all, page.Files...)
		if page.NextPageToken == "" {
			return all, nil
		}
		pageToken = page.NextPageToken
	}
}

// Delete removes a folder. Drive removes descendants together with the
// folder, so a non-recursive delete is refused when the folder has children.
// Unless permanent is set the folder is moved to the trash.
func (m *Manager) Delete(ctx context.Context, reqCtx *types.RequestContext, folderID string, recursive bool, permanent bool) error {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, folderID)

	if !recursive {
		page, err := m.List(ctx, reqCtx, folderID, 1, "")
		if err != nil {
			return err
		}
		if len(page.Files) > 0 {
			return utils.NewAppError(utils.NewCLIError(utils.ErrCodeInvalidArgument,
				"Folder is not empty; recursive delete required").
				WithContext("folderId", folderID).
				Build())
		}
	}

	if !permanent {
		call := m.client.Service().Files.Update(folderID, &drive.File{Trashed: true}).
			SupportsAllDrives(true).
			Fields("id")
		_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
			return call.Context(ctx).Do()
		})
		return err
	}

	call := m.client.Service().Files.Delete(folderID).SupportsAllDrives(true)
	_, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (interface{}, error) {
		return nil, call.Context(ctx).Do()
	})
	return err
}

// Get retrieves folder metadata
func (m *Manager) Get(ctx context.Context, reqCtx *types.RequestContext, folderID string, fields string) (*types.DriveFile, error) {
	reqCtx.InvolvedFileIDs = append(reqCtx.InvolvedFileIDs, folderID)

	call := m.client.Service().Files.Get(folderID).SupportsAllDrives(true)
	if fields != "" {
		call = call.Fields(googleapi.Field(fields))
	} else {
		call = call.Fields(folderFields)
	}

	result, err := api.ExecuteWithRetry(ctx, m.client, reqCtx, func() (*drive.File, error) {
		return call.Context(ctx).Do()
	})
	if err != nil {
		return nil, err
	}

	return convertDriveFile(result), nil
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
