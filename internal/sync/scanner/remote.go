package scanner

import (
	"context"
	"fmt"

	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/utils"
)

// ScanLevel lists folderID once and partitions the children. A listing
// failure is returned as an ENUMERATION_FAILED error.
func ScanLevel(ctx context.Context, store remote.Store, folderID string) (*Level, error) {
	children, err := store.ListChildren(ctx, folderID)
	if err != nil {
		return nil, enumerationError(folderID, err)
	}

	level := newLevel(folderID)
	for _, child := range children {
		level.add(child)
	}
	return level, nil
}

func enumerationError(folderID string, cause error) error {
	appErr := utils.NewAppError(utils.NewCLIError(utils.ErrCodeEnumerationFailed,
		fmt.Sprintf("Failed to list remote folder %s", folderID)).
		WithContext("folderId", folderID).
		Build())
	return fmt.Errorf("%w: %w", appErr, cause)
}
