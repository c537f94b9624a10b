package sync

import (
	"fmt"
	"time"

	"github.com/dl-alexandre/mrisync/internal/utils"
)

func remoteLocation() *time.Location {
	loc, err := time.LoadLocation(utils.RemoteTimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// localIsNewer reports whether the local modification time, normalized to
// loc, is strictly after the remote RFC 3339 timestamp. Equal times are not
// newer.
func localIsNewer(local time.Time, remoteModified string, loc *time.Location) (bool, error) {
	remote, err := time.Parse(time.RFC3339Nano, remoteModified)
	if err != nil {
		return false, fmt.Errorf("invalid remote modified time %q: %w", remoteModified, err)
	}
	return local.In(loc).After(remote), nil
}
