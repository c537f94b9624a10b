package utils

// Upload thresholds (binary units)
const (
	UploadSimpleMaxBytes = 5 * 1024 * 1024 // 5 MiB
	UploadChunkSize      = 8 * 1024 * 1024 // 8 MiB
)

// OAuth scopes
const ScopeFull = "https://www.googleapis.com/auth/drive"

// ScopesSync are requested for the service account. The destination folder
// is usually shared with the account rather than created by it.
var ScopesSync = []string{ScopeFull}

// Retry configuration
const (
	DefaultMaxRetries   = 3
	DefaultRetryDelayMs = 1000
	MaxRetryDelayMs     = 32000
)

// Google Drive MIME types
const (
	MimeTypeFolder   = "application/vnd.google-apps.folder"
	MimeTypeShortcut = "application/vnd.google-apps.shortcut"
	MimeTypeDICOM    = "application/dicom"
)

// Default selection patterns for GE MRI exports.
const (
	// e.g. 'hlp17umm00700_06072' (study) and 's00003' (series)
	DefaultFolderPattern = `^hlp17umm\d{5}_\d{5}$|^s\d{5}$`
	// e.g. 'i53838914.MRDC.3'
	DefaultFilePattern = `^i\d+\.MRDC\.\d+$`
	// T1 sagittal and T2 FLAIR sagittal series
	DefaultContentPattern = `^t1sag.*$|^t2flairsag.*$`
	// Study-level directory names
	StudyFolderPattern = `^hlp17umm\d{5}_\d{5}$`
)

// LargeStudyEntryThreshold is the entry count above which a study directory
// is reported as unusually large.
const LargeStudyEntryThreshold = 250

// RemoteTimeZone is the zone local modification times are normalized to
// before comparing against remote timestamps.
const RemoteTimeZone = "America/New_York"

// SchemaVersion is stamped on JSON command output
const SchemaVersion = "1.0"
