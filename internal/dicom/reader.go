package dicom

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/spf13/afero"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Reader extracts the series description from local DICOM datasets
type Reader struct {
	fs       afero.Fs
	datasets *pattern.Pattern
	logger   logging.Logger
}

// NewReader creates a reader that only opens files whose names match the
// default dataset file pattern
func NewReader(fs afero.Fs, logger logging.Logger) *Reader {
	return NewReaderWithPattern(fs, pattern.MustCompile(utils.DefaultFilePattern), logger)
}

func NewReaderWithPattern(fs afero.Fs, datasets *pattern.Pattern, logger logging.Logger) *Reader {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &Reader{fs: fs, datasets: datasets, logger: logger}
}

// SeriesDescription returns tag (0008,103E) of the dataset at path, or ""
// if the file is not a dataset or cannot be parsed.
func (r *Reader) SeriesDescription(path string) string {
	if !r.datasets.Match(filepath.Base(path)) {
		return ""
	}

	desc, err := r.read(path)
	if err != nil {
		r.logger.Debug("Could not read series description",
			logging.F("path", path),
			logging.F("error", err.Error()),
		)
		return ""
	}
	return desc
}

func (r *Reader) read(path string) (desc string, err error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}

	defer func() {
		if p := recover(); p != nil {
			desc, err = "", fmt.Errorf("malformed dataset: %v", p)
		}
	}()

	ds, err := dicom.Parse(f, info.Size(), nil, dicom.SkipPixelData())
	if err != nil {
		return "", fmt.Errorf("failed to parse dataset: %w", err)
	}

	elem, err := ds.FindElementByTag(tag.SeriesDescription)
	if err != nil {
		return "", err
	}
	values, ok := elem.Value.GetValue().([]string)
	if !ok || len(values) == 0 {
		return "", nil
	}
	return strings.TrimSpace(values[0]), nil
}
