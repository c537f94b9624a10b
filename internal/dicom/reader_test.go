package dicom

import (
	"bytes"
	"testing"

	"github.com/dl-alexandre/mrisync/internal/sync/pattern"
	"github.com/spf13/afero"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const explicitVRLittleEndian = "1.2.840.10008.1.2.1"

// writeDataset stores a minimal Explicit VR Little Endian dataset holding
// extra next to the file meta elements.
func writeDataset(t *testing.T, fs afero.Fs, path string, extra map[tag.Tag][]string) {
	t.Helper()
	values := map[tag.Tag][]string{
		tag.MediaStorageSOPClassUID:    {"1.2.840.10008.5.1.4.1.1.4"},
		tag.MediaStorageSOPInstanceUID: {"1.2.3.4.5.6"},
		tag.TransferSyntaxUID:          {explicitVRLittleEndian},
	}
	for k, v := range extra {
		values[k] = v
	}

	var ds dicom.Dataset
	for _, tg := range []tag.Tag{
		tag.MediaStorageSOPClassUID,
		tag.MediaStorageSOPInstanceUID,
		tag.TransferSyntaxUID,
		tag.Modality,
		tag.SeriesDescription,
	} {
		v, ok := values[tg]
		if !ok {
			continue
		}
		elem, err := dicom.NewElement(tg, v)
		if err != nil {
			t.Fatalf("NewElement(%v): %v", tg, err)
		}
		ds.Elements = append(ds.Elements, elem)
	}

	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := afero.WriteFile(fs, path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestSeriesDescription_ReadsTag(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeDataset(t, fs, "/mri/s00001/i1.MRDC.1", map[tag.Tag][]string{
		tag.Modality:          {"MR"},
		tag.SeriesDescription: {"t1sag_mprage"},
	})
	writeDataset(t, fs, "/mri/s00002/i1.MRDC.1", map[tag.Tag][]string{
		tag.Modality: {"MR"},
	})

	r := NewReader(fs, nil)

	if got := r.SeriesDescription("/mri/s00001/i1.MRDC.1"); got != "t1sag_mprage" {
		t.Errorf("SeriesDescription = %q, want %q", got, "t1sag_mprage")
	}
	if got := r.SeriesDescription("/mri/s00002/i1.MRDC.1"); got != "" {
		t.Errorf("dataset without the tag: got %q, want empty", got)
	}
}

func TestSeriesDescription_NonDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/mri/s00001/notes.txt", []byte("not dicom"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/mri/s00001/i1.MRDC.1", []byte("garbage that is not a dicom file"), 0o644); err != nil {
		t.Fatal(err)
	}

	r := NewReader(fs, nil)

	tests := []struct {
		name string
		path string
	}{
		{"name does not look like a dataset", "/mri/s00001/notes.txt"},
		{"unparseable dataset", "/mri/s00001/i1.MRDC.1"},
		{"missing file", "/mri/s00001/i2.MRDC.2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.SeriesDescription(tt.path); got != "" {
				t.Errorf("SeriesDescription(%q) = %q, want empty", tt.path, got)
			}
		})
	}
}

func TestSeriesDescription_PatternGatesOpen(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	r := NewReaderWithPattern(fs, pattern.MustCompile(`^never$`), nil)
	if got := r.SeriesDescription("/anything/i1.MRDC.1"); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}
