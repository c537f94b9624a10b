package remote_test

import (
	"context"
	"testing"
	"time"

	"github.com/dl-alexandre/mrisync/internal/remote"
	"github.com/dl-alexandre/mrisync/internal/testing/mocks"
)

func TestDryRunStore_RecordsWithoutMutating(t *testing.T) {
	ctx := context.Background()
	inner := mocks.NewStore()
	existing := inner.AddFile("root", "i1.MRDC.1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	s := remote.NewDryRunStore(inner)

	folder, err := s.CreateFolder(ctx, "root", "s00001")
	if err != nil {
		t.Fatalf("CreateFolder: %v", err)
	}
	if !folder.IsFolder() || folder.Name != "s00001" {
		t.Errorf("CreateFolder returned %+v", folder)
	}
	if _, err := s.Upload(ctx, folder.ID, "/mri/s00001/i2.MRDC.2"); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if _, err := s.UpdateContents(ctx, existing.ID, "/mri/i1.MRDC.1"); err != nil {
		t.Fatalf("UpdateContents: %v", err)
	}
	if err := s.Delete(ctx, existing.ID, false); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if got := inner.Mutations(); len(got) != 0 {
		t.Errorf("inner store was mutated: %+v", got)
	}

	muts := s.Mutations()
	wantOps := []string{"create_folder", "upload", "update", "delete"}
	if len(muts) != len(wantOps) {
		t.Fatalf("recorded %d mutations, want %d", len(muts), len(wantOps))
	}
	for i, op := range wantOps {
		if muts[i].Op != op {
			t.Errorf("mutation %d = %q, want %q", i, muts[i].Op, op)
		}
	}
	if muts[1].Name != "i2.MRDC.2" || muts[1].ParentID != folder.ID {
		t.Errorf("upload recorded as %+v", muts[1])
	}
}

func TestDryRunStore_SyntheticFoldersAreEmpty(t *testing.T) {
	ctx := context.Background()
	inner := mocks.NewStore()
	inner.AddFile("root", "i1.MRDC.1", time.Now())

	s := remote.NewDryRunStore(inner)
	folder, _ := s.CreateFolder(ctx, "root", "s00001")

	children, err := s.ListChildren(ctx, folder.ID)
	if err != nil {
		t.Fatalf("ListChildren: %v", err)
	}
	if len(children) != 0 {
		t.Errorf("synthetic folder has %d children, want 0", len(children))
	}
	if got := len(inner.CallsTo("ListChildren")); got != 0 {
		t.Errorf("synthetic listing reached the inner store %d times", got)
	}

	children, err = s.ListChildren(ctx, "root")
	if err != nil {
		t.Fatalf("ListChildren(root): %v", err)
	}
	if len(children) != 1 {
		t.Errorf("root has %d children, want 1", len(children))
	}
}

func TestItem_Modified(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    time.Time
		wantErr bool
	}{
		{"whole seconds", "2024-01-02T15:04:05Z", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), false},
		{"milliseconds", "2024-01-02T15:04:05.123Z", time.Date(2024, 1, 2, 15, 4, 5, 123000000, time.UTC), false},
		{"offset", "2024-01-02T10:04:05-05:00", time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC), false},
		{"empty", "", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := remote.Item{ModifiedTime: tt.value}.Modified()
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Modified() = %v, want %v", got, tt.want)
			}
		})
	}
}
