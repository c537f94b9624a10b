package testing

import (
	"context"
	"testing"

	"github.com/dl-alexandre/mrisync/internal/types"
	"google.golang.org/api/drive/v3"
)

// TestContext creates a standard test context
func TestContext() context.Context {
	return context.Background()
}

// TestRequestContext creates a standard request context for testing
func TestRequestContext() *types.RequestContext {
	return &types.RequestContext{
		Profile:           "test-profile",
		DriveID:           "",
		InvolvedFileIDs:   []string{},
		InvolvedParentIDs: []string{},
		RequestType:       types.RequestTypeListChildren,
		TraceID:           "test-trace-id",
	}
}

// TestFile creates a Drive file for testing
func TestFile(id, name, parentID string) *drive.File {
	return &drive.File{
		Id:           id,
		Name:         name,
		MimeType:     "application/octet-stream",
		Size:         1024,
		Parents:      []string{parentID},
		ModifiedTime: "2024-01-02T15:04:05.000Z",
	}
}

// TestFolder creates a Drive folder for testing
func TestFolder(id, name, parentID string) *drive.File {
	return &drive.File{
		Id:           id,
		Name:         name,
		MimeType:     "application/vnd.google-apps.folder",
		Parents:      []string{parentID},
		ModifiedTime: "2024-01-02T15:04:05.000Z",
	}
}

// AssertNoError is a helper to fail the test if error is not nil
func AssertNoError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err != nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: %v", msgAndArgs[0], err)
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
}

// AssertError is a helper to fail the test if error is nil
func AssertError(t testing.TB, err error, msgAndArgs ...interface{}) {
	t.Helper()
	if err == nil {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: expected error but got nil", msgAndArgs[0])
		} else {
			t.Fatal("expected error but got nil")
		}
	}
}

// AssertEqual is a helper to fail the test if two values are not equal
func AssertEqual(t testing.TB, got, want interface{}, msgAndArgs ...interface{}) {
	t.Helper()
	if got != want {
		if len(msgAndArgs) > 0 {
			t.Fatalf("%v: got %v, want %v", msgAndArgs[0], got, want)
		} else {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}
