package errors

import (
	"errors"
	"testing"

	"github.com/dl-alexandre/mrisync/internal/logging"
	"github.com/dl-alexandre/mrisync/internal/types"
	"github.com/dl-alexandre/mrisync/internal/utils"
	"google.golang.org/api/googleapi"
)

func TestClassifyGoogleAPIError(t *testing.T) {
	reqCtx := &types.RequestContext{TraceID: "trace", RequestType: types.RequestTypeMutation}
	logger := logging.NewNoOpLogger()

	tests := []struct {
		name          string
		err           error
		wantCode      string
		wantRetryable bool
	}{
		{"not found", &googleapi.Error{Code: 404, Message: "File not found"}, utils.ErrCodeFileNotFound, false},
		{"rate limit", &googleapi.Error{Code: 429}, utils.ErrCodeRateLimited, true},
		{"quota", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "storageQuotaExceeded"}}}, utils.ErrCodeQuotaExceeded, false},
		{"user rate", &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "userRateLimitExceeded"}}}, utils.ErrCodeRateLimited, true},
		{"server", &googleapi.Error{Code: 503}, utils.ErrCodeNetworkError, true},
		{"auth", &googleapi.Error{Code: 401}, utils.ErrCodeAuthExpired, false},
		{"transport", errors.New("connection reset"), utils.ErrCodeNetworkError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ClassifyGoogleAPIError("drive", tt.err, reqCtx, logger)
			appErr, ok := err.(*utils.AppError)
			if !ok {
				t.Fatalf("expected *utils.AppError, got %T", err)
			}
			if appErr.CLIError.Code != tt.wantCode {
				t.Errorf("Code = %s, want %s", appErr.CLIError.Code, tt.wantCode)
			}
			if appErr.CLIError.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", appErr.CLIError.Retryable, tt.wantRetryable)
			}
		})
	}
}
