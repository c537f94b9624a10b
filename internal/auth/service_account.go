package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/dl-alexandre/mrisync/internal/utils"
	"github.com/dl-alexandre/mrisync/pkg/version"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// ServiceAccountKey represents the JSON structure of a service account key file
type ServiceAccountKey struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	ClientID     string `json:"client_id"`
	TokenURI     string `json:"token_uri"`
}

// ServiceOptions tunes the Drive client built from a key file
type ServiceOptions struct {
	// Scopes default to utils.ScopesSync.
	Scopes []string
	// ImpersonateUser is a Workspace user the service account acts for
	// through domain-wide delegation.
	ImpersonateUser string
	// Transport wraps every HTTP call, including token exchange.
	Transport http.RoundTripper
	// Endpoint overrides the Drive API base URL.
	Endpoint string
}

// LoadServiceAccountKey reads and checks a service-account key file. A
// missing file is a configuration error; a file that is not a usable
// service-account key is an authentication error.
func LoadServiceAccountKey(path string) (*ServiceAccountKey, []byte, error) {
	if path == "" {
		return nil, nil, utils.ConfigError("Service account key file is required", nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, utils.ConfigError("Cannot read service account key "+path, err)
	}

	var key ServiceAccountKey
	if err := json.Unmarshal(data, &key); err != nil {
		return nil, nil, invalidKey(path, "key file is not valid JSON")
	}
	if key.Type != "service_account" {
		return nil, nil, invalidKey(path, "invalid service account key type: "+key.Type)
	}
	if key.ClientEmail == "" {
		return nil, nil, invalidKey(path, "missing client_email in service account key")
	}
	if key.PrivateKey == "" {
		return nil, nil, invalidKey(path, "missing private_key in service account key")
	}
	return &key, data, nil
}

// NewDriveService builds an authenticated Drive client from a key file. No
// token is requested until the first API call.
func NewDriveService(ctx context.Context, keyPath string, opts ServiceOptions) (*drive.Service, *ServiceAccountKey, error) {
	key, data, err := LoadServiceAccountKey(keyPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.ImpersonateUser != "" && !strings.Contains(opts.ImpersonateUser, "@") {
		return nil, nil, utils.ConfigError("Impersonated user must be an email address", nil)
	}

	scopes := opts.Scopes
	if len(scopes) == 0 {
		scopes = utils.ScopesSync
	}

	jwtConfig, err := google.JWTConfigFromJSON(data, scopes...)
	if err != nil {
		return nil, nil, invalidKey(keyPath, err.Error())
	}
	jwtConfig.Subject = opts.ImpersonateUser

	if opts.Transport != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: opts.Transport})
	}

	clientOpts := []option.ClientOption{option.WithHTTPClient(jwtConfig.Client(ctx))}
	if opts.Endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(opts.Endpoint))
	}

	service, err := drive.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, nil, utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
			"Failed to create Drive service").
			WithContext("cause", err.Error()).
			Build())
	}
	service.UserAgent = version.Get().UserAgent()
	return service, key, nil
}

func invalidKey(path, reason string) *utils.AppError {
	return utils.NewAppError(utils.NewCLIError(utils.ErrCodeAuthInvalid,
		"Invalid service account key").
		WithContext("path", path).
		WithContext("reason", reason).
		Build())
}
