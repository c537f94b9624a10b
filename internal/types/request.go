package types

// RequestType tags API calls for logging and error classification
type RequestType string

const (
	RequestTypeGetByID      RequestType = "get_by_id"
	RequestTypeListChildren RequestType = "list_children"
	RequestTypeMutation     RequestType = "mutation"
	RequestTypeUpload       RequestType = "upload"
)

// RequestContext carries per-run tracing information through API calls
type RequestContext struct {
	Profile           string
	DriveID           string
	InvolvedFileIDs   []string
	InvolvedParentIDs []string
	RequestType       RequestType
	TraceID           string
}

// Derive copies the context with a different request type, dropping the
// per-call file and parent IDs
func (r *RequestContext) Derive(requestType RequestType) *RequestContext {
	return &RequestContext{
		Profile:           r.Profile,
		DriveID:           r.DriveID,
		InvolvedFileIDs:   []string{},
		InvolvedParentIDs: []string{},
		RequestType:       requestType,
		TraceID:           r.TraceID,
	}
}
