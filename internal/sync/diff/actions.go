package diff

type ActionType string

const (
	ActionMkdirRemote        ActionType = "mkdir_remote"
	ActionUpload             ActionType = "upload"
	ActionUpdate             ActionType = "update"
	ActionDeleteRemoteFolder ActionType = "delete_remote_folder"
	ActionDeleteRemoteFile   ActionType = "delete_remote_file"
)

// Action is one remote mutation. Path is the local path for creates,
// uploads and updates; RemoteID is the target for updates and deletes.
type Action struct {
	Type     ActionType
	Name     string
	Path     string
	RemoteID string
	ParentID string
	Depth    int
}

func (t ActionType) IsDelete() bool {
	return t == ActionDeleteRemoteFolder || t == ActionDeleteRemoteFile
}
