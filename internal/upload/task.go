package upload

// Status is the lifecycle state of a task. Transitions are monotonic:
// pending -> uploading -> processing -> completed, with error reachable from
// uploading or processing. A task never re-enters pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusUploading  Status = "uploading"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Terminal reports whether the status is a terminal state.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Task tracks one file through the pipeline. The task id is assigned by the
// scheduler and is distinct from the server-assigned resource id, which is
// populated only on success. Tasks are mutated exclusively by the worker
// driving them; callers observe copies via progress snapshots.
type Task struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Path        string `json:"-"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Status      Status `json:"status"`
	Progress    int    `json:"progress"` // 0-100
	Error       string `json:"error,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
}
