package api

// Server defaults used by the hook client when no host file or env override
// is present.
const (
	DefaultHost = "localhost"
	DefaultPort = 7777
)

// MaxTitleLen bounds task titles at persistence time.
const MaxTitleLen = 500

// DefaultTier is the classification assigned to new tasks.
const DefaultTier = "routine"

// Task statuses.
const (
	StatusQueued  = "queued"
	StatusWorking = "working"
	StatusDone    = "done"
)

// Live-update event names streamed over /api/events.
const (
	EventTaskCreated  = "task-created"
	EventTaskComplete = "task-complete"
	EventTaskUpdated  = "task-updated"
	EventTaskDeleted  = "task-deleted"
)

// Task is the sole tracked entity: one unit of work, bound to at most one
// external session. Pointer fields serialize as JSON null when unset.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Tier        string  `json:"tier"`
	Status      string  `json:"status"`
	Machine     *string `json:"machine"`
	Autopilot   bool    `json:"autopilot"`
	SessionID   *string `json:"sessionId"`
	Cwd         *string `json:"cwd"`
	Manual      bool    `json:"manual,omitempty"`
	CreatedAt   string  `json:"createdAt"`
	CompletedAt *string `json:"completedAt"`
}

// TaskDocument is the full durable state: the ordered task collection,
// rewritten as a whole on every mutation.
type TaskDocument struct {
	Tasks []*Task `json:"tasks"`
}

type RegisterRequest struct {
	SessionID string `json:"sessionId"`
	Machine   string `json:"machine"`
	Cwd       string `json:"cwd"`
}

type RegisterResponse struct {
	TaskID  string `json:"taskId"`
	Resumed bool   `json:"resumed"`
}

// TaskRef carries a bare task id (complete, resume).
type TaskRef struct {
	TaskID string `json:"taskId"`
}

type AutopilotRequest struct {
	TaskID string `json:"taskId"`
	Check  string `json:"check"`
}

type AutopilotResponse struct {
	Allow bool `json:"allow"`
}

type ManualTaskRequest struct {
	Title string `json:"title"`
}

// TaskPatch applies only the fields present in the request body.
type TaskPatch struct {
	Autopilot *bool   `json:"autopilot"`
	Tier      *string `json:"tier"`
	Title     *string `json:"title"`
	Status    *string `json:"status"`
}

// DeletedTask is the payload of a task-deleted event.
type DeletedTask struct {
	ID string `json:"id"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type LoginRequest struct {
	Password string `json:"password"`
}
