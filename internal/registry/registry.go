// Package registry owns the task collection and performs every state
// transition. Each mutation runs load-mutate-persist as a single critical
// section and then publishes the corresponding live-update event.
package registry

import (
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ncr5012/executive/internal/api"
	"github.com/ncr5012/executive/internal/events"
	"github.com/ncr5012/executive/internal/store"
)

// Typed errors returned by registry operations. The HTTP layer maps
// ErrValidation to 400 and ErrNotFound to 404.
var (
	ErrValidation = errors.New("invalid request")
	ErrNotFound   = errors.New("not found")
)

type Registry struct {
	mu     sync.Mutex // serializes all load-mutate-persist cycles
	store  *store.Store
	broker *events.Broker
}

func New(st *store.Store, br *events.Broker) *Registry {
	return &Registry{store: st, broker: br}
}

// Register binds a new task to sessionID, or returns the existing task for
// a session that already has one. Re-registration makes no mutation.
func (r *Registry) Register(sessionID, machine, cwd string) (string, bool, error) {
	if sessionID == "" {
		return "", false, fmt.Errorf("sessionId required: %w", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load()
	if err != nil {
		return "", false, err
	}
	for _, t := range doc.Tasks {
		if t.SessionID != nil && *t.SessionID == sessionID {
			return t.ID, true, nil
		}
	}

	title := "unknown"
	if cwd != "" {
		title = path.Base(cwd)
	}
	if machine == "" {
		machine = "unknown"
	}
	task := &api.Task{
		ID:        uuid.NewString(),
		Title:     truncateTitle(title),
		Tier:      api.DefaultTier,
		Status:    api.StatusWorking,
		Machine:   &machine,
		SessionID: &sessionID,
		CreatedAt: now(),
	}
	if cwd != "" {
		task.Cwd = &cwd
	}

	doc.Tasks = append(doc.Tasks, task)
	if err := r.store.Save(doc); err != nil {
		return "", false, err
	}
	r.broker.Publish(api.EventTaskCreated, task)
	return task.ID, false, nil
}

// CreateManual creates a dashboard-entered task with no session binding.
func (r *Registry) CreateManual(title string) (*api.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title required: %w", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	task := &api.Task{
		ID:        uuid.NewString(),
		Title:     truncateTitle(title),
		Tier:      api.DefaultTier,
		Status:    api.StatusQueued,
		Manual:    true,
		CreatedAt: now(),
	}
	doc.Tasks = append(doc.Tasks, task)
	if err := r.store.Save(doc); err != nil {
		return nil, err
	}
	r.broker.Publish(api.EventTaskCreated, task)
	return task, nil
}

// Complete marks the task done. Completing an already-done task is a no-op:
// no write, no event.
func (r *Registry) Complete(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("taskId required: %w", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load()
	if err != nil {
		return err
	}
	task := findTask(doc, taskID)
	if task == nil {
		return ErrNotFound
	}
	if task.Status == api.StatusDone {
		return nil
	}

	task.Status = api.StatusDone
	ts := now()
	task.CompletedAt = &ts
	if err := r.store.Save(doc); err != nil {
		return err
	}
	r.broker.Publish(api.EventTaskComplete, task)
	return nil
}

// Resume puts the task back to working and clears its completion stamp.
// Resuming a working task is a no-op.
func (r *Registry) Resume(taskID string) error {
	if taskID == "" {
		return fmt.Errorf("taskId required: %w", ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load()
	if err != nil {
		return err
	}
	task := findTask(doc, taskID)
	if task == nil {
		return ErrNotFound
	}
	if task.Status == api.StatusWorking {
		return nil
	}

	task.Status = api.StatusWorking
	task.CompletedAt = nil
	if err := r.store.Save(doc); err != nil {
		return err
	}
	r.broker.Publish(api.EventTaskUpdated, task)
	return nil
}

// CheckAutopilot reports whether unattended actions are allowed for the
// task. It fails closed: any malformed input, unknown id, or storage error
// yields false rather than an error, because callers sit on an automation
// critical path that must never block.
func (r *Registry) CheckAutopilot(taskID, check string) bool {
	if check != "1" || taskID == "" {
		return false
	}
	doc, err := r.store.Load()
	if err != nil {
		return false
	}
	task := findTask(doc, taskID)
	if task == nil {
		return false
	}
	return task.Autopilot
}

// Patch applies the fields present in p. Status edits are honored only for
// manual tasks and only for known status values; setting done stamps the
// completion time, anything else clears it. A task-updated event is
// published even when nothing changed.
func (r *Registry) Patch(taskID string, p api.TaskPatch) (*api.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	task := findTask(doc, taskID)
	if task == nil {
		return nil, ErrNotFound
	}

	if p.Autopilot != nil {
		task.Autopilot = *p.Autopilot
	}
	if p.Tier != nil && *p.Tier != "" {
		task.Tier = *p.Tier
	}
	if p.Title != nil && *p.Title != "" {
		task.Title = truncateTitle(*p.Title)
	}
	if p.Status != nil && task.Manual && validStatus(*p.Status) {
		task.Status = *p.Status
		if *p.Status == api.StatusDone {
			ts := now()
			task.CompletedAt = &ts
		} else {
			task.CompletedAt = nil
		}
	}

	if err := r.store.Save(doc); err != nil {
		return nil, err
	}
	r.broker.Publish(api.EventTaskUpdated, task)
	return task, nil
}

// Delete removes the task if present. Deleting an unknown id still succeeds.
func (r *Registry) Delete(taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.store.Load()
	if err != nil {
		return err
	}
	kept := doc.Tasks[:0]
	for _, t := range doc.Tasks {
		if t.ID != taskID {
			kept = append(kept, t)
		}
	}
	doc.Tasks = kept
	if err := r.store.Save(doc); err != nil {
		return err
	}
	r.broker.Publish(api.EventTaskDeleted, api.DeletedTask{ID: taskID})
	return nil
}

// List returns the latest persisted snapshot. Reads do not take the
// mutation lock; the atomic document replace guarantees a consistent view.
func (r *Registry) List() (*api.TaskDocument, error) {
	return r.store.Load()
}

func findTask(doc *api.TaskDocument, id string) *api.Task {
	for _, t := range doc.Tasks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func validStatus(s string) bool {
	switch s {
	case api.StatusQueued, api.StatusWorking, api.StatusDone:
		return true
	default:
		return false
	}
}

func truncateTitle(s string) string {
	rs := []rune(s)
	if len(rs) > api.MaxTitleLen {
		return string(rs[:api.MaxTitleLen])
	}
	return s
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
