package tracker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"tasktrail/internal/config"
	"tasktrail/internal/domain"
	"tasktrail/internal/events"
	"tasktrail/internal/history"
	"tasktrail/internal/repo"
	"tasktrail/internal/views"
)

var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// Tracker owns the durable store and the volatile session state over it:
// two ordered indexes, the priority tree, the undo/redo history, and the
// operation log. It is single-threaded; callers serialize access.
//
// Mutations run as store transaction first, history second, view rebuild
// last. The store is authoritative; everything else is derived from it.
type Tracker struct {
	DB      *sql.DB
	Repo    repo.Repo
	Events  events.Writer
	Config  *config.Config
	History *history.UndoRedo
	Log     *history.OperationLog
	Now     func() time.Time

	byPriority   *views.OrderedIndex
	byDueDate    *views.OrderedIndex
	priorityTree *views.PriorityTree
}

func New(db *sql.DB, cfg *config.Config) *Tracker {
	sessionID := uuid.New().String()
	return &Tracker{
		DB:           db,
		Repo:         repo.Repo{DB: db},
		Events:       events.Writer{DB: db, SessionID: sessionID},
		Config:       cfg,
		History:      history.NewUndoRedo(cfg.History.Capacity),
		Log:          history.NewOperationLog(sessionID, cfg.History.LogCapacity, nil),
		Now:          time.Now,
		byPriority:   views.NewOrderedIndex(views.ByPriority),
		byDueDate:    views.NewOrderedIndex(views.ByDueDate),
		priorityTree: views.NewPriorityTree(),
	}
}

func (t *Tracker) now() time.Time {
	if t.Now == nil {
		return time.Now()
	}
	return t.Now()
}

// Rebuild discards the in-memory views and rebuilds them from the store.
func (t *Tracker) Rebuild(ctx context.Context) error {
	tasks, err := t.Repo.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("rebuild views: %w", err)
	}
	t.byPriority = views.BuildPriorityIndex(tasks)
	t.byDueDate = views.BuildDueDateIndex(tasks)
	t.priorityTree = views.BuildPriorityTree(tasks)
	return nil
}

type CreateOptions struct {
	Title       string
	Description string
	Priority    *int
	Status      string
	DueDate     string
	Category    string
}

func (t *Tracker) Create(ctx context.Context, opts CreateOptions) (domain.Task, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Task{}, fmt.Errorf("title is required")
	}
	now := t.now().UTC().Format(time.RFC3339)
	task := domain.Task{
		Title:        title,
		Description:  opts.Description,
		Priority:     t.Config.Defaults.Priority,
		Status:       domain.StatusTodo,
		DueDate:      opts.DueDate,
		Category:     t.Config.Defaults.Category,
		LastModified: now,
		CreatedAt:    now,
	}
	if opts.Priority != nil {
		task.Priority = *opts.Priority
	}
	if opts.Status != "" {
		task.Status = opts.Status
	}
	if opts.Category != "" {
		task.Category = opts.Category
	}

	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	id, err := t.Repo.InsertTask(ctx, tx, task)
	if err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	task.ID = id
	err = t.Events.Append(ctx, tx, "task.created", id, events.EventPayload{
		"title":    task.Title,
		"priority": task.Priority,
		"status":   task.Status,
	})
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}

	t.History.Record(history.Action{Kind: history.KindCreate, Task: task, RecordedAt: now})
	t.Log.Log("create", id, fmt.Sprintf("%q priority %d", task.Title, task.Priority))
	if err := t.Rebuild(ctx); err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

type UpdateOptions struct {
	ID          int64
	Title       *string
	Description *string
	Priority    *int
	Status      *string
	DueDate     *string
	Category    *string
}

func (t *Tracker) Update(ctx context.Context, opts UpdateOptions) (domain.Task, error) {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	prev, err := t.Repo.GetTaskTx(ctx, tx, opts.ID)
	if err != nil {
		return domain.Task{}, err
	}
	next := prev
	var changed []string
	if opts.Title != nil {
		title := strings.TrimSpace(*opts.Title)
		if title == "" {
			return domain.Task{}, fmt.Errorf("title is required")
		}
		if title != prev.Title {
			next.Title = title
			changed = append(changed, "title")
		}
	}
	if opts.Description != nil && *opts.Description != prev.Description {
		next.Description = *opts.Description
		changed = append(changed, "description")
	}
	if opts.Priority != nil && *opts.Priority != prev.Priority {
		next.Priority = *opts.Priority
		changed = append(changed, "priority")
	}
	if opts.Status != nil && *opts.Status != prev.Status {
		next.Status = *opts.Status
		changed = append(changed, "status")
	}
	if opts.DueDate != nil && *opts.DueDate != prev.DueDate {
		next.DueDate = *opts.DueDate
		changed = append(changed, "due_date")
	}
	if opts.Category != nil && *opts.Category != prev.Category {
		next.Category = *opts.Category
		changed = append(changed, "category")
	}
	if len(changed) == 0 {
		return prev, nil
	}
	now := t.now().UTC().Format(time.RFC3339)
	next.LastModified = now
	if err := t.Repo.ReplaceTask(ctx, tx, next); err != nil {
		return domain.Task{}, fmt.Errorf("update task %d: %w", opts.ID, err)
	}
	err = t.Events.Append(ctx, tx, "task.updated", next.ID, events.EventPayload{"fields": changed})
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}

	t.History.Record(history.Action{Kind: history.KindUpdate, Task: next, Previous: &prev, RecordedAt: now})
	t.Log.Log("update", next.ID, strings.Join(changed, ","))
	if err := t.Rebuild(ctx); err != nil {
		return domain.Task{}, err
	}
	return next, nil
}

// Complete marks a task completed and stamps the completion time. It is the
// only operation that writes CompletedDate.
func (t *Tracker) Complete(ctx context.Context, id int64) (domain.Task, error) {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	prev, err := t.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}
	now := t.now().UTC().Format(time.RFC3339)
	next := prev
	next.Status = domain.StatusCompleted
	next.CompletedDate = now
	next.LastModified = now
	if err := t.Repo.ReplaceTask(ctx, tx, next); err != nil {
		return domain.Task{}, fmt.Errorf("complete task %d: %w", id, err)
	}
	err = t.Events.Append(ctx, tx, "task.completed", id, events.EventPayload{"title": next.Title})
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}

	t.History.Record(history.Action{Kind: history.KindUpdate, Task: next, Previous: &prev, RecordedAt: now})
	t.Log.Log("complete", id, fmt.Sprintf("%q", next.Title))
	if err := t.Rebuild(ctx); err != nil {
		return domain.Task{}, err
	}
	return next, nil
}

func (t *Tracker) Delete(ctx context.Context, id int64) (domain.Task, error) {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, err
	}
	defer tx.Rollback()
	prev, err := t.Repo.GetTaskTx(ctx, tx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := t.Repo.DeleteTask(ctx, tx, id); err != nil {
		return domain.Task{}, fmt.Errorf("delete task %d: %w", id, err)
	}
	err = t.Events.Append(ctx, tx, "task.deleted", id, events.EventPayload{"title": prev.Title})
	if err != nil {
		return domain.Task{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Task{}, err
	}

	now := t.now().UTC().Format(time.RFC3339)
	t.History.Record(history.Action{Kind: history.KindDelete, Task: prev, RecordedAt: now})
	t.Log.Log("delete", id, fmt.Sprintf("%q", prev.Title))
	if err := t.Rebuild(ctx); err != nil {
		return domain.Task{}, err
	}
	return prev, nil
}

// Undo reverses the most recent recorded action: a create is deleted by its
// stored id, an update is rolled back to its previous snapshot, a delete is
// re-inserted under its original id. The action moves to the redo stack
// before the store write runs; if that write fails the error surfaces and
// the store stays authoritative.
func (t *Tracker) Undo(ctx context.Context) (history.Action, error) {
	a, ok := t.History.Undo()
	if !ok {
		return history.Action{}, ErrNothingToUndo
	}
	if err := t.applyInverse(ctx, a); err != nil {
		return history.Action{}, fmt.Errorf("undo %s: %w", a.Describe(), err)
	}
	t.Log.Log("undo", a.Task.ID, a.Describe())
	if err := t.Rebuild(ctx); err != nil {
		return history.Action{}, err
	}
	return a, nil
}

// Redo re-applies the most recently undone action. A redone create keeps the
// task's original id.
func (t *Tracker) Redo(ctx context.Context) (history.Action, error) {
	a, ok := t.History.Redo()
	if !ok {
		return history.Action{}, ErrNothingToRedo
	}
	if err := t.applyForward(ctx, a); err != nil {
		return history.Action{}, fmt.Errorf("redo %s: %w", a.Describe(), err)
	}
	t.Log.Log("redo", a.Task.ID, a.Describe())
	if err := t.Rebuild(ctx); err != nil {
		return history.Action{}, err
	}
	return a, nil
}

func (t *Tracker) applyInverse(ctx context.Context, a history.Action) error {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	switch a.Kind {
	case history.KindCreate:
		err = t.Repo.DeleteTask(ctx, tx, a.Task.ID)
	case history.KindUpdate:
		err = t.Repo.ReplaceTask(ctx, tx, *a.Previous)
	case history.KindDelete:
		err = t.Repo.RestoreTask(ctx, tx, a.Task)
	default:
		err = fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if err != nil {
		return err
	}
	err = t.Events.Append(ctx, tx, "task.undo", a.Task.ID, events.EventPayload{"action": string(a.Kind)})
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (t *Tracker) applyForward(ctx context.Context, a history.Action) error {
	tx, err := t.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	switch a.Kind {
	case history.KindCreate:
		err = t.Repo.RestoreTask(ctx, tx, a.Task)
	case history.KindUpdate:
		err = t.Repo.ReplaceTask(ctx, tx, a.Task)
	case history.KindDelete:
		err = t.Repo.DeleteTask(ctx, tx, a.Task.ID)
	default:
		err = fmt.Errorf("unknown action kind %q", a.Kind)
	}
	if err != nil {
		return err
	}
	err = t.Events.Append(ctx, tx, "task.redo", a.Task.ID, events.EventPayload{"action": string(a.Kind)})
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Get reads one task from the store.
func (t *Tracker) Get(ctx context.Context, id int64) (domain.Task, error) {
	return t.Repo.GetTask(ctx, id)
}

// The list queries below serve from the in-memory views.

func (t *Tracker) TasksByPriority() []domain.Task { return t.byPriority.Tasks() }
func (t *Tracker) TasksByDueDate() []domain.Task  { return t.byDueDate.Tasks() }

func (t *Tracker) ByStatus(status string) []domain.Task {
	return t.byPriority.ByStatus(status)
}

func (t *Tracker) ByMinPriority(min int) []domain.Task {
	return t.byPriority.ByMinPriority(min)
}

func (t *Tracker) HighPriority() []domain.Task {
	return t.byPriority.ByMinPriority(t.Config.Queries.HighPriorityMin)
}

func (t *Tracker) Overdue() []domain.Task {
	return t.byDueDate.Overdue(t.now())
}

func (t *Tracker) DueWithin(days int) []domain.Task {
	return t.byDueDate.DueWithin(t.now(), days)
}

func (t *Tracker) DueSoon() []domain.Task {
	return t.DueWithin(t.Config.Queries.DueSoonDays)
}

// FindPriority looks up one task with the exact priority via the tree.
func (t *Tracker) FindPriority(priority int) (domain.Task, bool) {
	return t.priorityTree.Search(priority)
}

// PrioritiesAscending returns all tasks in tree in-order, lowest priority
// first.
func (t *Tracker) PrioritiesAscending() []domain.Task {
	return t.priorityTree.InOrder()
}

func (t *Tracker) Summary() views.Summary {
	return t.byPriority.Summarize(views.SummaryOptions{
		Now:         t.now(),
		MinPriority: t.Config.Queries.HighPriorityMin,
		DueSoonDays: t.Config.Queries.DueSoonDays,
	})
}

// NextUp queues the not-completed tasks in priority order and returns the
// first n of them.
func (t *Tracker) NextUp(n int) []domain.Task {
	var q views.TaskQueue
	for _, task := range t.byPriority.Tasks() {
		if task.Status == domain.StatusCompleted {
			continue
		}
		q.Enqueue(task)
	}
	var out []domain.Task
	for len(out) < n {
		task, ok := q.Dequeue()
		if !ok {
			break
		}
		out = append(out, task)
	}
	return out
}
