package tracker_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"tasktrail/internal/config"
	"tasktrail/internal/db"
	"tasktrail/internal/domain"
	"tasktrail/internal/migrate"
	"tasktrail/internal/repo"
	"tasktrail/internal/tracker"
)

type testEnv struct {
	Tracker *tracker.Tracker
	Ctx     context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	tr := tracker.New(conn, config.Default())
	tr.Now = func() time.Time { return time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC) }
	return &testEnv{Tracker: tr, Ctx: context.Background()}
}

func mustCreate(t *testing.T, env *testEnv, opts tracker.CreateOptions) domain.Task {
	t.Helper()
	task, err := env.Tracker.Create(env.Ctx, opts)
	if err != nil {
		t.Fatalf("create %q: %v", opts.Title, err)
	}
	return task
}

// insertRaw writes a row behind the tracker's back, the way another process
// sharing the store would.
func insertRaw(t *testing.T, env *testEnv, title string, priority int) int64 {
	t.Helper()
	tx, err := env.Tracker.DB.BeginTx(env.Ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	id, err := env.Tracker.Repo.InsertTask(env.Ctx, tx, domain.Task{
		Title:        title,
		Priority:     priority,
		Status:       domain.StatusTodo,
		LastModified: "2026-08-21T12:00:00Z",
		CreatedAt:    "2026-08-21T12:00:00Z",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	return id
}

func intp(v int) *int       { return &v }
func strp(v string) *string { return &v }

func TestCreateAppliesDefaults(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "  pay rent  "})

	if task.ID == 0 {
		t.Fatalf("no id assigned")
	}
	if task.Title != "pay rent" {
		t.Fatalf("title = %q, want trimmed", task.Title)
	}
	if task.Priority != 3 || task.Status != domain.StatusTodo || task.Category != "uncategorized" {
		t.Fatalf("defaults not applied: %+v", task)
	}
	if task.CreatedAt != "2026-08-21T12:00:00Z" || task.LastModified != task.CreatedAt {
		t.Fatalf("timestamps = %s / %s", task.CreatedAt, task.LastModified)
	}
	got, err := env.Tracker.Get(env.Ctx, task.ID)
	if err != nil || got.Title != "pay rent" {
		t.Fatalf("round trip = %+v, %v", got, err)
	}
	if tasks := env.Tracker.TasksByPriority(); len(tasks) != 1 || tasks[0].ID != task.ID {
		t.Fatalf("views missed the create: %+v", tasks)
	}
}

func TestCreateOverrides(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{
		Title:    "write report",
		Priority: intp(5),
		Status:   domain.StatusInProgress,
		DueDate:  "2026-09-01",
		Category: "work",
	})
	if task.Priority != 5 || task.Status != domain.StatusInProgress || task.DueDate != "2026-09-01" || task.Category != "work" {
		t.Fatalf("overrides not applied: %+v", task)
	}
}

func TestCreateRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Tracker.Create(env.Ctx, tracker.CreateOptions{Title: "   "}); err == nil {
		t.Fatalf("blank title accepted")
	}
}

func TestGetMissing(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Tracker.Get(env.Ctx, 42); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateFields(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "draft"})

	got, err := env.Tracker.Update(env.Ctx, tracker.UpdateOptions{
		ID:       task.ID,
		Title:    strp("final"),
		Priority: intp(5),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Title != "final" || got.Priority != 5 {
		t.Fatalf("update result = %+v", got)
	}
	stored, err := env.Tracker.Get(env.Ctx, task.ID)
	if err != nil || stored.Title != "final" || stored.Priority != 5 {
		t.Fatalf("stored = %+v, %v", stored, err)
	}
	if d := env.Tracker.History.Summary(); d.UndoDepth != 2 {
		t.Fatalf("undo depth = %d, want 2", d.UndoDepth)
	}
}

func TestUpdateNoChange(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "steady"})

	got, err := env.Tracker.Update(env.Ctx, tracker.UpdateOptions{ID: task.ID, Title: strp("steady")})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.LastModified != task.LastModified {
		t.Fatalf("no-op update touched last_modified")
	}
	if d := env.Tracker.History.Summary(); d.UndoDepth != 1 {
		t.Fatalf("no-op update was recorded; undo depth = %d", d.UndoDepth)
	}
}

func TestUpdateMissing(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Tracker.Update(env.Ctx, tracker.UpdateOptions{ID: 42, Title: strp("x")})
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdateRejectsBlankTitle(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "keep me"})
	if _, err := env.Tracker.Update(env.Ctx, tracker.UpdateOptions{ID: task.ID, Title: strp("  ")}); err == nil {
		t.Fatalf("blank title accepted")
	}
	got, _ := env.Tracker.Get(env.Ctx, task.ID)
	if got.Title != "keep me" {
		t.Fatalf("failed update changed the store: %+v", got)
	}
}

func TestComplete(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "ship it"})

	got, err := env.Tracker.Complete(env.Ctx, task.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got.Status != domain.StatusCompleted || got.CompletedDate != "2026-08-21T12:00:00Z" {
		t.Fatalf("complete result = %+v", got)
	}
	stored, _ := env.Tracker.Get(env.Ctx, task.ID)
	if stored.Status != domain.StatusCompleted || stored.CompletedDate == "" {
		t.Fatalf("stored = %+v", stored)
	}
}

func TestDelete(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "oops"})

	got, err := env.Tracker.Delete(env.Ctx, task.ID)
	if err != nil || got.Title != "oops" {
		t.Fatalf("delete = %+v, %v", got, err)
	}
	if _, err := env.Tracker.Get(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("row still present: %v", err)
	}
	if tasks := env.Tracker.TasksByPriority(); len(tasks) != 0 {
		t.Fatalf("views still hold %d tasks", len(tasks))
	}
	if _, err := env.Tracker.Delete(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("double delete: %v", err)
	}
}

func TestUndoCreateDeletesByStoredID(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "mine"})
	other := insertRaw(t, env, "someone else's", 4)

	a, err := env.Tracker.Undo(env.Ctx)
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if a.Task.ID != task.ID {
		t.Fatalf("undo targeted #%d, want #%d", a.Task.ID, task.ID)
	}
	if _, err := env.Tracker.Get(env.Ctx, task.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("created row survived undo: %v", err)
	}
	// the newer row written by someone else is untouched
	got, err := env.Tracker.Get(env.Ctx, other)
	if err != nil || got.Title != "someone else's" {
		t.Fatalf("undo deleted the wrong row: %+v, %v", got, err)
	}
}

func TestUndoUpdateRestoresPrevious(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "draft"})
	if _, err := env.Tracker.Update(env.Ctx, tracker.UpdateOptions{ID: task.ID, Title: strp("final"), Priority: intp(5)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := env.Tracker.Undo(env.Ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got, _ := env.Tracker.Get(env.Ctx, task.ID)
	if got.Title != "draft" || got.Priority != 3 {
		t.Fatalf("undo left %+v", got)
	}

	if _, err := env.Tracker.Redo(env.Ctx); err != nil {
		t.Fatalf("redo: %v", err)
	}
	got, _ = env.Tracker.Get(env.Ctx, task.ID)
	if got.Title != "final" || got.Priority != 5 {
		t.Fatalf("redo left %+v", got)
	}
}

func TestUndoCompleteRestoresStatus(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "almost"})
	if _, err := env.Tracker.Complete(env.Ctx, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.Tracker.Undo(env.Ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got, _ := env.Tracker.Get(env.Ctx, task.ID)
	if got.Status != domain.StatusTodo || got.CompletedDate != "" {
		t.Fatalf("undo left %+v", got)
	}
}

func TestUndoDeleteRestoresOriginalID(t *testing.T) {
	env := newTestEnv(t)
	first := mustCreate(t, env, tracker.CreateOptions{Title: "first", Priority: intp(5)})
	mustCreate(t, env, tracker.CreateOptions{Title: "second"})

	if _, err := env.Tracker.Delete(env.Ctx, first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := env.Tracker.Undo(env.Ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got, err := env.Tracker.Get(env.Ctx, first.ID)
	if err != nil || got.Title != "first" || got.Priority != 5 {
		t.Fatalf("restored = %+v, %v", got, err)
	}
	if tasks := env.Tracker.TasksByPriority(); len(tasks) != 2 || tasks[0].ID != first.ID {
		t.Fatalf("views after restore: %+v", tasks)
	}
	if _, ok := env.Tracker.FindPriority(5); !ok {
		t.Fatalf("tree missed the restored task")
	}
}

func TestRedoCreateKeepsOriginalID(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "revenant"})
	if _, err := env.Tracker.Undo(env.Ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	// another row lands in between; the redo must not collide with it
	insertRaw(t, env, "bystander", 2)

	a, err := env.Tracker.Redo(env.Ctx)
	if err != nil {
		t.Fatalf("redo: %v", err)
	}
	if a.Task.ID != task.ID {
		t.Fatalf("redo recreated #%d, want #%d", a.Task.ID, task.ID)
	}
	got, err := env.Tracker.Get(env.Ctx, task.ID)
	if err != nil || got.Title != "revenant" {
		t.Fatalf("redone row = %+v, %v", got, err)
	}
}

func TestUndoRedoOnEmptyHistory(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.Tracker.Undo(env.Ctx); !errors.Is(err, tracker.ErrNothingToUndo) {
		t.Fatalf("undo err = %v", err)
	}
	if _, err := env.Tracker.Redo(env.Ctx); !errors.Is(err, tracker.ErrNothingToRedo) {
		t.Fatalf("redo err = %v", err)
	}
}

func TestNewMutationCutsRedoBranch(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "a"})
	if _, err := env.Tracker.Update(env.Ctx, tracker.UpdateOptions{ID: task.ID, Priority: intp(5)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := env.Tracker.Undo(env.Ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}
	mustCreate(t, env, tracker.CreateOptions{Title: "b"})

	if _, err := env.Tracker.Redo(env.Ctx); !errors.Is(err, tracker.ErrNothingToRedo) {
		t.Fatalf("redo after branch cut: %v", err)
	}
}

func TestEventsAuditTrail(t *testing.T) {
	env := newTestEnv(t)
	task := mustCreate(t, env, tracker.CreateOptions{Title: "tracked"})
	if _, err := env.Tracker.Update(env.Ctx, tracker.UpdateOptions{ID: task.ID, Priority: intp(5)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := env.Tracker.Complete(env.Ctx, task.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := env.Tracker.Undo(env.Ctx); err != nil {
		t.Fatalf("undo: %v", err)
	}

	got, err := env.Tracker.Repo.LatestEvents(env.Ctx, repo.EventFilters{})
	if err != nil {
		t.Fatalf("latest events: %v", err)
	}
	want := []string{"task.undo", "task.completed", "task.updated", "task.created"}
	if len(got) != len(want) {
		t.Fatalf("%d events recorded, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Type != w {
			t.Fatalf("event[%d] = %s, want %s", i, got[i].Type, w)
		}
		if got[i].SessionID != env.Tracker.Log.SessionID() {
			t.Fatalf("event[%d] session = %s", i, got[i].SessionID)
		}
		if got[i].TaskID != task.ID {
			t.Fatalf("event[%d] task = %d, want %d", i, got[i].TaskID, task.ID)
		}
	}
	if !strings.Contains(got[len(got)-1].Payload, `"title"`) {
		t.Fatalf("created payload = %s", got[len(got)-1].Payload)
	}

	byType, err := env.Tracker.Repo.LatestEvents(env.Ctx, repo.EventFilters{Type: "task.updated"})
	if err != nil || len(byType) != 1 {
		t.Fatalf("filter by type: %+v, %v", byType, err)
	}
}

func TestNextUpSkipsCompleted(t *testing.T) {
	env := newTestEnv(t)
	a := mustCreate(t, env, tracker.CreateOptions{Title: "urgent", Priority: intp(5)})
	b := mustCreate(t, env, tracker.CreateOptions{Title: "done soon", Priority: intp(4)})
	c := mustCreate(t, env, tracker.CreateOptions{Title: "later", Priority: intp(3)})
	if _, err := env.Tracker.Complete(env.Ctx, b.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got := env.Tracker.NextUp(2)
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != c.ID {
		t.Fatalf("next up = %+v", got)
	}
	if got := env.Tracker.NextUp(10); len(got) != 2 {
		t.Fatalf("next up overfetch = %d tasks", len(got))
	}
}

func TestViewQueries(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, tracker.CreateOptions{Title: "pay rent", Priority: intp(5), DueDate: "2026-08-19"})
	mustCreate(t, env, tracker.CreateOptions{Title: "write report", Priority: intp(3), DueDate: "2026-08-25", Category: "work"})
	mustCreate(t, env, tracker.CreateOptions{Title: "someday", Priority: intp(1)})
	mustCreate(t, env, tracker.CreateOptions{Title: "archive", Priority: intp(2), DueDate: "2026-09-15"})

	if got := env.Tracker.Overdue(); len(got) != 1 || got[0].Title != "pay rent" {
		t.Fatalf("overdue = %+v", got)
	}
	if got := env.Tracker.DueSoon(); len(got) != 1 || got[0].Title != "write report" {
		t.Fatalf("due soon = %+v", got)
	}
	if got := env.Tracker.HighPriority(); len(got) != 2 || got[0].Priority != 5 || got[1].Priority != 3 {
		t.Fatalf("high priority = %+v", got)
	}
	if got, ok := env.Tracker.FindPriority(5); !ok || got.Title != "pay rent" {
		t.Fatalf("find priority 5 = %+v %v", got, ok)
	}
	if _, ok := env.Tracker.FindPriority(4); ok {
		t.Fatalf("find priority 4 should miss")
	}
	asc := env.Tracker.PrioritiesAscending()
	for i, want := range []int{1, 2, 3, 5} {
		if asc[i].Priority != want {
			t.Fatalf("ascending[%d] = %d, want %d", i, asc[i].Priority, want)
		}
	}
	s := env.Tracker.Summary()
	if s.Total != 4 || s.Todo != 4 || s.Overdue != 1 || s.HighPriority != 2 || s.DueSoon != 1 {
		t.Fatalf("summary = %+v", s)
	}
	if s.ByCategory["work"] != 1 || s.ByCategory["uncategorized"] != 3 {
		t.Fatalf("by category = %v", s.ByCategory)
	}
}

func TestRebuildPicksUpForeignWrites(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, tracker.CreateOptions{Title: "mine"})
	insertRaw(t, env, "theirs", 5)

	if err := env.Tracker.Rebuild(env.Ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	tasks := env.Tracker.TasksByPriority()
	if len(tasks) != 2 || tasks[0].Title != "theirs" {
		t.Fatalf("rebuild views = %+v", tasks)
	}
}

func TestFreshSessionHasEmptyHistory(t *testing.T) {
	env := newTestEnv(t)
	mustCreate(t, env, tracker.CreateOptions{Title: "persisted"})

	fresh := tracker.New(env.Tracker.DB, config.Default())
	fresh.Now = env.Tracker.Now
	if err := fresh.Rebuild(env.Ctx); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if got := fresh.TasksByPriority(); len(got) != 1 {
		t.Fatalf("fresh session sees %d tasks", len(got))
	}
	if fresh.History.CanUndo() {
		t.Fatalf("history leaked across sessions")
	}
	if fresh.Log.SessionID() == env.Tracker.Log.SessionID() {
		t.Fatalf("session ids collide")
	}
}
