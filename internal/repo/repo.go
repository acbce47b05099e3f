package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"tasktrail/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const taskCols = `id,title,description,priority,status,due_date,category,completed_date,last_modified,created_at`

func scanTask(row *sql.Row) (domain.Task, error) {
	var t domain.Task
	var description, dueDate, category, completedDate sql.NullString
	err := row.Scan(&t.ID, &t.Title, &description, &t.Priority, &t.Status, &dueDate, &category, &completedDate, &t.LastModified, &t.CreatedAt)
	if err == sql.ErrNoRows {
		return t, ErrNotFound
	}
	if err != nil {
		return t, err
	}
	t.Description = description.String
	t.DueDate = dueDate.String
	t.Category = category.String
	t.CompletedDate = completedDate.String
	return t, nil
}

// InsertTask stores a new task and returns the id the database assigned.
func (r Repo) InsertTask(ctx context.Context, tx *sql.Tx, t domain.Task) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO tasks(title,description,priority,status,due_date,category,completed_date,last_modified,created_at) VALUES (?,?,?,?,?,?,?,?,?)`,
		t.Title, nullable(t.Description), t.Priority, t.Status, nullable(t.DueDate), nullable(t.Category), nullable(t.CompletedDate), t.LastModified, t.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// RestoreTask re-inserts a previously deleted task under its original id.
func (r Repo) RestoreTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO tasks(id,title,description,priority,status,due_date,category,completed_date,last_modified,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		t.ID, t.Title, nullable(t.Description), t.Priority, t.Status, nullable(t.DueDate), nullable(t.Category), nullable(t.CompletedDate), t.LastModified, t.CreatedAt)
	return err
}

// ReplaceTask writes every mutable column of an existing task.
func (r Repo) ReplaceTask(ctx context.Context, tx *sql.Tx, t domain.Task) error {
	res, err := tx.ExecContext(ctx, `UPDATE tasks SET title=?, description=?, priority=?, status=?, due_date=?, category=?, completed_date=?, last_modified=? WHERE id=?`,
		t.Title, nullable(t.Description), t.Priority, t.Status, nullable(t.DueDate), nullable(t.Category), nullable(t.CompletedDate), t.LastModified, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteTask(ctx context.Context, tx *sql.Tx, id int64) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetTask(ctx context.Context, id int64) (domain.Task, error) {
	return scanTask(r.DB.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id))
}

func (r Repo) GetTaskTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Task, error) {
	return scanTask(tx.QueryRowContext(ctx, `SELECT `+taskCols+` FROM tasks WHERE id=?`, id))
}

// ListTasks returns every task ordered by id so rebuilds are deterministic.
func (r Repo) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+taskCols+` FROM tasks ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Task
	for rows.Next() {
		var t domain.Task
		var description, dueDate, category, completedDate sql.NullString
		if err := rows.Scan(&t.ID, &t.Title, &description, &t.Priority, &t.Status, &dueDate, &category, &completedDate, &t.LastModified, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Description = description.String
		t.DueDate = dueDate.String
		t.Category = category.String
		t.CompletedDate = completedDate.String
		res = append(res, t)
	}
	return res, rows.Err()
}

func (r Repo) CountTasks(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT count(*) FROM tasks`).Scan(&n)
	return n, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

type EventFilters struct {
	Type   string
	TaskID int64
	Limit  int
}

// LatestEvents returns audit events newest first.
func (r Repo) LatestEvents(ctx context.Context, f EventFilters) ([]domain.Event, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Type != "" {
		clauses = append(clauses, "type=?")
		args = append(args, f.Type)
	}
	if f.TaskID > 0 {
		clauses = append(clauses, "task_id=?")
		args = append(args, f.TaskID)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := `SELECT id,ts,type,task_id,session_id,payload_json FROM events ` + where + ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		var taskID sql.NullInt64
		var payload sql.NullString
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &taskID, &e.SessionID, &payload); err != nil {
			return nil, err
		}
		e.TaskID = taskID.Int64
		e.Payload = payload.String
		res = append(res, e)
	}
	return res, rows.Err()
}
