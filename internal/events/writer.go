package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Writer appends audit events inside the caller's transaction, so an event
// row lands if and only if the mutation it describes commits.
type Writer struct {
	DB        *sql.DB
	SessionID string
	Now       func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType string, taskID int64, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,task_id,session_id,payload_json) VALUES (?,?,?,?,?)`,
		ts, evtType, nullableID(taskID), w.SessionID, string(data))
	return err
}

func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}
