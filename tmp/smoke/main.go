package main

import (
	"context"
	"fmt"
	"os"

	"tasktrail/internal/config"
	"tasktrail/internal/db"
	"tasktrail/internal/migrate"
	"tasktrail/internal/tracker"
)

func main() {
	workspace := "/tmp/tasktrail-smoke"
	_ = os.RemoveAll(workspace)
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		panic(err)
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		panic(err)
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		panic(err)
	}
	ctx := context.Background()
	tr := tracker.New(conn, config.Default())
	if err := tr.Rebuild(ctx); err != nil {
		panic(err)
	}

	p := 5
	task, err := tr.Create(ctx, tracker.CreateOptions{Title: "smoke task", Priority: &p, DueDate: "2026-09-01"})
	if err != nil {
		panic(err)
	}
	if _, err := tr.Update(ctx, tracker.UpdateOptions{ID: task.ID, Category: strp("smoke")}); err != nil {
		panic(err)
	}
	if _, err := tr.Complete(ctx, task.ID); err != nil {
		panic(err)
	}
	if _, err := tr.Undo(ctx); err != nil {
		panic(err)
	}
	if _, err := tr.Redo(ctx); err != nil {
		panic(err)
	}

	got, err := tr.Get(ctx, task.ID)
	if err != nil {
		panic(err)
	}
	s := tr.Summary()
	fmt.Printf("task=#%d status=%s completed=%q\n", got.ID, got.Status, got.CompletedDate)
	fmt.Printf("summary total=%d completed=%d\n", s.Total, s.Completed)
	fmt.Println(tr.Log.Export())
}

func strp(v string) *string { return &v }
