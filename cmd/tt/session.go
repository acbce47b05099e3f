package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"tasktrail/internal/domain"
	"tasktrail/internal/tracker"
)

const sessionHelp = `commands:
  add <title> [p=N] [due=YYYY-MM-DD] [cat=X] [status=X] [desc=...]
  list [due|overdue|soon|status=X|min=N]
  get <id>
  update <id> field=value...   (title= and desc= take the rest of the line)
  done <id>
  delete <id>
  find <priority>
  next [n]
  summary
  undo | redo
  history [n]      undo/redo stacks, most recent first
  oplog [n]        recent operations this session
  export           full session log
  clear            drop undo/redo history
  rebuild          rebuild views from the store
  quit`

func runSession(ctx context.Context, tr *tracker.Tracker, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "tasktrail session %s\n", tr.Log.SessionID())
	fmt.Fprintln(out, `type "help" for commands, "quit" to leave`)
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "tt> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		verb, rest, _ := strings.Cut(line, " ")
		verb = strings.ToLower(verb)
		rest = strings.TrimSpace(rest)
		if verb == "quit" || verb == "exit" {
			return nil
		}
		if err := sessionCommand(ctx, tr, out, verb, rest); err != nil {
			fmt.Fprintln(out, "error:", err)
		}
	}
}

func sessionCommand(ctx context.Context, tr *tracker.Tracker, out io.Writer, verb, rest string) error {
	switch verb {
	case "help":
		fmt.Fprintln(out, sessionHelp)
	case "add":
		opts, err := parseAdd(rest)
		if err != nil {
			return err
		}
		t, err := tr.Create(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "added", taskLine(t))
	case "list":
		tasks := tr.TasksByPriority()
		for _, arg := range strings.Fields(rest) {
			switch {
			case arg == "due":
				tasks = tr.TasksByDueDate()
			case arg == "overdue":
				tasks = tr.Overdue()
			case arg == "soon":
				tasks = tr.DueSoon()
			case strings.HasPrefix(arg, "status="):
				tasks = tr.ByStatus(strings.TrimPrefix(arg, "status="))
			case strings.HasPrefix(arg, "min="):
				n, err := strconv.Atoi(strings.TrimPrefix(arg, "min="))
				if err != nil {
					return fmt.Errorf("bad min %q", arg)
				}
				tasks = tr.ByMinPriority(n)
			default:
				return fmt.Errorf("unknown list filter %q", arg)
			}
		}
		printTasks(out, tasks)
	case "get":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		t, err := tr.Get(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, taskLine(t))
		if t.Description != "" {
			fmt.Fprintln(out, "  desc:", t.Description)
		}
		fmt.Fprintln(out, "  created:", t.CreatedAt, " modified:", t.LastModified)
		if t.CompletedDate != "" {
			fmt.Fprintln(out, "  completed:", t.CompletedDate)
		}
	case "update":
		opts, err := parseUpdate(rest)
		if err != nil {
			return err
		}
		t, err := tr.Update(ctx, opts)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "updated", taskLine(t))
	case "done":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		t, err := tr.Complete(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "completed", taskLine(t))
	case "delete", "del":
		id, err := parseID(rest)
		if err != nil {
			return err
		}
		t, err := tr.Delete(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted #%d %q\n", t.ID, t.Title)
	case "find":
		p, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("usage: find <priority>")
		}
		t, ok := tr.FindPriority(p)
		if !ok {
			return fmt.Errorf("no task with priority %d", p)
		}
		fmt.Fprintln(out, taskLine(t))
	case "next":
		n := 3
		if rest != "" {
			v, err := strconv.Atoi(rest)
			if err != nil || v < 1 {
				return fmt.Errorf("usage: next [n]")
			}
			n = v
		}
		printTasks(out, tr.NextUp(n))
	case "summary":
		printSummary(out, tr)
	case "undo":
		a, err := tr.Undo(ctx)
		if errors.Is(err, tracker.ErrNothingToUndo) {
			fmt.Fprintln(out, "nothing to undo")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "undid", a.Describe())
	case "redo":
		a, err := tr.Redo(ctx)
		if errors.Is(err, tracker.ErrNothingToRedo) {
			fmt.Fprintln(out, "nothing to redo")
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "redid", a.Describe())
	case "history":
		n := 10
		if rest != "" {
			if v, err := strconv.Atoi(rest); err == nil && v > 0 {
				n = v
			}
		}
		s := tr.History.Summary()
		fmt.Fprintf(out, "undo %d / redo %d (capacity %d)\n", s.UndoDepth, s.RedoDepth, s.Capacity)
		for _, a := range tr.History.UndoHistory(n) {
			fmt.Fprintln(out, "  undo:", a.Describe())
		}
		for _, a := range tr.History.RedoHistory(n) {
			fmt.Fprintln(out, "  redo:", a.Describe())
		}
	case "oplog":
		n := 10
		if rest != "" {
			if v, err := strconv.Atoi(rest); err == nil && v > 0 {
				n = v
			}
		}
		for _, e := range tr.Log.Recent(n) {
			fmt.Fprintf(out, "%7.1fs  %-8s", e.Elapsed, e.Operation)
			if e.TaskID > 0 {
				fmt.Fprintf(out, " #%d", e.TaskID)
			}
			if e.Details != "" {
				fmt.Fprintf(out, "  %s", e.Details)
			}
			fmt.Fprintln(out)
		}
	case "export":
		fmt.Fprint(out, tr.Log.Export())
	case "clear":
		tr.History.Clear()
		fmt.Fprintln(out, "undo/redo history cleared")
	case "rebuild":
		if err := tr.Rebuild(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "views rebuilt")
	default:
		return fmt.Errorf("unknown command %q (try \"help\")", verb)
	}
	return nil
}

// parseAdd reads leading bare words as the title, then key=value attributes.
func parseAdd(rest string) (tracker.CreateOptions, error) {
	var opts tracker.CreateOptions
	fields := strings.Fields(rest)
	var title []string
	i := 0
	for ; i < len(fields); i++ {
		if strings.Contains(fields[i], "=") {
			break
		}
		title = append(title, fields[i])
	}
	if len(title) == 0 {
		return opts, fmt.Errorf("usage: add <title> [p=N] [due=YYYY-MM-DD] ...")
	}
	opts.Title = strings.Join(title, " ")
	for ; i < len(fields); i++ {
		k, v, _ := strings.Cut(fields[i], "=")
		switch k {
		case "p", "pri", "priority":
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("bad priority %q", v)
			}
			opts.Priority = &n
		case "due":
			if err := checkDate(v); err != nil {
				return opts, err
			}
			opts.DueDate = v
		case "cat", "category":
			opts.Category = v
		case "status":
			opts.Status = v
		case "desc", "description":
			opts.Description = strings.Join(append([]string{v}, fields[i+1:]...), " ")
			i = len(fields)
		default:
			return opts, fmt.Errorf("unknown field %q", k)
		}
	}
	return opts, nil
}

// parseUpdate reads "<id> field=value...". title= and desc= swallow the rest
// of the line.
func parseUpdate(rest string) (tracker.UpdateOptions, error) {
	var opts tracker.UpdateOptions
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return opts, fmt.Errorf("usage: update <id> field=value...")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return opts, err
	}
	opts.ID = id
	for i := 1; i < len(fields); i++ {
		k, v, ok := strings.Cut(fields[i], "=")
		if !ok {
			return opts, fmt.Errorf("expected field=value, got %q", fields[i])
		}
		switch k {
		case "title":
			title := strings.Join(append([]string{v}, fields[i+1:]...), " ")
			opts.Title = &title
			i = len(fields)
		case "desc", "description":
			desc := strings.Join(append([]string{v}, fields[i+1:]...), " ")
			opts.Description = &desc
			i = len(fields)
		case "p", "pri", "priority":
			n, err := strconv.Atoi(v)
			if err != nil {
				return opts, fmt.Errorf("bad priority %q", v)
			}
			opts.Priority = &n
		case "due":
			if v != "" {
				if err := checkDate(v); err != nil {
					return opts, err
				}
			}
			due := v
			opts.DueDate = &due
		case "cat", "category":
			cat := v
			opts.Category = &cat
		case "status":
			st := v
			opts.Status = &st
		default:
			return opts, fmt.Errorf("unknown field %q", k)
		}
	}
	return opts, nil
}

func taskLine(t domain.Task) string {
	s := fmt.Sprintf("#%d [p%d] %s (%s", t.ID, t.Priority, t.Title, t.Status)
	if t.DueDate != "" {
		s += ", due " + t.DueDate
	}
	if t.Category != "" {
		s += ", " + t.Category
	}
	return s + ")"
}

func printTasks(out io.Writer, tasks []domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "no tasks")
		return
	}
	for _, t := range tasks {
		fmt.Fprintln(out, taskLine(t))
	}
}

func printSummary(out io.Writer, tr *tracker.Tracker) {
	s := tr.Summary()
	fmt.Fprintf(out, "total %d: %d todo, %d in progress, %d completed\n", s.Total, s.Todo, s.InProgress, s.Completed)
	fmt.Fprintf(out, "overdue %d, due soon %d, high priority %d\n", s.Overdue, s.DueSoon, s.HighPriority)
	cats := make([]string, 0, len(s.ByCategory))
	for c := range s.ByCategory {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	for _, c := range cats {
		fmt.Fprintf(out, "  %s: %d\n", c, s.ByCategory[c])
	}
}
