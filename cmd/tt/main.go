package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"tasktrail/internal/app"
	"tasktrail/internal/config"
	"tasktrail/internal/db"
	"tasktrail/internal/domain"
	"tasktrail/internal/repo"
	"tasktrail/internal/tracker"
	"tasktrail/internal/watch"
)

var rootCmd = &cobra.Command{
	Use:   "tt",
	Short: "TaskTrail CLI",
	Long: `TaskTrail is a personal task tracker backed by SQLite.
Every read is served from in-memory views rebuilt from the store: a
priority-ordered index, a due-date-ordered index, and a priority search
tree. Edit history (undo/redo) lives for the life of one process, so the
one-shot commands cannot undo earlier invocations; run 'tt session' to
work interactively with undo and redo. The durable audit trail is always
on; view it with 'tt log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKTRAIL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(doneCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(nextCmd())
	rootCmd.AddCommand(findCmd())
	rootCmd.AddCommand(summaryCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(sessionCmd())
	rootCmd.AddCommand(watchCmd())
}

func addCmd() *cobra.Command {
	var opts tracker.CreateOptions
	var priority int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
			}
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				if opts.DueDate != "" {
					if err := checkDate(opts.DueDate); err != nil {
						return err
					}
				}
				t, err := tr.Create(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "title")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority (1-5 by convention, higher is more urgent)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "status (defaults to todo)")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&opts.Category, "category", "", "category")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func listCmd() *cobra.Command {
	var by, status string
	var minPriority, dueWithin int
	var overdue bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks from the in-memory views",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				var tasks []taskRow
				switch {
				case overdue:
					tasks = rows(tr.Overdue())
				case cmd.Flags().Changed("due-within"):
					tasks = rows(tr.DueWithin(dueWithin))
				case status != "":
					tasks = rows(tr.ByStatus(status))
				case cmd.Flags().Changed("min-priority"):
					tasks = rows(tr.ByMinPriority(minPriority))
				case by == "due":
					tasks = rows(tr.TasksByDueDate())
				default:
					tasks = rows(tr.TasksByPriority())
				}
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				renderTaskTable(tasks)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "priority", "sort order: priority or due")
	cmd.Flags().StringVar(&status, "status", "", "status filter")
	cmd.Flags().IntVar(&minPriority, "min-priority", 0, "minimum priority filter")
	cmd.Flags().IntVar(&dueWithin, "due-within", 0, "due within N days from today")
	cmd.Flags().BoolVar(&overdue, "overdue", false, "only overdue tasks")
	return cmd
}

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				t, err := tr.Get(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func updateCmd() *cobra.Command {
	var title, description, status, due, category string
	var priority int
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update task fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			opts := tracker.UpdateOptions{ID: id}
			if cmd.Flags().Changed("title") {
				opts.Title = &title
			}
			if cmd.Flags().Changed("description") {
				opts.Description = &description
			}
			if cmd.Flags().Changed("priority") {
				opts.Priority = &priority
			}
			if cmd.Flags().Changed("status") {
				opts.Status = &status
			}
			if cmd.Flags().Changed("due") {
				if due != "" {
					if err := checkDate(due); err != nil {
						return err
					}
				}
				opts.DueDate = &due
			}
			if cmd.Flags().Changed("category") {
				opts.Category = &category
			}
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				t, err := tr.Update(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().IntVar(&priority, "priority", 0, "priority")
	cmd.Flags().StringVar(&status, "status", "", "status")
	cmd.Flags().StringVar(&due, "due", "", "due date (YYYY-MM-DD, empty clears)")
	cmd.Flags().StringVar(&category, "category", "", "category")
	return cmd
}

func doneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				t, err := tr.Complete(ctx, id)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				t, err := tr.Delete(ctx, id)
				if err != nil {
					return err
				}
				fmt.Printf("deleted #%d %q\n", t.ID, t.Title)
				return nil
			})
		},
	}
	return cmd
}

func nextCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next tasks to work on, highest priority first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				tasks := rows(tr.NextUp(n))
				if viper.GetBool("json") {
					return printJSON(tasks)
				}
				renderTaskTable(tasks)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 3, "number of tasks")
	return cmd
}

func findCmd() *cobra.Command {
	var priority int
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Find a task by exact priority via the search tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("priority") {
				return fmt.Errorf("--priority required")
			}
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				t, ok := tr.FindPriority(priority)
				if !ok {
					return fmt.Errorf("no task with priority %d", priority)
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().IntVar(&priority, "priority", 0, "exact priority to look up")
	return cmd
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Counts by status, category, overdue, high priority, due soon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				return printJSONOrTable(tr.Summary())
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Durable audit trail",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var f repo.EventFilters
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail audit events, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				events, err := tr.Repo.LatestEvents(ctx, f)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&f.Limit, "n", 20, "number of events")
	cmd.Flags().StringVar(&f.Type, "type", "", "event type filter")
	cmd.Flags().Int64Var(&f.TaskID, "task", 0, "task id filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Manage tasktrail.yml",
	}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	cfg.AddCommand(configInitCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if viper.GetBool("json") {
				return printJSON(cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate tasktrail.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := config.Load(workspace); err != nil {
				return err
			}
			fmt.Printf("%s is valid\n", config.Path(workspace))
			return nil
		},
	}
	return cmd
}

func configInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default tasktrail.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func sessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Interactive session with undo/redo",
		Long: `Edit history lives for the life of one process. The session keeps that
process open: every mutation made inside it is undoable until you quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				return runSession(ctx, tr, os.Stdin, os.Stdout)
			})
		},
	}
	return cmd
}

func watchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-render the task list whenever the database changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			return withTracker(cmd.Context(), func(ctx context.Context, tr *tracker.Tracker) error {
				w, err := watch.New(ctx, db.Path(workspace))
				if err != nil {
					return err
				}
				defer w.Stop()
				w.Start(debounce)
				renderTaskTable(rows(tr.TasksByPriority()))
				for {
					select {
					case <-ctx.Done():
						return nil
					case _, ok := <-w.Events():
						if !ok {
							return nil
						}
						if err := tr.Rebuild(ctx); err != nil {
							return err
						}
						fmt.Printf("\n%s\n", time.Now().Format(time.TimeOnly))
						renderTaskTable(rows(tr.TasksByPriority()))
					case err, ok := <-w.Errors():
						if !ok {
							return nil
						}
						return err
					}
				}
			})
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 400*time.Millisecond, "delay before re-reading after a change")
	return cmd
}

// --- helpers ---

func withTracker(ctx context.Context, fn func(context.Context, *tracker.Tracker) error) error {
	tr, err := app.Open(ctx, viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer tr.DB.Close()
	return fn(ctx, tr)
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id %q", arg)
	}
	return id, nil
}

func checkDate(s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return nil
}

type taskRow struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Priority int    `json:"priority"`
	Status   string `json:"status"`
	DueDate  string `json:"due_date,omitempty"`
	Category string `json:"category,omitempty"`
}

func rows(tasks []domain.Task) []taskRow {
	out := make([]taskRow, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, taskRow{ID: t.ID, Title: t.Title, Priority: t.Priority, Status: t.Status, DueDate: t.DueDate, Category: t.Category})
	}
	return out
}

func renderTaskTable(tasks []taskRow) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"ID", "Title", "Pri", "Status", "Due", "Category"})
	for _, t := range tasks {
		tw.AppendRow(table.Row{t.ID, t.Title, t.Priority, t.Status, t.DueDate, t.Category})
	}
	tw.Render()
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
