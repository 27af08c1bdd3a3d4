package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/amirbrooks/vaulttasks/internal/config"
	"github.com/amirbrooks/vaulttasks/internal/store"
	"github.com/amirbrooks/vaulttasks/internal/task"
)

// argsUsage reports positional argument errors as usage errors.
func argsUsage(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &usageError{err: err}
		}
		return nil
	}
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
}

type taskPayload struct {
	Ref  string      `json:"ref,omitempty"`
	Task task.Record `json:"task"`
}

type listPayload struct {
	Tab   task.Tab      `json:"tab"`
	Today string        `json:"today"`
	Tasks []task.Record `json:"tasks"`
}

func taskItems(records []task.Record) []any {
	items := make([]any, 0, len(records))
	for _, r := range records {
		items = append(items, r)
	}
	return items
}

func (a *app) newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List project notes",
		Args:  argsUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			docs, err := e.Collect(cmd.Context())
			if err != nil {
				return err
			}
			handles := make([]store.Handle, 0, len(docs))
			items := make([]any, 0, len(docs))
			for _, d := range docs {
				handles = append(handles, d.Handle)
				items = append(items, d.Handle)
			}
			return a.emit("projects", map[string]any{"projects": handles}, items, func(w io.Writer) error {
				if a.gf.Plain {
					for _, h := range handles {
						fmt.Fprintf(w, "%s\t%s\n", h.Name, h.Path)
					}
					return nil
				}
				if len(handles) == 0 {
					fmt.Fprintln(w, "No project notes.")
					return nil
				}
				tw := newTabWriter(w)
				fmt.Fprintln(tw, "NAME\tPATH")
				for _, h := range handles {
					fmt.Fprintf(tw, "%s\t%s\n", h.Name, h.Path)
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) newAddCmd() *cobra.Command {
	var (
		project, due, priority string
		today, tomorrow        bool
		tags                   []string
	)
	cmd := &cobra.Command{
		Use:   "add <text...>",
		Short: "Add a task to a project",
		Long: `Add a task at the top of the project's "## Tasks" section.

Examples:
  vaulttasks add "Buy milk" --project Home --today --priority high --tag errand
  vaulttasks add Fix the gate --project Garden --due 2024-06-30`,
		Args: argsUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if project == "" {
				project = a.cfg.DefaultProject
			}
			if strings.TrimSpace(project) == "" {
				return usagef("--project is required (or set default_project)")
			}
			dueDate, err := a.dueFromFlags(due, today, tomorrow)
			if err != nil {
				return err
			}
			prio, ok := task.ParsePriority(priority)
			if !ok {
				return usagef("invalid priority %q (use high|medium|low|none)", priority)
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			rec, err := e.CreateTask(cmd.Context(), project, store.NewTask{
				Text:     strings.Join(args, " "),
				Due:      dueDate,
				Priority: prio,
				Tags:     tags,
			})
			if err != nil {
				return err
			}
			return a.emitTask("task", "Added", rec)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Project note name")
	cmd.Flags().StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&today, "today", false, "Due today")
	cmd.Flags().BoolVar(&tomorrow, "tomorrow", false, "Due tomorrow")
	cmd.Flags().StringVar(&priority, "priority", "", "Priority: high|medium|low")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "Tag (repeatable)")
	return cmd
}

func (a *app) dueFromFlags(due string, today, tomorrow bool) (string, error) {
	set := 0
	for _, b := range []bool{strings.TrimSpace(due) != "", today, tomorrow} {
		if b {
			set++
		}
	}
	if set > 1 {
		return "", usagef("use only one of --due, --today, --tomorrow")
	}
	switch {
	case today:
		return task.Today(a.now()), nil
	case tomorrow:
		return task.Today(a.now().AddDate(0, 0, 1)), nil
	default:
		return strings.TrimSpace(due), nil
	}
}

func (a *app) emitTask(base, verb string, rec task.Record) error {
	return a.emit(base, taskPayload{Ref: rec.Ref(), Task: rec}, []any{rec}, func(w io.Writer) error {
		if a.gf.Plain {
			fmt.Fprintf(w, "%s\t%s\n", rec.Ref(), rec.SourceLine)
			return nil
		}
		fmt.Fprintf(w, "%s %s  %s\n", verb, rec.Ref(), rec.SourceLine)
		return nil
	})
}

func (a *app) newListCmd() *cobra.Command {
	var (
		project, groupBy string
		totals           bool
	)
	cmd := &cobra.Command{
		Use:     "ls [tab]",
		Aliases: []string{"list"},
		Short:   "List tasks in a tab",
		Long: `List tasks in one tab: all (default), today, todo, overdue, unplanned.

Examples:
  vaulttasks ls
  vaulttasks ls overdue --group project --totals
  vaulttasks ls today --format telegram`,
		Args: argsUsage(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			tab := task.TabAll
			if len(args) == 1 {
				t, err := task.ParseTab(args[0])
				if err != nil {
					return &usageError{err: err}
				}
				tab = t
			}
			switch strings.ToLower(strings.TrimSpace(groupBy)) {
			case "", "none", "project":
			default:
				return usagef("invalid --group %q (use project|none)", groupBy)
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			records, err := e.Tasks(cmd.Context(), tab, project)
			if err != nil {
				return err
			}
			payload := listPayload{Tab: tab, Today: e.Today(), Tasks: records}
			return a.emit("tasks", payload, taskItems(records), func(w io.Writer) error {
				if a.gf.Plain {
					writeTaskTSV(w, records)
					return nil
				}
				opts := store.RenderOptions{GroupBy: groupBy, ShowTotals: totals, Format: a.gf.Format}
				if a.gf.Format == "" || a.gf.Format == "human" {
					opts.Style = styleTaskLine
				}
				out := store.RenderTab(records, tab, e.Today(), opts)
				header, rest, _ := strings.Cut(out, "\n")
				if opts.Style != nil {
					header = headerStyle.Render(header)
				}
				fmt.Fprintln(w, header)
				fmt.Fprint(w, rest)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Only tasks of this project")
	cmd.Flags().StringVar(&groupBy, "group", "", "Group by: project|none")
	cmd.Flags().BoolVar(&totals, "totals", false, "Show group totals")
	return cmd
}

func writeTaskTSV(w io.Writer, records []task.Record) {
	fmt.Fprintln(w, "REF\tDONE\tDUE\tPRI\tTEXT\tTAGS")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\t%s\n",
			r.Ref(), r.Done, r.Due, r.Priority, r.Text, strings.Join(r.Tags, ","))
	}
}

func (a *app) newCountsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "counts",
		Short: "Show task counts per tab",
		Args:  argsUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			c, err := e.Counts(cmd.Context())
			if err != nil {
				return err
			}
			items := make([]any, 0, len(task.Tabs))
			for _, tab := range task.Tabs {
				items = append(items, map[string]any{"tab": tab, "count": c.Get(tab)})
			}
			payload := map[string]any{"today": e.Today(), "counts": c.Map()}
			return a.emit("counts", payload, items, func(w io.Writer) error {
				if a.gf.Plain {
					for _, tab := range task.Tabs {
						fmt.Fprintf(w, "%s\t%d\n", tab, c.Get(tab))
					}
					return nil
				}
				tw := newTabWriter(w)
				fmt.Fprintln(tw, "TAB\tCOUNT")
				for _, tab := range task.Tabs {
					fmt.Fprintf(tw, "%s\t%d\n", tab, c.Get(tab))
				}
				return tw.Flush()
			})
		},
	}
}

func (a *app) newDoneCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "done <selector>",
		Short: "Mark a task done",
		Long: `Mark a task done. The selector is "<project>:<line>" or task text;
text must match exactly one task.

Examples:
  vaulttasks done Garden:7
  vaulttasks done "buy milk" --project Home`,
		Args: argsUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			r, err := e.GetTaskBySelector(cmd.Context(), strings.Join(args, " "), store.SelectorFilter{Project: project})
			if err != nil {
				return err
			}
			if r.Done {
				return a.emitTask("task", "Already done", r)
			}
			rec, err := e.ToggleTask(cmd.Context(), r)
			if err != nil {
				return err
			}
			return a.emitTask("task", "Done", rec)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Only match tasks of this project")
	return cmd
}

func (a *app) newToggleCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:   "toggle <selector>",
		Short: "Flip a task between open and done",
		Args:  argsUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			r, err := e.GetTaskBySelector(cmd.Context(), strings.Join(args, " "), store.SelectorFilter{Project: project})
			if err != nil {
				return err
			}
			rec, err := e.ToggleTask(cmd.Context(), r)
			if err != nil {
				return err
			}
			return a.emitTask("task", "Toggled", rec)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Only match tasks of this project")
	return cmd
}

func (a *app) newEditCmd() *cobra.Command {
	var (
		project, text, due, priority, moveTo string
		today, tomorrow, clearDue           bool
		tags                                 []string
		clearTags, done, undone              bool
	)
	cmd := &cobra.Command{
		Use:   "edit <selector>",
		Short: "Change a task",
		Long: `Change the text, due date, priority, tags or state of a task, or move it
to another project.

Examples:
  vaulttasks edit Garden:7 --due 2024-07-01 --priority low
  vaulttasks edit "fix gate" --tag outdoor --tag weekend
  vaulttasks edit Garden:7 --move-to Home`,
		Args: argsUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			var u store.TaskUpdate
			changed := false
			if flags.Changed("text") {
				u.Text = &text
				changed = true
			}
			if clearDue && (flags.Changed("due") || today || tomorrow) {
				return usagef("--clear-due conflicts with --due, --today, --tomorrow")
			}
			if flags.Changed("due") || today || tomorrow || clearDue {
				d, err := a.dueFromFlags(due, today, tomorrow)
				if err != nil {
					return err
				}
				if clearDue {
					d = ""
				}
				u.Due = &d
				changed = true
			}
			if flags.Changed("priority") {
				p, ok := task.ParsePriority(priority)
				if !ok {
					return usagef("invalid priority %q (use high|medium|low|none)", priority)
				}
				u.Priority = &p
				changed = true
			}
			if clearTags && len(tags) > 0 {
				return usagef("--clear-tags conflicts with --tag")
			}
			if clearTags || len(tags) > 0 {
				t := append([]string(nil), tags...)
				u.Tags = &t
				changed = true
			}
			if done && undone {
				return usagef("--done conflicts with --undone")
			}
			if done || undone {
				u.Done = &done
				changed = true
			}
			if flags.Changed("move-to") {
				u.Project = &moveTo
				changed = true
			}
			if !changed {
				return usagef("nothing to change")
			}

			e, err := a.openEngine()
			if err != nil {
				return err
			}
			r, err := e.GetTaskBySelector(cmd.Context(), strings.Join(args, " "), store.SelectorFilter{Project: project})
			if err != nil {
				return err
			}
			rec, err := e.UpdateTask(cmd.Context(), r, u)
			if err != nil {
				return err
			}
			return a.emitTask("task", "Updated", rec)
		},
	}
	f := cmd.Flags()
	f.StringVar(&project, "project", "", "Only match tasks of this project")
	f.StringVar(&text, "text", "", "New task text")
	f.StringVar(&due, "due", "", "Due date (YYYY-MM-DD)")
	f.BoolVar(&today, "today", false, "Due today")
	f.BoolVar(&tomorrow, "tomorrow", false, "Due tomorrow")
	f.BoolVar(&clearDue, "clear-due", false, "Remove the due date")
	f.StringVar(&priority, "priority", "", "Priority: high|medium|low|none")
	f.StringArrayVar(&tags, "tag", nil, "Replace tags (repeatable)")
	f.BoolVar(&clearTags, "clear-tags", false, "Remove all tags")
	f.BoolVar(&done, "done", false, "Mark done")
	f.BoolVar(&undone, "undone", false, "Mark open")
	f.StringVar(&moveTo, "move-to", "", "Move the task to another project")
	return cmd
}

func (a *app) newRemoveCmd() *cobra.Command {
	var project string
	cmd := &cobra.Command{
		Use:     "rm <selector>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    argsUsage(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			r, err := e.GetTaskBySelector(cmd.Context(), strings.Join(args, " "), store.SelectorFilter{Project: project})
			if err != nil {
				return err
			}
			if err := e.DeleteTask(cmd.Context(), r); err != nil {
				return err
			}
			return a.emitTask("task", "Deleted", r)
		},
	}
	cmd.Flags().StringVar(&project, "project", "", "Only match tasks of this project")
	return cmd
}

func (a *app) newScratchpadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scratchpad",
		Short: "Show or set a project's scratchpad",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show <project>",
		Short: "Print the scratchpad",
		Args:  argsUsage(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			value, err := e.Scratchpad(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			payload := map[string]string{"project": args[0], "scratchpad": value}
			return a.emit("scratchpad", payload, []any{payload}, func(w io.Writer) error {
				if value == "" {
					return nil
				}
				fmt.Fprintln(w, value)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <project> <text...>",
		Short: "Replace the scratchpad",
		Long: `Replace the scratchpad. Pass "-" as text to read it from stdin.

Examples:
  vaulttasks scratchpad set Garden "order seeds"
  cat notes.txt | vaulttasks scratchpad set Garden -`,
		Args: argsUsage(cobra.MinimumNArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := strings.Join(args[1:], " ")
			if value == "-" {
				b, err := io.ReadAll(a.stdin)
				if err != nil {
					return err
				}
				value = strings.TrimRight(string(b), "\r\n")
			}
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			if err := e.SetScratchpad(cmd.Context(), args[0], value); err != nil {
				return err
			}
			if !a.gf.Quiet {
				fmt.Fprintf(a.out, "Saved scratchpad of %s\n", args[0])
			}
			return nil
		},
	})
	return cmd
}

func (a *app) newTagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List tag suggestions",
		Args:  argsUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := a.openEngine()
			if err != nil {
				return err
			}
			tags, err := e.Tags(cmd.Context())
			if err != nil {
				return err
			}
			items := make([]any, 0, len(tags))
			for _, t := range tags {
				items = append(items, t)
			}
			return a.emit("tags", map[string]any{"tags": tags}, items, func(w io.Writer) error {
				for _, t := range tags {
					fmt.Fprintln(w, t)
				}
				return nil
			})
		},
	}
}

func (a *app) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  argsUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := configValues(a.cfg)
			payload := make(map[string]string, len(values))
			for _, kv := range values {
				payload[kv[0]] = kv[1]
			}
			return a.emit("config", payload, []any{payload}, func(w io.Writer) error {
				if a.cfg.Path != "" && !a.gf.Plain {
					fmt.Fprintf(w, "# %s\n", a.cfg.Path)
				}
				tw := newTabWriter(w)
				for _, kv := range values {
					fmt.Fprintf(tw, "%s\t%s\n", kv[0], kv[1])
				}
				return tw.Flush()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and save the config file",
		Long: "Change one setting and save the config file.\n\nKeys: " + strings.Join(config.Keys(), ", "),
		Args:  argsUsage(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := a.cfg.Save(a.cfg.Path); err != nil {
				return err
			}
			if !a.gf.Quiet {
				fmt.Fprintf(a.out, "Saved %s to %s\n", strings.ToLower(args[0]), a.cfg.Path)
			}
			return nil
		},
	})
	return cmd
}

func configValues(c *config.Config) [][2]string {
	return [][2]string{
		{"root", c.Root},
		{"read_batch_size", strconv.Itoa(c.ReadBatchSize)},
		{"recount_debounce", c.RecountDebounce},
		{"close_section_at_heading", strconv.FormatBool(c.CloseSectionAtHeading)},
		{"default_tags", strings.Join(c.DefaultTags, ",")},
		{"default_project", c.DefaultProject},
		{"log_level", c.LogLevel},
		{"export_dir", c.ExportDir},
	}
}
