package store

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/amirbrooks/vaulttasks/internal/frontmatter"
	"github.com/amirbrooks/vaulttasks/internal/task"
)

const DefaultReadBatchSize = 10

// Options configures an Engine. Zero values select defaults.
type Options struct {
	Logger        *log.Logger
	ReadBatchSize int
	Extract       task.ExtractOptions
	DefaultTags   []string
	Now           func() time.Time
}

// Engine reads and rewrites tasks across the project documents of a store.
// Every mutation is a read-modify-write of whole documents; validation and
// reads happen before the first write.
type Engine struct {
	store       DocumentStore
	logger      *log.Logger
	batch       int
	extract     task.ExtractOptions
	defaultTags []string
	now         func() time.Time
}

// Document is a project note and its text at read time.
type Document struct {
	Handle
	Text string
}

// NewTask is the input for CreateTask.
type NewTask struct {
	Text     string
	Due      string
	Priority task.Priority
	Tags     []string
}

// TaskUpdate lists the fields to change. Nil fields keep their value; an
// empty Due clears the date.
type TaskUpdate struct {
	Text     *string
	Due      *string
	Priority *task.Priority
	Tags     *[]string
	Done     *bool
	Project  *string
}

func discardLogger() *log.Logger {
	return log.New(io.Discard)
}

func NewEngine(store DocumentStore, opts Options) *Engine {
	e := &Engine{
		store:       store,
		logger:      opts.Logger,
		batch:       opts.ReadBatchSize,
		extract:     opts.Extract,
		defaultTags: append([]string(nil), opts.DefaultTags...),
		now:         opts.Now,
	}
	if e.logger == nil {
		e.logger = discardLogger()
	}
	if e.batch <= 0 {
		e.batch = DefaultReadBatchSize
	}
	if e.now == nil {
		e.now = timeNow
	}
	return e
}

// Today is the current due-date string.
func (e *Engine) Today() string {
	return task.Today(e.now())
}

// Projects returns the names of the eligible documents.
func (e *Engine) Projects(ctx context.Context) ([]string, error) {
	docs, err := e.store.ListEligibleDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, h := range docs {
		out = append(out, h.Name)
	}
	return out, nil
}

// Collect reads every project document, at most ReadBatchSize at a time.
// Documents keep the store's listing order.
func (e *Engine) Collect(ctx context.Context) ([]Document, error) {
	handles, err := e.store.ListEligibleDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return e.readAll(ctx, handles)
}

func (e *Engine) readAll(ctx context.Context, handles []Handle) ([]Document, error) {
	docs := make([]Document, len(handles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batch)
	for i, h := range handles {
		g.Go(func() error {
			text, err := e.store.ReadDocument(gctx, h)
			if err != nil {
				return err
			}
			docs[i] = Document{Handle: h, Text: text}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	e.logger.Debug("collected documents", "count", len(docs))
	return docs, nil
}

// Records yields the tasks of docs in document order.
func (e *Engine) Records(docs []Document) iter.Seq[task.Record] {
	return func(yield func(task.Record) bool) {
		for _, d := range docs {
			for r := range task.Records(d.Name, d.Text, e.extract) {
				r.Path = d.Path
				if !yield(r) {
					return
				}
			}
		}
	}
}

// Tasks returns the tasks in tab, optionally limited to one project. For the
// today tab, documents that never mention today's date are skipped without
// decoding.
func (e *Engine) Tasks(ctx context.Context, tab task.Tab, project string) ([]task.Record, error) {
	docs, err := e.Collect(ctx)
	if err != nil {
		return nil, err
	}
	today := e.Today()
	project = strings.TrimSpace(project)
	var keep []Document
	for _, d := range docs {
		if project != "" && !strings.EqualFold(d.Name, project) {
			continue
		}
		if tab == task.TabToday && !strings.Contains(d.Text, task.DueGlyph+" "+today) {
			continue
		}
		keep = append(keep, d)
	}
	var out []task.Record
	for r := range task.Filter(e.Records(keep), tab, today) {
		out = append(out, r)
	}
	return out, nil
}

// Counts tallies every task in the vault per tab.
func (e *Engine) Counts(ctx context.Context) (task.Counts, error) {
	docs, err := e.Collect(ctx)
	if err != nil {
		return task.Counts{}, err
	}
	return task.Aggregate(e.Records(docs), e.Today()), nil
}

// CreateTask adds a task at the top of project's Tasks section, creating the
// section when missing.
func (e *Engine) CreateTask(ctx context.Context, project string, in NewTask) (task.Record, error) {
	rec, err := e.validate(task.Record{}, in.Text, in.Due, in.Priority, in.Tags)
	if err != nil {
		return task.Record{}, err
	}
	h, err := e.resolveProject(ctx, project)
	if err != nil {
		return task.Record{}, err
	}
	text, err := e.store.ReadDocument(ctx, h)
	if err != nil {
		return task.Record{}, err
	}
	line := task.Encode(rec)
	updated, n := task.InsertTaskLine(text, line)
	if err := e.store.WriteDocument(ctx, h, updated); err != nil {
		return task.Record{}, err
	}
	e.logger.Info("created task", "doc", h.Name, "line", n)
	return located(rec, updated, h, n), nil
}

// ToggleTask flips the completion state of r in its document.
func (e *Engine) ToggleTask(ctx context.Context, r task.Record) (task.Record, error) {
	h, err := e.owner(ctx, r)
	if err != nil {
		return task.Record{}, err
	}
	text, err := e.store.ReadDocument(ctx, h)
	if err != nil {
		return task.Record{}, err
	}
	n, err := task.Locate(text, r)
	if err != nil {
		return task.Record{}, err
	}
	updated, err := task.ToggleTask(text, r)
	if err != nil {
		return task.Record{}, err
	}
	if err := e.store.WriteDocument(ctx, h, updated); err != nil {
		return task.Record{}, err
	}
	out := located(r, updated, h, n)
	out.Done = !r.Done
	e.logger.Info("toggled task", "doc", h.Name, "line", n, "done", out.Done)
	return out, nil
}

// UpdateTask rewrites r with the fields of u. Within one project the line
// keeps its position. A project change writes the destination first and then
// removes the source line, so a failure in between leaves a duplicate rather
// than losing the task.
func (e *Engine) UpdateTask(ctx context.Context, r task.Record, u TaskUpdate) (task.Record, error) {
	done, text, due, prio, tags := r.Done, r.Text, r.Due, r.Priority, r.Tags
	if u.Done != nil {
		done = *u.Done
	}
	if u.Text != nil {
		text = *u.Text
	}
	if u.Due != nil {
		due = *u.Due
	}
	if u.Priority != nil {
		prio = *u.Priority
	}
	if u.Tags != nil {
		tags = *u.Tags
	}
	rec, err := e.validate(task.Record{Done: done}, text, due, prio, tags)
	if err != nil {
		return task.Record{}, err
	}

	src, err := e.owner(ctx, r)
	if err != nil {
		return task.Record{}, err
	}
	dst := src
	if u.Project != nil && strings.TrimSpace(*u.Project) != "" {
		dst, err = e.resolveProject(ctx, *u.Project)
		if err != nil {
			return task.Record{}, err
		}
	}
	srcText, err := e.store.ReadDocument(ctx, src)
	if err != nil {
		return task.Record{}, err
	}
	line := task.Encode(rec)

	n, err := task.Locate(srcText, r)
	if err != nil {
		return task.Record{}, err
	}

	if dst.Path == src.Path {
		updated, err := task.ReplaceTask(srcText, r, line)
		if err != nil {
			return task.Record{}, err
		}
		if err := e.store.WriteDocument(ctx, src, updated); err != nil {
			return task.Record{}, err
		}
		e.logger.Info("updated task", "doc", src.Name, "line", n)
		return located(rec, updated, src, n), nil
	}

	dstText, err := e.store.ReadDocument(ctx, dst)
	if err != nil {
		return task.Record{}, err
	}
	trimmed, err := task.DeleteTask(srcText, r)
	if err != nil {
		return task.Record{}, err
	}
	inserted, at := task.InsertTaskLine(dstText, line)
	if err := e.store.WriteDocument(ctx, dst, inserted); err != nil {
		return task.Record{}, err
	}
	if err := e.store.WriteDocument(ctx, src, trimmed); err != nil {
		e.logger.Warn("task copied but not removed from source", "from", src.Name, "line", n, "to", dst.Name, "error", err)
		return task.Record{}, err
	}
	e.logger.Info("moved task", "from", src.Name, "to", dst.Name, "line", at)
	return located(rec, inserted, dst, at), nil
}

// DeleteTask removes r from its document.
func (e *Engine) DeleteTask(ctx context.Context, r task.Record) error {
	h, err := e.owner(ctx, r)
	if err != nil {
		return err
	}
	text, err := e.store.ReadDocument(ctx, h)
	if err != nil {
		return err
	}
	updated, err := task.DeleteTask(text, r)
	if err != nil {
		return err
	}
	if err := e.store.WriteDocument(ctx, h, updated); err != nil {
		return err
	}
	e.logger.Info("deleted task", "doc", h.Name)
	return nil
}

// Scratchpad returns the scratchpad note of project.
func (e *Engine) Scratchpad(ctx context.Context, project string) (string, error) {
	h, err := e.resolveProject(ctx, project)
	if err != nil {
		return "", err
	}
	text, err := e.store.ReadDocument(ctx, h)
	if err != nil {
		return "", err
	}
	value, err := frontmatter.Scratchpad(text)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalid, h.Name, err)
	}
	return value, nil
}

// SetScratchpad stores value in the frontmatter of project.
func (e *Engine) SetScratchpad(ctx context.Context, project, value string) error {
	h, err := e.resolveProject(ctx, project)
	if err != nil {
		return err
	}
	text, err := e.store.ReadDocument(ctx, h)
	if err != nil {
		return err
	}
	if err := e.store.WriteDocument(ctx, h, frontmatter.SetScratchpad(text, value)); err != nil {
		return err
	}
	e.logger.Info("saved scratchpad", "doc", h.Name, "chars", len([]rune(value)))
	return nil
}

// Tags returns tag suggestions: the configured defaults followed by every tag
// used in project documents outside fenced code.
func (e *Engine) Tags(ctx context.Context) ([]string, error) {
	docs, err := e.Collect(ctx)
	if err != nil {
		return nil, err
	}
	var found []string
	for _, d := range docs {
		found = append(found, scanDocumentTags(d.Text)...)
	}
	return mergeTags(e.defaultTags, found), nil
}

// owner returns the document r was read from. Records that carry a Path are
// matched on it, so notes sharing a name stay apart.
func (e *Engine) owner(ctx context.Context, r task.Record) (Handle, error) {
	if r.Path == "" {
		return e.resolveProject(ctx, r.Document)
	}
	docs, err := e.store.ListEligibleDocuments(ctx)
	if err != nil {
		return Handle{}, err
	}
	for _, h := range docs {
		if h.Path == r.Path {
			return h, nil
		}
	}
	return Handle{}, fmt.Errorf("%w: %s", ErrProjectNotFound, r.Path)
}

func (e *Engine) resolveProject(ctx context.Context, name string) (Handle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Handle{}, fmt.Errorf("%w: no project given", ErrProjectNotFound)
	}
	h, ok, err := e.store.ResolveDocumentByName(ctx, name)
	if err != nil {
		return Handle{}, err
	}
	if !ok {
		return Handle{}, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return h, nil
}

// validate builds the record to encode from user input.
func (e *Engine) validate(base task.Record, text, due string, prio task.Priority, tags []string) (task.Record, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return task.Record{}, ErrEmptyInput
	}
	if strings.ContainsAny(text, "\r\n") {
		return task.Record{}, fmt.Errorf("%w: task text must be a single line", ErrInvalid)
	}
	due = strings.TrimSpace(due)
	if due != "" {
		if _, err := time.Parse(task.DateLayout, due); err != nil || !task.IsValidDue(due) {
			return task.Record{}, fmt.Errorf("%w: due date %q (want YYYY-MM-DD)", ErrInvalid, due)
		}
	}
	switch prio {
	case task.PriorityNone, task.PriorityHigh, task.PriorityMedium, task.PriorityLow:
	default:
		return task.Record{}, fmt.Errorf("%w: priority %d", ErrInvalid, prio)
	}
	clean, err := normalizeTagInputs(tags)
	if err != nil {
		return task.Record{}, err
	}
	base.Text = text
	base.Due = due
	base.Priority = prio
	base.Tags = clean
	if got, ok := task.Decode(task.Encode(base)); !ok || !got.Equal(base) {
		return task.Record{}, fmt.Errorf("%w: task text %q contains a due date, priority or tag marker", ErrInvalid, text)
	}
	return base, nil
}

// located points r at line n of doc, the text just written to h.
func located(r task.Record, doc string, h Handle, n int) task.Record {
	r.SourceLine = lineAt(doc, n)
	r.Document = h.Name
	r.Path = h.Path
	r.Line = n
	return r
}

func lineAt(doc string, n int) string {
	lines := strings.Split(doc, "\n")
	if n <= 0 || n > len(lines) {
		return ""
	}
	return lines[n-1]
}
