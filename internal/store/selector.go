package store

import (
	"context"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/amirbrooks/vaulttasks/internal/task"
)

type SelectorFilter struct {
	Project string
	Tab     task.Tab
}

// GetTaskBySelector resolves selector to exactly one task. A selector is
// either a "<project>:<line>" reference or a piece of task text.
func (e *Engine) GetTaskBySelector(ctx context.Context, selector string, filter SelectorFilter) (task.Record, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return task.Record{}, ErrInvalid
	}
	matches, err := e.ResolveTasks(ctx, selector, filter)
	if err != nil {
		return task.Record{}, err
	}
	if len(matches) == 0 {
		return task.Record{}, ErrNotFound
	}
	if len(matches) == 1 {
		return matches[0], nil
	}
	return task.Record{}, &MatchConflictError{Reason: "selector", Matches: matches}
}

// ResolveTasks lists every task selector could mean. Exact text matches
// (case-insensitive) shadow partial ones.
func (e *Engine) ResolveTasks(ctx context.Context, selector string, filter SelectorFilter) ([]task.Record, error) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return nil, ErrInvalid
	}
	tab := filter.Tab
	if tab == "" {
		tab = task.TabAll
	}
	records, err := e.Tasks(ctx, tab, filter.Project)
	if err != nil {
		return nil, err
	}

	if doc, line, ok := splitRef(selector); ok {
		var hits []task.Record
		for _, r := range records {
			if r.Line == line && refMatches(r, doc) {
				hits = append(hits, r)
			}
		}
		if len(hits) > 0 {
			return hits, nil
		}
	}

	sel := strings.ToLower(selector)
	var exact, partial []task.Record
	for _, r := range records {
		text := strings.ToLower(r.Text)
		switch {
		case text == sel:
			exact = append(exact, r)
		case strings.Contains(text, sel):
			partial = append(partial, r)
		}
	}
	if len(exact) > 0 {
		return sortSelectorMatches(exact), nil
	}
	return sortSelectorMatches(partial), nil
}

// refMatches reports whether doc names the document of r, either by note name
// or by a trailing part of its path such as "areas/Home" or "areas/Home.md".
func refMatches(r task.Record, doc string) bool {
	if strings.EqualFold(r.Document, doc) {
		return true
	}
	if r.Path == "" {
		return false
	}
	path := strings.TrimSuffix(filepath.ToSlash(r.Path), ".md")
	doc = strings.TrimSuffix(filepath.ToSlash(doc), ".md")
	return path == doc || strings.HasSuffix(path, "/"+doc)
}

// splitRef parses "<document>:<line>".
func splitRef(selector string) (string, int, bool) {
	i := strings.LastIndexByte(selector, ':')
	if i <= 0 || i == len(selector)-1 {
		return "", 0, false
	}
	n, err := strconv.Atoi(selector[i+1:])
	if err != nil || n <= 0 {
		return "", 0, false
	}
	return strings.TrimSpace(selector[:i]), n, true
}

func sortSelectorMatches(matches []task.Record) []task.Record {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Document != matches[j].Document {
			return matches[i].Document < matches[j].Document
		}
		return matches[i].Line < matches[j].Line
	})
	return matches
}
