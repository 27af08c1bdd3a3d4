package task

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

type Tab string

const (
	TabAll       Tab = "all"
	TabToday     Tab = "today"
	TabTodo      Tab = "todo"
	TabOverdue   Tab = "overdue"
	TabUnplanned Tab = "unplanned"
)

// Tabs lists every tab in display order.
var Tabs = []Tab{TabAll, TabToday, TabTodo, TabOverdue, TabUnplanned}

// DateLayout is the due-date format. Fixed width, so string comparison orders
// dates correctly.
const DateLayout = "2006-01-02"

// ParseTab accepts a tab name, case-insensitive. Empty input selects TabAll.
func ParseTab(s string) (Tab, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TabAll, nil
	}
	for _, t := range Tabs {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tab %q (use all|today|todo|overdue|unplanned)", s)
}

// Today formats t as a due-date string in UTC.
func Today(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Matches reports whether r belongs to tab on the given day. Tabs overlap:
// an overdue task is also a todo task, and completed tasks count toward
// today only.
func Matches(r Record, tab Tab, today string) bool {
	switch tab {
	case TabAll:
		return true
	case TabToday:
		return r.HasDue() && r.Due == today
	case TabTodo:
		return !r.Done && r.HasDue()
	case TabOverdue:
		return !r.Done && r.HasDue() && r.Due < today
	case TabUnplanned:
		return !r.Done && !r.HasDue()
	default:
		return false
	}
}

// Classify picks the single most specific tab for r, in the order
// today, overdue, todo, unplanned. Completed tasks not due today have none.
func Classify(r Record, today string) (Tab, bool) {
	for _, tab := range []Tab{TabToday, TabOverdue, TabTodo, TabUnplanned} {
		if Matches(r, tab, today) {
			return tab, true
		}
	}
	return "", false
}

// Filter yields the records that belong to tab.
func Filter(records iter.Seq[Record], tab Tab, today string) iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for r := range records {
			if !Matches(r, tab, today) {
				continue
			}
			if !yield(r) {
				return
			}
		}
	}
}

// Counts holds an independent tally per tab.
type Counts struct {
	All       int `json:"all"`
	Today     int `json:"today"`
	Todo      int `json:"todo"`
	Overdue   int `json:"overdue"`
	Unplanned int `json:"unplanned"`
}

// Add tallies r into c.
func (c *Counts) Add(r Record, today string) {
	for _, tab := range Tabs {
		if Matches(r, tab, today) {
			c.inc(tab)
		}
	}
}

// Merge adds the tallies of o into c.
func (c *Counts) Merge(o Counts) {
	c.All += o.All
	c.Today += o.Today
	c.Todo += o.Todo
	c.Overdue += o.Overdue
	c.Unplanned += o.Unplanned
}

// Get returns the tally for tab.
func (c Counts) Get(tab Tab) int {
	switch tab {
	case TabAll:
		return c.All
	case TabToday:
		return c.Today
	case TabTodo:
		return c.Todo
	case TabOverdue:
		return c.Overdue
	case TabUnplanned:
		return c.Unplanned
	default:
		return 0
	}
}

// Map returns the tallies keyed by tab name.
func (c Counts) Map() map[Tab]int {
	out := make(map[Tab]int, len(Tabs))
	for _, tab := range Tabs {
		out[tab] = c.Get(tab)
	}
	return out
}

func (c *Counts) inc(tab Tab) {
	switch tab {
	case TabAll:
		c.All++
	case TabToday:
		c.Today++
	case TabTodo:
		c.Todo++
	case TabOverdue:
		c.Overdue++
	case TabUnplanned:
		c.Unplanned++
	}
}

// Aggregate counts records per tab.
func Aggregate(records iter.Seq[Record], today string) Counts {
	var c Counts
	for r := range records {
		c.Add(r, today)
	}
	return c
}
