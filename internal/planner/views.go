package planner

import (
	"fmt"
	"sort"
	"time"

	"dayplanner/internal/dates"
	"dayplanner/internal/models/task"
)

type Filter string

const FilterAll Filter = "all"
const FilterActive Filter = "active"
const FilterCompleted Filter = "completed"

func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterAll, FilterActive, FilterCompleted:
		return Filter(s), nil
	case "":
		return FilterAll, nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", ErrValidation, s)
	}
}

func (f Filter) matches(t *task.Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// Draft holds the not-yet-submitted input fields; Add clears it.
type Draft struct {
	Text     string        `json:"text"`
	Date     dates.Date    `json:"date"`
	Priority task.Priority `json:"priority"`
	Notes    string        `json:"notes"`
}

// ViewState is the explicit, serializable view state owned by the planner.
// Derivations take it as an argument rather than reading ambient state.
type ViewState struct {
	Filter       Filter     `json:"filter"`
	SelectedDate dates.Date `json:"selected_date"`
	Draft        Draft      `json:"draft"`
}

func DefaultViewState() ViewState {
	return ViewState{
		Filter:       FilterAll,
		SelectedDate: dates.Today(time.Local),
	}
}

// Group is one date bucket of the grouped view.
type Group struct {
	Date  dates.Date   `json:"date"`
	Tasks []*task.Task `json:"tasks"`
}

func (p *Planner) View() ViewState {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.view
}

func (p *Planner) SetView(view ViewState) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.view = view
}

// Tasks returns a snapshot of the collection.
func (p *Planner) Tasks() []*task.Task {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	out := make([]*task.Task, len(p.tasks))
	for i, t := range p.tasks {
		out[i] = t.Clone()
	}
	return out
}

// RemainingCount is the number of uncompleted tasks on the given date.
func (p *Planner) RemainingCount(date dates.Date) int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	count := 0
	for _, t := range p.tasks {
		if t.Date.Equal(date) && !t.Completed {
			count++
		}
	}
	return count
}

// GroupedByDate partitions the collection by date. Groups come back newest
// date first; within a group tasks are ordered by created_at descending and
// the view's filter is applied as a further predicate. Every task lands in
// exactly one group keyed by its own date.
func (p *Planner) GroupedByDate(view ViewState) []Group {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	buckets := make(map[string][]*task.Task)
	keys := make(map[string]dates.Date)
	for _, t := range p.tasks {
		if !view.Filter.matches(t) {
			continue
		}
		key := t.Date.String()
		buckets[key] = append(buckets[key], t.Clone())
		keys[key] = t.Date
	}

	groups := make([]Group, 0, len(buckets))
	for key, tasks := range buckets {
		sort.Slice(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
		groups = append(groups, Group{Date: keys[key], Tasks: tasks})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[j].Date.Before(groups[i].Date)
	})
	return groups
}

// WeekStrip returns the 7 consecutive dates starting at anchor, falling back
// to the view's selected date when anchor is zero.
func (p *Planner) WeekStrip(anchor dates.Date) []dates.Date {
	if anchor.IsZero() {
		anchor = p.View().SelectedDate
	}
	return dates.WeekStrip(anchor)
}
