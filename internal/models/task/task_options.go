package task

import "dayplanner/internal/dates"

type TaskOption func(*Task)

func WithText(text string) TaskOption {
	return func(task *Task) {
		task.Text = text
	}
}

func WithNotes(notes string) TaskOption {
	return func(task *Task) {
		task.Notes = notes
	}
}

func WithPriority(priority Priority) TaskOption {
	if priority == "" {
		return nil
	}
	return func(task *Task) {
		task.Priority = priority
	}
}

func WithDate(date dates.Date) TaskOption {
	if date.IsZero() {
		return nil
	}
	return func(task *Task) {
		task.Date = date
	}
}

func WithCompleted(completed bool) TaskOption {
	return func(task *Task) {
		task.Completed = completed
	}
}

func ToggleCompleted() TaskOption {
	return func(task *Task) {
		task.Completed = !task.Completed
	}
}
