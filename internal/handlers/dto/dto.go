package dto

import (
	"time"

	"dayplanner/internal/dates"
	"dayplanner/internal/models/task"
	"dayplanner/internal/planner"

	"github.com/google/uuid"
)

type SignUpRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
}

type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type EmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type RedeemRequest struct {
	Token string `json:"token" validate:"required"`
}

type CompleteResetRequest struct {
	Password string `json:"password" validate:"required,min=6"`
	Confirm  string `json:"confirm" validate:"required"`
}

type CreateTaskRequest struct {
	Text     string `json:"text"`
	Date     string `json:"date,omitempty"`
	Priority string `json:"priority,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type EditTaskRequest struct {
	Text     string `json:"text" validate:"required"`
	Notes    string `json:"notes,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type DraftRequest struct {
	Text     string `json:"text"`
	Date     string `json:"date,omitempty"`
	Priority string `json:"priority,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type ViewRequest struct {
	Filter       string        `json:"filter,omitempty"`
	SelectedDate string        `json:"selected_date,omitempty"`
	Draft        *DraftRequest `json:"draft,omitempty"`
}

type MoveTaskRequest struct {
	Date string `json:"date" validate:"required"`
}

type TaskResponse struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	Date      string    `json:"date"`
	Priority  string    `json:"priority"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func FromTask(t *task.Task) TaskResponse {
	return TaskResponse{
		ID:        t.ID,
		Text:      t.Text,
		Completed: t.Completed,
		Date:      t.Date.String(),
		Priority:  string(t.Priority),
		Notes:     t.Notes,
		CreatedAt: t.CreatedAt,
	}
}

func FromTaskList(tasks []*task.Task) []TaskResponse {
	result := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		result[i] = FromTask(t)
	}
	return result
}

type GroupResponse struct {
	Date  string         `json:"date"`
	Tasks []TaskResponse `json:"tasks"`
}

func FromGroups(groups []planner.Group) []GroupResponse {
	result := make([]GroupResponse, len(groups))
	for i, g := range groups {
		result[i] = GroupResponse{
			Date:  g.Date.String(),
			Tasks: FromTaskList(g.Tasks),
		}
	}
	return result
}

type WeekResponse struct {
	Days []string `json:"days"`
}

func FromWeek(days []dates.Date) WeekResponse {
	out := WeekResponse{Days: make([]string, len(days))}
	for i, d := range days {
		out.Days[i] = d.String()
	}
	return out
}
