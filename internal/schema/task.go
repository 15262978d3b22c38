package schema

import "encoding/json"

// TaskStatus is the lifecycle state of a TaskItem.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskDeleted    TaskStatus = "deleted"
)

// TaskItem is a unit of work tracked for a team, assignable to a member
// and orderable via BlockedBy/Blocks.
type TaskItem struct {
	TaskID      string // sequential string: "1", "2", "3"
	Subject     string
	Description string
	ActiveForm  string // present-continuous form shown while in_progress
	Status      TaskStatus
	Owner       string // assigned agent name; empty if unassigned
	CreatedAt   string // ISO 8601
	UpdatedAt   string // ISO 8601
	BlockedBy   []string
	Blocks      []string
	Metadata    map[string]json.RawMessage

	UnknownFields map[string]json.RawMessage
}

var taskItemKnownKeys = []string{
	"taskId", "subject", "description", "activeForm", "status", "owner",
	"created_at", "updated_at", "blockedBy", "blocks", "metadata",
}

type taskItemAlias struct {
	TaskID      string                     `json:"taskId"`
	Subject     string                     `json:"subject"`
	Description string                     `json:"description"`
	ActiveForm  string                     `json:"activeForm,omitempty"`
	Status      TaskStatus                 `json:"status"`
	Owner       string                     `json:"owner,omitempty"`
	CreatedAt   string                     `json:"created_at"`
	UpdatedAt   string                     `json:"updated_at"`
	BlockedBy   []string                   `json:"blockedBy,omitempty"`
	Blocks      []string                   `json:"blocks,omitempty"`
	Metadata    map[string]json.RawMessage `json:"metadata,omitempty"`
}

func (t TaskItem) MarshalJSON() ([]byte, error) {
	alias := taskItemAlias{
		TaskID:      t.TaskID,
		Subject:     t.Subject,
		Description: t.Description,
		ActiveForm:  t.ActiveForm,
		Status:      t.Status,
		Owner:       t.Owner,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		BlockedBy:   t.BlockedBy,
		Blocks:      t.Blocks,
		Metadata:    t.Metadata,
	}
	return mergeUnknown(alias, t.UnknownFields)
}

func (t *TaskItem) UnmarshalJSON(data []byte) error {
	var alias taskItemAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}
	unknown, err := splitKnown(data, taskItemKnownKeys)
	if err != nil {
		return err
	}

	t.TaskID = alias.TaskID
	t.Subject = alias.Subject
	t.Description = alias.Description
	t.ActiveForm = alias.ActiveForm
	t.Status = alias.Status
	t.Owner = alias.Owner
	t.CreatedAt = alias.CreatedAt
	t.UpdatedAt = alias.UpdatedAt
	t.BlockedBy = alias.BlockedBy
	t.Blocks = alias.Blocks
	t.Metadata = alias.Metadata
	t.UnknownFields = unknown
	return nil
}
