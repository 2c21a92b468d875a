package model

import "errors"

type TaskState string

const (
	StateOpen     TaskState = "open"
	StateFull     TaskState = "full"
	StateClosed   TaskState = "closed"
	StateArchived TaskState = "archived"
)

var (
	ErrInvalidUserLimit = errors.New("user limit must be positive")
	ErrDuplicateChannel = errors.New("task already exists for channel")
	ErrNotFound         = errors.New("no task for channel")
	ErrArchived         = errors.New("task has been archived")
)

// TaskRecord is the per-channel task state. ApprovedParticipants is the
// source of truth for who has been credited; the platform role is a derived
// side effect of it.
type TaskRecord struct {
	ChannelID            string          `json:"channel_id"`
	TaskName             string          `json:"task_name"`
	UserLimit            int             `json:"user_limit"`
	Amount               string          `json:"amount"`
	Description          string          `json:"description"`
	Link                 string          `json:"link"`
	RoleID               string          `json:"role_id"`
	ApprovedCount        int             `json:"approved_count"`
	State                TaskState       `json:"state"`
	ApprovedParticipants map[string]bool `json:"approved_participants"`
}

func NewTaskRecord(channelID, taskName string, userLimit int, amount, description, link, roleID string) (*TaskRecord, error) {
	if userLimit <= 0 {
		return nil, ErrInvalidUserLimit
	}
	if link == "" {
		link = "N/A"
	}
	return &TaskRecord{
		ChannelID:            channelID,
		TaskName:             taskName,
		UserLimit:            userLimit,
		Amount:               amount,
		Description:          description,
		Link:                 link,
		RoleID:               roleID,
		State:                StateOpen,
		ApprovedParticipants: make(map[string]bool),
	}, nil
}

// Locked reports whether the channel should refuse new sends.
func (t *TaskRecord) Locked() bool {
	switch t.State {
	case StateFull, StateClosed, StateArchived:
		return true
	}
	return false
}

func (t *TaskRecord) IsApproved(userID string) bool {
	return t.ApprovedParticipants[userID]
}

// Approve credits a participant. It returns false without mutating anything
// if the participant is already credited or capacity is exhausted. When the
// grant fills the last slot the record transitions to Full.
func (t *TaskRecord) Approve(userID string) bool {
	if t.ApprovedParticipants[userID] || t.ApprovedCount >= t.UserLimit {
		return false
	}
	if t.ApprovedParticipants == nil {
		t.ApprovedParticipants = make(map[string]bool)
	}
	t.ApprovedParticipants[userID] = true
	t.ApprovedCount++
	if t.ApprovedCount == t.UserLimit {
		t.State = StateFull
	}
	return true
}

// Clone returns a deep copy so store readers never alias stored state.
func (t *TaskRecord) Clone() *TaskRecord {
	c := *t
	c.ApprovedParticipants = make(map[string]bool, len(t.ApprovedParticipants))
	for id := range t.ApprovedParticipants {
		c.ApprovedParticipants[id] = true
	}
	return &c
}
