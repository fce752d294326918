package model

import "time"

// Session tracks which role is active for a conversation.
type Session struct {
	ID               string        `json:"session_id"`
	CurrentRoleID    string        `json:"current_role_id"`
	History          []SwitchEvent `json:"history"`
	LastSwitchReason string        `json:"last_switch_reason"`
	CreatedAt        time.Time     `json:"created_at"`
	LastActivity     time.Time     `json:"last_activity"`
}

// SwitchEvent records one change of the active role.
type SwitchEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	FromRoleID string    `json:"from_role_id"`
	ToRoleID   string    `json:"to_role_id"`
	Reason     string    `json:"reason"`
	Query      string    `json:"query,omitempty"`
	Automatic  bool      `json:"automatic"`
}

// TriggerSource says where a trigger came from.
type TriggerSource string

const (
	SourceDomain TriggerSource = "domain"
	SourceName   TriggerSource = "name"
	SourceCustom TriggerSource = "custom"
)

// Trigger is a weighted pattern that votes for a role.
type Trigger struct {
	RoleID   string        `json:"role_id"`
	Pattern  string        `json:"pattern"`
	Priority int           `json:"priority"`
	Source   TriggerSource `json:"source"`
	Domain   string        `json:"domain,omitempty"`
}
