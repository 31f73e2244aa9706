package models

import (
	"strings"
	"time"
)

// Activity statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Activity is a work entry logged by a collaborator against a contract.
// CustomFields holds the values of the contract's dynamic fields, keyed by
// field id.
type Activity struct {
	ID           string         `json:"id"`
	ContractID   string         `json:"contract_id"`
	Title        string         `json:"title"`
	Description  *string        `json:"description"`
	ActivityDate *string        `json:"activity_date"`
	Status       string         `json:"status"` // pending, approved, rejected
	CustomFields map[string]any `json:"custom_fields"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	// Computed fields
	ContractName *string `json:"contract_name,omitempty"`
}

// ActivityInput is used for creating/updating activities.
type ActivityInput struct {
	Title        string         `json:"title"`
	Description  *string        `json:"description"`
	ActivityDate *string        `json:"activity_date"`
	Status       string         `json:"status"`
	CustomFields map[string]any `json:"custom_fields"`
}

func (a *ActivityInput) Validate() string {
	a.Title = strings.TrimSpace(a.Title)
	if a.Title == "" {
		return "title is required"
	}
	if a.ActivityDate != nil && *a.ActivityDate != "" {
		if _, err := time.Parse(time.DateOnly, *a.ActivityDate); err != nil {
			return "activity_date must be formatted as YYYY-MM-DD"
		}
	}
	switch a.Status {
	case "", StatusPending, StatusApproved, StatusRejected:
	default:
		return "status must be one of: pending, approved, rejected"
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.CustomFields == nil {
		a.CustomFields = map[string]any{}
	}
	return ""
}

// ActivityFilter narrows activity listings.
type ActivityFilter struct {
	ContractID string
	Status     string
	From       string
	To         string
}

// Dashboard holds the summary counts shown on the home screen.
type Dashboard struct {
	TotalContracts     int `json:"total_contracts"`
	ActiveContracts    int `json:"active_contracts"`
	TotalFields        int `json:"total_fields"`
	ActiveFields       int `json:"active_fields"`
	TotalActivities    int `json:"total_activities"`
	PendingActivities  int `json:"pending_activities"`
	ApprovedActivities int `json:"approved_activities"`
	RejectedActivities int `json:"rejected_activities"`

	RecentActivities []Activity `json:"recent_activities"`
}
