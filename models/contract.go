package models

import (
	"strings"
	"time"
)

// Contract is the tenant scope that owns a field schema and its activities.
type Contract struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      *string   `json:"code"`
	Client    *string   `json:"client"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	// Computed fields
	FieldCount    int `json:"field_count"`
	ActivityCount int `json:"activity_count"`
}

// ContractInput is used for creating/updating contracts.
type ContractInput struct {
	Name   string  `json:"name"`
	Code   *string `json:"code"`
	Client *string `json:"client"`
	Active *bool   `json:"active"`
}

// IsActive reports the requested state; contracts are active unless told
// otherwise.
func (c ContractInput) IsActive() bool {
	return c.Active == nil || *c.Active
}

func (c *ContractInput) Validate() string {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return "name is required"
	}
	if c.Code != nil && len(*c.Code) > 32 {
		return "code must be at most 32 characters"
	}
	if c.Active == nil {
		active := true
		c.Active = &active
	}
	return ""
}
