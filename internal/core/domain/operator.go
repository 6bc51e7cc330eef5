package domain

import "time"

// Operator is a venue administrator. The operator's email is their tenant id.
type Operator struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never serialize
	Name         string     `json:"name"`
	Active       bool       `json:"active"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

// OperatorSummary provides a safe view of operator data (no password hash)
type OperatorSummary struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Active      bool       `json:"active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ToSummary converts an Operator to OperatorSummary
func (o *Operator) ToSummary() *OperatorSummary {
	return &OperatorSummary{
		ID:          o.ID,
		Email:       o.Email,
		Name:        o.Name,
		Active:      o.Active,
		LastLoginAt: o.LastLoginAt,
	}
}

// CreateOperatorRequest carries the fields for provisioning an operator
type CreateOperatorRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}
