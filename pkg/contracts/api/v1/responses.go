package api

import (
	"time"

	"lotpulse/pkg/contracts/domain"
)

// SessionSummary describes the table currently held by a session.
type SessionSummary struct {
	ID             string              `json:"id"`
	FileName       string              `json:"file_name"`
	Format         string              `json:"format"`
	Fingerprint    string              `json:"fingerprint"`
	Rows           int                 `json:"rows"`
	Columns        []string            `json:"columns"`
	AvailableLots  []string            `json:"available_lots"`
	MissingColumns []string            `json:"missing_columns,omitempty"`
	IssueCount     int                 `json:"issue_count"`
	Issues         []domain.FieldIssue `json:"issues,omitempty"`
	Today          time.Time           `json:"today"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// LotsResponse feeds the Platz filter control.
type LotsResponse struct {
	Lots            []string `json:"lots"`
	UnassignedCount int      `json:"unassigned_count"`
}

// RenderResponse is returned by the stateless render endpoint.
type RenderResponse struct {
	Views          *domain.ReportViews `json:"views"`
	Issues         []domain.FieldIssue `json:"issues,omitempty"`
	MissingColumns []string            `json:"missing_columns,omitempty"`
}
