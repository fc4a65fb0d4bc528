package services

import (
	"lotpulse/internal/dataprocessing"
	"lotpulse/internal/sessions"
	api "lotpulse/pkg/contracts/api/v1"
	"lotpulse/pkg/contracts/domain"
)

// maxSummaryIssues caps the issues listed in a summary; IssueCount has the total.
const maxSummaryIssues = 50

func summarize(session *sessions.Session) *api.SessionSummary {
	upload := session.Upload
	summary := &api.SessionSummary{
		ID:             session.ID,
		FileName:       upload.FileName,
		Format:         upload.Format,
		Fingerprint:    upload.Fingerprint,
		Columns:        []string{},
		AvailableLots:  []string{},
		MissingColumns: upload.MissingColumns,
		IssueCount:     len(upload.Issues),
		CreatedAt:      session.CreatedAt,
		UpdatedAt:      session.UpdatedAt,
	}

	if t := upload.Table; t != nil {
		summary.Rows = t.Len()
		summary.Columns = append(summary.Columns, t.Columns...)
		summary.AvailableLots = dataprocessing.AvailableLots(t.Records)
		summary.Today = t.Today
	}

	issues := upload.Issues
	if len(issues) > maxSummaryIssues {
		issues = issues[:maxSummaryIssues]
	}
	if len(issues) > 0 {
		summary.Issues = append([]domain.FieldIssue{}, issues...)
	}
	return summary
}
