package tracker

import (
	"context"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

// Issue is an issue record returned by a query.
type Issue struct {
	Key         string   `json:"key"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	IssueType   string   `json:"issue_type,omitempty"`
	Status      string   `json:"status,omitempty"`
	Labels      []string `json:"labels,omitempty"`
}

// Backend is a strict issue-tracker API. Every method returns the
// underlying error; Client layers the soft-fail policy on top.
type Backend interface {
	// CreateIssue creates issue in project and returns its key.
	CreateIssue(ctx context.Context, project string, issue domain.TrackerIssue) (string, error)

	// LinkIssues records a directional relationship from source to target.
	LinkIssues(ctx context.Context, source, target, linkType string) error

	// SearchIssues returns every issue matching query.
	SearchIssues(ctx context.Context, query string) ([]Issue, error)

	// UpdateIssue applies a partial field update.
	UpdateIssue(ctx context.Context, key string, fields map[string]any) error

	// StoryQuery and TestQuery build the filters the coverage report runs.
	StoryQuery(project string) string
	TestQuery(project string) string
}
