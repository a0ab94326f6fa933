package tracker

import (
	"context"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
)

// Client publishes test cases to a Backend. Write failures are logged and
// reported as absent keys or false, never as errors, so one failed issue
// cannot abort a batch.
type Client struct {
	backend  Backend
	project  string
	linkType string
	logger   *logging.Logger
}

// NewClient wraps backend. project is the default project for created
// issues and linkType the default relationship name.
func NewClient(backend Backend, project, linkType string, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	if linkType == "" {
		linkType = "Tests"
	}
	return &Client{
		backend:  backend,
		project:  project,
		linkType: linkType,
		logger:   logger,
	}
}

// ProjectKey returns the configured default project.
func (c *Client) ProjectKey() string {
	return c.project
}

// LinkType returns the configured default relationship name.
func (c *Client) LinkType() string {
	return c.linkType
}

// CreateTestIssue creates a Test issue for tc, attached to parentKey when
// one is given. It returns the new key, or false if the tracker refused.
func (c *Client) CreateTestIssue(ctx context.Context, tc domain.TestCase, parentKey string) (string, bool) {
	key, err := c.backend.CreateIssue(ctx, c.project, BuildIssue(tc, parentKey))
	if err != nil {
		c.logger.Error(ctx, "failed to create issue",
			zap.String("test_case", tc.Title),
			zap.Error(err),
		)
		return "", false
	}
	c.logger.Info(ctx, "created test issue", zap.String("key", key))
	return key, true
}

// LinkIssues links source to target with linkType, or the configured
// default when linkType is empty.
func (c *Client) LinkIssues(ctx context.Context, source, target, linkType string) bool {
	if linkType == "" {
		linkType = c.linkType
	}
	if err := c.backend.LinkIssues(ctx, source, target, linkType); err != nil {
		c.logger.Error(ctx, "failed to link issues",
			zap.String("source", source),
			zap.String("target", target),
			zap.Error(err),
		)
		return false
	}
	c.logger.Info(ctx, "linked issues",
		zap.String("source", source),
		zap.String("target", target),
		zap.String("link_type", linkType),
	)
	return true
}

// GetProjectIssues runs query and returns the matches. A failed query
// yields an empty list, indistinguishable from zero matches; use
// SearchIssues when the difference matters.
func (c *Client) GetProjectIssues(ctx context.Context, query string) []Issue {
	issues, err := c.SearchIssues(ctx, query)
	if err != nil {
		return []Issue{}
	}
	return issues
}

// SearchIssues runs query and returns the error on failure.
func (c *Client) SearchIssues(ctx context.Context, query string) ([]Issue, error) {
	issues, err := c.backend.SearchIssues(ctx, query)
	if err != nil {
		c.logger.Error(ctx, "failed to retrieve issues",
			zap.String("query", query),
			zap.Error(err),
		)
		return nil, err
	}
	if issues == nil {
		issues = []Issue{}
	}
	return issues, nil
}

// UpdateIssue applies fields to key.
func (c *Client) UpdateIssue(ctx context.Context, key string, fields map[string]any) bool {
	if err := c.backend.UpdateIssue(ctx, key, fields); err != nil {
		c.logger.Error(ctx, "failed to update issue",
			zap.String("key", key),
			zap.Error(err),
		)
		return false
	}
	c.logger.Info(ctx, "updated issue", zap.String("key", key))
	return true
}

// StoryQuery returns the filter selecting every story in project.
func (c *Client) StoryQuery(project string) string {
	return c.backend.StoryQuery(project)
}

// TestQuery returns the filter selecting every test in project.
func (c *Client) TestQuery(project string) string {
	return c.backend.TestQuery(project)
}
