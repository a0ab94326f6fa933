// Package tracker publishes test cases to an issue tracker and queries it
// for the coverage report.
//
// Backend implementations (Jira, GitHub Issues) are strict and return
// errors. Client wraps a Backend with the publishing policy: creation,
// linking and updates report failure as an absent key or false, and
// GetProjectIssues turns a failed query into an empty list.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/fyrsmithlabs/casegen/internal/config"
	"github.com/fyrsmithlabs/casegen/internal/logging"
)

// New builds the Client for the configured provider.
func New(ctx context.Context, cfg config.TrackerConfig, httpClient *http.Client, logger *logging.Logger) (*Client, error) {
	backend, err := newBackend(ctx, cfg, httpClient)
	if err != nil {
		return nil, err
	}
	return NewClient(backend, cfg.ProjectKey, cfg.LinkType, logger), nil
}

func newBackend(ctx context.Context, cfg config.TrackerConfig, httpClient *http.Client) (Backend, error) {
	if !cfg.APIToken.IsSet() {
		return nil, errors.New("tracker.api_token is required")
	}

	switch cfg.Provider {
	case config.TrackerJira:
		if cfg.URL == "" {
			return nil, errors.New("tracker.url is required for provider \"jira\"")
		}
		if cfg.Email == "" {
			return nil, errors.New("tracker.email is required for provider \"jira\"")
		}
		b, err := NewJiraBackend(cfg.URL, cfg.Email, cfg.APIToken.Value(), httpClient)
		if err != nil {
			return nil, err
		}
		return b, nil

	case config.TrackerGitHub:
		if _, _, err := splitRepo(cfg.ProjectKey); err != nil {
			return nil, fmt.Errorf("tracker.project_key: %w", err)
		}
		b, err := NewGitHubBackend(ctx, cfg.URL, cfg.APIToken.Value(), httpClient)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	return nil, fmt.Errorf("unsupported tracker provider %q", cfg.Provider)
}
