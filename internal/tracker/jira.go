package tracker

import (
	"context"
	"fmt"
	"net/http"

	jira "github.com/andygrunwald/go-jira"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

const jiraPageSize = 100

var jiraSearchFields = []string{"summary", "description", "issuetype", "status", "labels"}

// JiraBackend talks to Jira Cloud or Server over the REST API v2.
type JiraBackend struct {
	client *jira.Client
}

// NewJiraBackend authenticates with email and API token. base carries
// transport settings such as the timeout and may be nil.
func NewJiraBackend(url, email, token string, base *http.Client) (*JiraBackend, error) {
	tp := jira.BasicAuthTransport{Username: email, Password: token}
	hc := tp.Client()
	if base != nil {
		if base.Transport != nil {
			tp.Transport = base.Transport
			hc = tp.Client()
		}
		hc.Timeout = base.Timeout
	}

	client, err := jira.NewClient(hc, url)
	if err != nil {
		return nil, fmt.Errorf("creating jira client: %w", err)
	}
	return &JiraBackend{client: client}, nil
}

func (j *JiraBackend) CreateIssue(ctx context.Context, project string, issue domain.TrackerIssue) (string, error) {
	fields := &jira.IssueFields{
		Project:     jira.Project{Key: project},
		Summary:     issue.Summary,
		Description: issue.Description,
		Type:        jira.IssueType{Name: issue.IssueType},
	}
	if issue.Priority != "" {
		fields.Priority = &jira.Priority{Name: issue.Priority}
	}
	if len(issue.Labels) > 0 {
		fields.Labels = issue.Labels
	}
	if issue.ParentKey != "" {
		fields.Parent = &jira.Parent{Key: issue.ParentKey}
	}

	created, resp, err := j.client.Issue.CreateWithContext(ctx, &jira.Issue{Fields: fields})
	if err != nil {
		return "", jiraError(resp, err)
	}
	return created.Key, nil
}

// LinkIssues makes source the inward and target the outward issue.
func (j *JiraBackend) LinkIssues(ctx context.Context, source, target, linkType string) error {
	link := &jira.IssueLink{
		Type:         jira.IssueLinkType{Name: linkType},
		InwardIssue:  &jira.Issue{Key: source},
		OutwardIssue: &jira.Issue{Key: target},
	}
	resp, err := j.client.Issue.AddLinkWithContext(ctx, link)
	if err != nil {
		return jiraError(resp, err)
	}
	return nil
}

// SearchIssues runs a JQL query, following pagination to the end.
func (j *JiraBackend) SearchIssues(ctx context.Context, jql string) ([]Issue, error) {
	out := []Issue{}
	opts := &jira.SearchOptions{MaxResults: jiraPageSize, Fields: jiraSearchFields}

	for {
		page, resp, err := j.client.Issue.SearchWithContext(ctx, jql, opts)
		if err != nil {
			return nil, jiraError(resp, err)
		}
		for _, issue := range page {
			out = append(out, fromJira(issue))
		}

		if len(page) == 0 || resp == nil || resp.StartAt+len(page) >= resp.Total {
			return out, nil
		}
		opts.StartAt = resp.StartAt + len(page)
	}
}

// UpdateIssue sends fields as the "fields" object of an edit request.
func (j *JiraBackend) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	resp, err := j.client.Issue.UpdateIssueWithContext(ctx, key, map[string]interface{}{"fields": fields})
	if err != nil {
		return jiraError(resp, err)
	}
	return nil
}

func (j *JiraBackend) StoryQuery(project string) string {
	return fmt.Sprintf("project = %s AND issuetype = %s", project, domain.IssueTypeStory)
}

func (j *JiraBackend) TestQuery(project string) string {
	return fmt.Sprintf("project = %s AND issuetype = %s", project, domain.IssueTypeTest)
}

func fromJira(issue jira.Issue) Issue {
	out := Issue{Key: issue.Key}
	if f := issue.Fields; f != nil {
		out.Summary = f.Summary
		out.Description = f.Description
		out.IssueType = f.Type.Name
		out.Labels = f.Labels
		if f.Status != nil {
			out.Status = f.Status.Name
		}
	}
	return out
}

// jiraError adds the HTTP status, when known, to a go-jira error.
func jiraError(resp *jira.Response, err error) error {
	if resp != nil && resp.Response != nil {
		return fmt.Errorf("jira: status %d: %w", resp.StatusCode, err)
	}
	return fmt.Errorf("jira: %w", err)
}
