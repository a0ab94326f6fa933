package tracker

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/fyrsmithlabs/casegen/internal/domain"
)

const githubPageSize = 100

// GitHubBackend stores test cases as GitHub issues. Keys have the form
// "owner/repo#number". Issue type and priority become labels
// ("type:test", "priority:high") and links become comments, since GitHub
// has neither natively.
type GitHubBackend struct {
	client *github.Client
}

// NewGitHubBackend authenticates with a token. A non-empty baseURL selects
// a GitHub Enterprise Server instance.
func NewGitHubBackend(ctx context.Context, baseURL, token string, base *http.Client) (*GitHubBackend, error) {
	if base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)
	if base != nil {
		tc.Timeout = base.Timeout
	}

	client := github.NewClient(tc)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring github enterprise url: %w", err)
		}
	}
	return &GitHubBackend{client: client}, nil
}

// IssueKey formats a GitHub issue key.
func IssueKey(repo string, number int) string {
	return fmt.Sprintf("%s#%d", repo, number)
}

// ParseIssueKey splits "owner/repo#number".
func ParseIssueKey(key string) (owner, repo string, number int, err error) {
	hash := strings.LastIndexByte(key, '#')
	if hash < 0 {
		return "", "", 0, fmt.Errorf("invalid github issue key %q: want owner/repo#number", key)
	}
	owner, repo, err = splitRepo(key[:hash])
	if err != nil {
		return "", "", 0, err
	}
	number, err = strconv.Atoi(key[hash+1:])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid github issue number in %q", key)
	}
	return owner, repo, number, nil
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid github repository %q: want owner/repo", repo)
	}
	return owner, name, nil
}

func typeLabel(issueType string) string {
	return "type:" + strings.ToLower(issueType)
}

func (g *GitHubBackend) CreateIssue(ctx context.Context, project string, issue domain.TrackerIssue) (string, error) {
	owner, repo, err := splitRepo(project)
	if err != nil {
		return "", err
	}

	labels := append([]string{typeLabel(issue.IssueType)}, issue.Labels...)
	if issue.Priority != "" {
		labels = append(labels, "priority:"+strings.ToLower(issue.Priority))
	}
	body := issue.Description
	if issue.ParentKey != "" {
		body += "\n\nParent: " + issue.ParentKey
	}

	created, _, err := g.client.Issues.Create(ctx, owner, repo, &github.IssueRequest{
		Title:  github.String(issue.Summary),
		Body:   github.String(body),
		Labels: &labels,
	})
	if err != nil {
		return "", fmt.Errorf("github: %w", err)
	}
	return IssueKey(project, created.GetNumber()), nil
}

// LinkIssues comments "<linkType> <target>" on source.
func (g *GitHubBackend) LinkIssues(ctx context.Context, source, target, linkType string) error {
	owner, repo, number, err := ParseIssueKey(source)
	if err != nil {
		return err
	}
	if _, _, _, err := ParseIssueKey(target); err != nil {
		return err
	}

	comment := &github.IssueComment{Body: github.String(linkType + " " + target)}
	if _, _, err := g.client.Issues.CreateComment(ctx, owner, repo, number, comment); err != nil {
		return fmt.Errorf("github: %w", err)
	}
	return nil
}

// SearchIssues runs a GitHub issue search query, following pagination.
func (g *GitHubBackend) SearchIssues(ctx context.Context, query string) ([]Issue, error) {
	out := []Issue{}
	opts := &github.SearchOptions{ListOptions: github.ListOptions{PerPage: githubPageSize}}

	for {
		result, resp, err := g.client.Search.Issues(ctx, query, opts)
		if err != nil {
			return nil, fmt.Errorf("github: %w", err)
		}
		for _, issue := range result.Issues {
			out = append(out, fromGitHub(issue))
		}
		if resp == nil || resp.NextPage == 0 {
			return out, nil
		}
		opts.Page = resp.NextPage
	}
}

// UpdateIssue accepts the fields summary, description, labels and state.
func (g *GitHubBackend) UpdateIssue(ctx context.Context, key string, fields map[string]any) error {
	owner, repo, number, err := ParseIssueKey(key)
	if err != nil {
		return err
	}

	req := &github.IssueRequest{}
	for name, value := range fields {
		switch name {
		case "summary", "description", "state":
			s, ok := value.(string)
			if !ok {
				return fmt.Errorf("field %q must be a string", name)
			}
			switch name {
			case "summary":
				req.Title = github.String(s)
			case "description":
				req.Body = github.String(s)
			default:
				req.State = github.String(s)
			}
		case "labels":
			labels, err := stringList(value)
			if err != nil {
				return fmt.Errorf("field labels: %w", err)
			}
			req.Labels = &labels
		default:
			return fmt.Errorf("unsupported github field %q", name)
		}
	}

	if _, _, err := g.client.Issues.Edit(ctx, owner, repo, number, req); err != nil {
		return fmt.Errorf("github: %w", err)
	}
	return nil
}

func (g *GitHubBackend) StoryQuery(project string) string {
	return fmt.Sprintf("repo:%s is:issue label:%s", project, typeLabel(domain.IssueTypeStory))
}

func (g *GitHubBackend) TestQuery(project string) string {
	return fmt.Sprintf("repo:%s is:issue label:%s", project, typeLabel(domain.IssueTypeTest))
}

func fromGitHub(issue *github.Issue) Issue {
	out := Issue{
		Summary:     issue.GetTitle(),
		Description: issue.GetBody(),
		Status:      issue.GetState(),
	}
	if repo := issue.GetRepository(); repo != nil && repo.GetFullName() != "" {
		out.Key = IssueKey(repo.GetFullName(), issue.GetNumber())
	} else if full := repoFromURL(issue.GetRepositoryURL()); full != "" {
		out.Key = IssueKey(full, issue.GetNumber())
	} else {
		out.Key = "#" + strconv.Itoa(issue.GetNumber())
	}
	for _, l := range issue.Labels {
		name := l.GetName()
		out.Labels = append(out.Labels, name)
		if t, ok := strings.CutPrefix(name, "type:"); ok && out.IssueType == "" {
			out.IssueType = t
		}
	}
	return out
}

// repoFromURL extracts owner/repo from an API repository URL such as
// https://api.github.com/repos/owner/repo.
func repoFromURL(u string) string {
	_, rest, ok := strings.Cut(u, "/repos/")
	if !ok {
		return ""
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + "/" + parts[1]
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected strings, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", v)
}
