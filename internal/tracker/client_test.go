package tracker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
)

// fakeBackend is an in-memory Backend with injectable failures.
type fakeBackend struct {
	createErr error
	linkErr   error
	searchErr error
	updateErr error

	nextID  int
	created []domain.TrackerIssue
	links   [][3]string
	updates map[string]map[string]any
	issues  map[string][]Issue
}

func (f *fakeBackend) CreateIssue(_ context.Context, project string, issue domain.TrackerIssue) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	f.created = append(f.created, issue)
	return project + "-" + string(rune('0'+f.nextID)), nil
}

func (f *fakeBackend) LinkIssues(_ context.Context, source, target, linkType string) error {
	if f.linkErr != nil {
		return f.linkErr
	}
	f.links = append(f.links, [3]string{source, target, linkType})
	return nil
}

func (f *fakeBackend) SearchIssues(_ context.Context, query string) ([]Issue, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.issues[query], nil
}

func (f *fakeBackend) UpdateIssue(_ context.Context, key string, fields map[string]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.updates == nil {
		f.updates = map[string]map[string]any{}
	}
	f.updates[key] = fields
	return nil
}

func (f *fakeBackend) StoryQuery(project string) string { return "stories:" + project }
func (f *fakeBackend) TestQuery(project string) string  { return "tests:" + project }

func TestClient_CreateTestIssue(t *testing.T) {
	backend := &fakeBackend{}
	logger := logging.NewTestLogger()
	c := NewClient(backend, "TEST", "", logger.Logger)

	key, ok := c.CreateTestIssue(context.Background(), sampleCase(), "PROJ-9")
	require.True(t, ok)
	assert.Equal(t, "TEST-1", key)

	require.Len(t, backend.created, 1)
	assert.Equal(t, "PROJ-9", backend.created[0].ParentKey)
	assert.Equal(t, domain.IssueTypeTest, backend.created[0].IssueType)
	logger.AssertField(t, "created test issue", "key", "TEST-1")
}

func TestClient_CreateTestIssue_Failure(t *testing.T) {
	logger := logging.NewTestLogger()
	c := NewClient(&fakeBackend{createErr: errors.New("400 bad request")}, "TEST", "", logger.Logger)

	key, ok := c.CreateTestIssue(context.Background(), sampleCase(), "")
	assert.False(t, ok)
	assert.Empty(t, key)
	logger.AssertLogged(t, zapcore.ErrorLevel, "failed to create issue")
}

func TestClient_LinkIssues(t *testing.T) {
	backend := &fakeBackend{}
	c := NewClient(backend, "TEST", "Tests", nil)

	assert.True(t, c.LinkIssues(context.Background(), "TEST-1", "PROJ-9", ""))
	assert.True(t, c.LinkIssues(context.Background(), "TEST-2", "PROJ-9", "Relates"))
	assert.Equal(t, [][3]string{
		{"TEST-1", "PROJ-9", "Tests"},
		{"TEST-2", "PROJ-9", "Relates"},
	}, backend.links)

	c = NewClient(&fakeBackend{linkErr: errors.New("no such link type")}, "TEST", "Tests", nil)
	assert.False(t, c.LinkIssues(context.Background(), "TEST-1", "PROJ-9", ""))
}

func TestClient_GetProjectIssues(t *testing.T) {
	backend := &fakeBackend{issues: map[string][]Issue{
		"q": {{Key: "TEST-1"}, {Key: "TEST-2"}},
	}}
	c := NewClient(backend, "TEST", "", nil)

	assert.Len(t, c.GetProjectIssues(context.Background(), "q"), 2)

	empty := c.GetProjectIssues(context.Background(), "none")
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestClient_GetProjectIssues_SwallowsFailure(t *testing.T) {
	logger := logging.NewTestLogger()
	c := NewClient(&fakeBackend{searchErr: errors.New("jql error")}, "TEST", "", logger.Logger)

	got := c.GetProjectIssues(context.Background(), "q")
	assert.NotNil(t, got)
	assert.Empty(t, got)
	logger.AssertLogged(t, zapcore.ErrorLevel, "failed to retrieve issues")

	_, err := c.SearchIssues(context.Background(), "q")
	assert.EqualError(t, err, "jql error")
}

func TestClient_UpdateIssue(t *testing.T) {
	backend := &fakeBackend{}
	c := NewClient(backend, "TEST", "", nil)

	fields := map[string]any{"summary": "renamed"}
	assert.True(t, c.UpdateIssue(context.Background(), "TEST-1", fields))
	assert.Equal(t, fields, backend.updates["TEST-1"])

	c = NewClient(&fakeBackend{updateErr: errors.New("forbidden")}, "TEST", "", nil)
	assert.False(t, c.UpdateIssue(context.Background(), "TEST-1", fields))
}

func TestClient_Defaults(t *testing.T) {
	c := NewClient(&fakeBackend{}, "TEST", "", nil)
	assert.Equal(t, "TEST", c.ProjectKey())
	assert.Equal(t, "Tests", c.LinkType())
	assert.Equal(t, "stories:TEST", c.StoryQuery("TEST"))
	assert.Equal(t, "tests:TEST", c.TestQuery("TEST"))
}
