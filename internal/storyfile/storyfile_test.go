package storyfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/pipeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func loginStory() domain.UserStory {
	points := 5
	return domain.UserStory{
		Title:       "User Login Functionality",
		Description: "As a registered user, I want to log in",
		AcceptanceCriteria: []string{
			"User can enter email and password",
			"Account is locked after 5 failed attempts",
		},
		StoryPoints: &points,
		EpicLink:    "PROJ-100",
	}
}

func TestLoadStory(t *testing.T) {
	files := map[string]string{
		"story.json": `{
			"title": "User Login Functionality",
			"description": "As a registered user, I want to log in",
			"acceptance_criteria": ["User can enter email and password", "Account is locked after 5 failed attempts"],
			"story_points": 5,
			"epic_link": "PROJ-100"
		}`,
		"story.yaml": `
title: User Login Functionality
description: As a registered user, I want to log in
acceptance_criteria:
  - User can enter email and password
  - Account is locked after 5 failed attempts
story_points: 5
epic_link: PROJ-100
`,
		"story.toml": `
title = "User Login Functionality"
description = "As a registered user, I want to log in"
acceptance_criteria = ["User can enter email and password", "Account is locked after 5 failed attempts"]
story_points = 5
epic_link = "PROJ-100"
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			got, err := LoadStory(writeFile(t, name, content))
			require.NoError(t, err)
			assert.Equal(t, loginStory(), got)
		})
	}
}

func TestLoadStory_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown json field", "s.json", `{"title": "t", "description": "d", "color": "red"}`, "unknown field"},
		{"unknown yaml field", "s.yml", "title: t\ndescription: d\ncolor: red\n", "unknown field"},
		{"unknown toml key", "s.toml", "title = \"t\"\ndescription = \"d\"\ncolor = \"red\"\n", "unknown field"},
		{"missing toml title", "s.toml", "description = \"d\"\n", "title is required"},
		{"null yaml description", "s.yaml", "title: t\ndescription:\n", "description is required"},
		{"wrong json type", "s.json", `{"title": "t", "description": "d", "story_points": "five"}`, "cannot unmarshal"},
		{"negative points", "s.json", `{"title": "t", "description": "d", "story_points": -1}`, "must not be negative"},
		{"trailing json", "s.json", `{"title": "t", "description": "d"} {}`, "unexpected data"},
		{"missing description", "s.json", `{"title": "t"}`, "description is required"},
		{"empty yaml", "s.yaml", "", "title is required"},
		{"unsupported", "s.txt", "title", "unsupported story file format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadStory(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadStory_MissingFile(t *testing.T) {
	_, err := LoadStory(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadBatch(t *testing.T) {
	want := []pipeline.BatchEntry{
		{
			Story:     domain.UserStory{Title: "User Registration", Description: "As a new user, I want to register", AcceptanceCriteria: []string{"Email must be unique"}},
			ParentKey: "PROJ-123",
		},
		{
			Story: domain.UserStory{Title: "Password Reset", Description: "As a user, I want to reset my password", AcceptanceCriteria: []string{"Reset link expires after 24 hours"}},
		},
	}

	files := map[string]string{
		"list.json": `[
			{"story": {"title": "User Registration", "description": "As a new user, I want to register", "acceptance_criteria": ["Email must be unique"]}, "parent_key": "PROJ-123"},
			{"story": {"title": "Password Reset", "description": "As a user, I want to reset my password", "acceptance_criteria": ["Reset link expires after 24 hours"]}}
		]`,
		"doc.json": `{"stories": [
			{"story": {"title": "User Registration", "description": "As a new user, I want to register", "acceptance_criteria": ["Email must be unique"]}, "parent_key": "PROJ-123"},
			{"story": {"title": "Password Reset", "description": "As a user, I want to reset my password", "acceptance_criteria": ["Reset link expires after 24 hours"]}}
		]}`,
		"list.yaml": `
- story:
    title: User Registration
    description: As a new user, I want to register
    acceptance_criteria: [Email must be unique]
  parent_key: PROJ-123
- story:
    title: Password Reset
    description: As a user, I want to reset my password
    acceptance_criteria: [Reset link expires after 24 hours]
`,
		"doc.yaml": `
stories:
  - story:
      title: User Registration
      description: As a new user, I want to register
      acceptance_criteria: [Email must be unique]
    parent_key: PROJ-123
  - story:
      title: Password Reset
      description: As a user, I want to reset my password
      acceptance_criteria: [Reset link expires after 24 hours]
`,
		"batch.toml": `
[[stories]]
parent_key = "PROJ-123"
[stories.story]
title = "User Registration"
description = "As a new user, I want to register"
acceptance_criteria = ["Email must be unique"]

[[stories]]
[stories.story]
title = "Password Reset"
description = "As a user, I want to reset my password"
acceptance_criteria = ["Reset link expires after 24 hours"]
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			got, err := LoadBatch(writeFile(t, name, content))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestLoadBatch_KeepsMalformedEntries(t *testing.T) {
	got, err := LoadBatch(writeFile(t, "b.json", `[{"story": {"title": "No description"}}, {}]`))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "No description", got[0].Story.Title)
	assert.ErrorContains(t, got[0].Err, "description is required")
	assert.Empty(t, got[1].Story.Title)
	assert.ErrorContains(t, got[1].Err, "story is required")
}

func TestLoadBatch_IsolatesBadEntries(t *testing.T) {
	files := map[string]string{
		"mixed.json": `{"stories": [
			{"story": {"title": "Login", "description": "As a user I want to log in"}},
			{"story": {"title": "Logout", "description": "d", "acceptance_criteria": "x"}},
			{"story": {"title": "Signup", "description": ""}, "parent_key": "PROJ-1"}
		]}`,
		"mixed.yaml": `
- story:
    title: Login
    description: As a user I want to log in
- story:
    title: Logout
    description: d
    acceptance_criteria: x
- story:
    title: Signup
    description: ""
  parent_key: PROJ-1
`,
		"mixed.toml": `
[[stories]]
[stories.story]
title = "Login"
description = "As a user I want to log in"

[[stories]]
[stories.story]
title = "Logout"
description = "d"
acceptance_criteria = "x"

[[stories]]
parent_key = "PROJ-1"
[stories.story]
title = "Signup"
description = ""
`,
	}

	for name, content := range files {
		t.Run(name, func(t *testing.T) {
			got, err := LoadBatch(writeFile(t, name, content))
			require.NoError(t, err)
			require.Len(t, got, 3)

			assert.NoError(t, got[0].Err)
			assert.Equal(t, "Login", got[0].Story.Title)

			assert.ErrorContains(t, got[1].Err, "acceptance_criteria")
			assert.Equal(t, "Logout", got[1].Story.Title)

			assert.NoError(t, got[2].Err)
			assert.Equal(t, pipeline.BatchEntry{Story: domain.UserStory{Title: "Signup"}, ParentKey: "PROJ-1"}, got[2])
		})
	}
}

func TestLoadBatch_EntryLevelUnknownKeys(t *testing.T) {
	got, err := LoadBatch(writeFile(t, "b.yaml", `
- story: {title: a, description: b}
  colour: red
- story: {title: c, description: d}
  1: numeric key
- story: {title: e, description: f}
`))
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.ErrorContains(t, got[0].Err, "unknown field")
	assert.Equal(t, "a", got[0].Story.Title)
	assert.ErrorContains(t, got[1].Err, "unknown field")
	assert.NoError(t, got[2].Err)
}

func TestLoadBatch_DocumentErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{"unknown top-level key", "b.json", `{"stories": [], "extra": 1}`, "unknown field"},
		{"stories not a list", "b.yaml", "stories: nope\n", "cannot unmarshal"},
		{"json syntax", "b.json", `[{"story": `, "failed to decode batch file"},
		{"yaml syntax", "b.yaml", "stories: [\n", "failed to decode batch file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBatch(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadBatch_Empty(t *testing.T) {
	got, err := LoadBatch(writeFile(t, "b.yaml", "stories: []\n"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestLoadBatch_TooLarge(t *testing.T) {
	big := "[" + strings.Repeat(" ", maxFileSize) + "]"
	_, err := LoadBatch(writeFile(t, "big.json", big))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too large")
}

func TestDecode(t *testing.T) {
	var story domain.UserStory
	err := Decode(strings.NewReader("title: t\ndescription: d\n"), FormatYAML, &story)
	require.NoError(t, err)
	assert.Equal(t, "t", story.Title)

	err = Decode(strings.NewReader(`{"title": "t"}`), FormatJSON, &story)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "description", verr.Field)

	err = Decode(strings.NewReader("{}"), Format("xml"), &story)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestFormatOf(t *testing.T) {
	tests := map[string]Format{
		"a.json": FormatJSON,
		"a.JSON": FormatJSON,
		"a.yaml": FormatYAML,
		"a.yml":  FormatYAML,
		"a.toml": FormatTOML,
	}
	for path, want := range tests {
		got, err := FormatOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, want, got, path)
	}

	_, err := FormatOf("stories")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
