package completion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/casegen/internal/config"
	"github.com/fyrsmithlabs/casegen/internal/domain"
)

// chatServer fakes an OpenAI-compatible chat completions endpoint.
func chatServer(t *testing.T, reply string, check func(r *http.Request, body map[string]any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if check != nil {
			check(r, body)
		}

		content, _ := json.Marshal(reply)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ` + string(content) + `}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 10, "total_tokens": 20}
		}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNewModel_OpenAI(t *testing.T) {
	var gotAuth string
	var gotRoles []any
	srv := chatServer(t, "["+validCase+"]", func(r *http.Request, body map[string]any) {
		gotAuth = r.Header.Get("Authorization")
		if msgs, ok := body["messages"].([]any); ok {
			for _, m := range msgs {
				if msg, ok := m.(map[string]any); ok {
					gotRoles = append(gotRoles, msg["role"])
				}
			}
		}
	})

	cfg := config.CompletionConfig{
		Provider: config.CompletionOpenAI,
		Endpoint: srv.URL + "/v1",
		APIKey:   config.Secret("sk-test"),
		Model:    "gpt-4",
	}
	model, err := NewModel(context.Background(), cfg, srv.Client())
	require.NoError(t, err)

	cases, err := NewClient(model).GenerateTestCases(context.Background(), loginStory())
	require.NoError(t, err)
	assert.Len(t, cases, 1)
	assert.Equal(t, "Bearer sk-test", gotAuth)
	assert.Equal(t, []any{"system", "user"}, gotRoles, "system and human messages map to chat roles")
}

func TestNewModel_Azure(t *testing.T) {
	var gotKey, gotVersion, gotPath string
	srv := chatServer(t, `{"is_valid": true, "quality_score": 7}`, func(r *http.Request, _ map[string]any) {
		gotKey = r.Header.Get("api-key")
		gotVersion = r.URL.Query().Get("api-version")
		gotPath = r.URL.Path
	})

	cfg := config.CompletionConfig{
		Provider: config.CompletionAzure,
		Endpoint: srv.URL + "/",
		APIKey:   config.Secret("azure-key"),
		Model:    "gpt-4",
	}
	model, err := NewModel(context.Background(), cfg, srv.Client())
	require.NoError(t, err)

	a, err := NewClient(model).ReviewTestCase(context.Background(), loginCase())
	require.NoError(t, err)
	assert.Equal(t, 7.0, a.QualityScore)
	assert.Equal(t, "azure-key", gotKey)
	assert.Equal(t, defaultAzureAPIVersion, gotVersion)
	assert.Contains(t, gotPath, "/openai/deployments/gpt-4/")
}

func TestNewModel_ServerErrorIsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": {"message": "quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	model, err := NewModel(context.Background(), config.CompletionConfig{
		Provider: config.CompletionOpenAI,
		Endpoint: srv.URL,
		APIKey:   config.Secret("sk-test"),
		Model:    "gpt-4",
	}, srv.Client())
	require.NoError(t, err)

	_, err = NewClient(model).GenerateTestCases(context.Background(), loginStory())
	var se *ServiceError
	assert.ErrorAs(t, err, &se)
}

func TestNewModel_ConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.CompletionConfig
		want string
	}{
		{"missing key", config.CompletionConfig{Provider: config.CompletionOpenAI}, "api_key is required"},
		{"azure without endpoint", config.CompletionConfig{Provider: config.CompletionAzure, APIKey: "k"}, "endpoint is required"},
		{"unknown provider", config.CompletionConfig{Provider: "bedrock", APIKey: "k"}, "unsupported completion provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(context.Background(), tt.cfg, nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewModel_Gemini(t *testing.T) {
	model, err := NewModel(context.Background(), config.CompletionConfig{
		Provider: config.CompletionGemini,
		APIKey:   config.Secret("gemini-key"),
		Model:    "gemini-2.0-flash",
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &geminiModel{}, model)
}

func loginCase() (tc domain.TestCase) {
	tc.Title = "Login"
	tc.Description = "Sign in"
	tc.ExpectedOutcome = "Signed in"
	tc.ApplyDefaults()
	return tc
}
