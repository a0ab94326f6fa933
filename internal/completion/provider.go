package completion

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"google.golang.org/genai"

	"github.com/fyrsmithlabs/casegen/internal/config"
)

const defaultAzureAPIVersion = "2024-02-01"

// NewModel builds the Model selected by cfg.Provider. httpClient may be nil;
// when set it carries the pipeline timeout.
func NewModel(ctx context.Context, cfg config.CompletionConfig, httpClient *http.Client) (Model, error) {
	if !cfg.APIKey.IsSet() {
		return nil, fmt.Errorf("completion.api_key is required for provider %q", cfg.Provider)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	switch cfg.Provider {
	case config.CompletionAzure:
		if cfg.Endpoint == "" {
			return nil, errors.New("completion.endpoint is required for provider \"azure\"")
		}
		version := cfg.APIVersion
		if version == "" {
			version = defaultAzureAPIVersion
		}
		llm, err := openai.New(
			openai.WithAPIType(openai.APITypeAzure),
			openai.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")),
			openai.WithAPIVersion(version),
			openai.WithToken(cfg.APIKey.Value()),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, fmt.Errorf("creating azure client: %w", err)
		}
		return llm, nil

	case config.CompletionOpenAI:
		opts := []openai.Option{
			openai.WithToken(cfg.APIKey.Value()),
			openai.WithModel(cfg.Model),
			openai.WithHTTPClient(httpClient),
		}
		if cfg.Endpoint != "" {
			opts = append(opts, openai.WithBaseURL(strings.TrimRight(cfg.Endpoint, "/")))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("creating openai client: %w", err)
		}
		return llm, nil

	case config.CompletionGemini:
		g, err := newGeminiModel(ctx, cfg, httpClient)
		if err != nil {
			return nil, err
		}
		return g, nil
	}

	return nil, fmt.Errorf("unsupported completion provider %q", cfg.Provider)
}

// geminiModel adapts the genai client to Model.
type geminiModel struct {
	client *genai.Client
	model  string
}

func newGeminiModel(ctx context.Context, cfg config.CompletionConfig, httpClient *http.Client) (*geminiModel, error) {
	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey.Value(),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.Endpoint != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &geminiModel{client: client, model: cfg.Model}, nil
}

func (g *geminiModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, o := range options {
		o(&opts)
	}

	gc := &genai.GenerateContentConfig{}
	if opts.MaxTokens > 0 {
		gc.MaxOutputTokens = int32(opts.MaxTokens)
	}
	temp := float32(opts.Temperature)
	gc.Temperature = &temp

	var contents []*genai.Content
	for _, m := range messages {
		text := textOf(m)
		switch m.Role {
		case schema.ChatMessageTypeSystem:
			gc.SystemInstruction = genai.NewContentFromText(text, genai.RoleUser)
		case schema.ChatMessageTypeAI:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, gc)
	if err != nil {
		return nil, err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: resp.Text()}},
	}, nil
}
