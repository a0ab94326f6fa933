package completion

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/casegen/internal/domain"
	"github.com/fyrsmithlabs/casegen/internal/logging"
	"github.com/fyrsmithlabs/casegen/internal/secrets"
)

// Client turns user stories into test cases and reviews test cases through
// a chat-completion Model. Calls are never retried.
type Client struct {
	model    Model
	limiter  *rate.Limiter
	scrubber secrets.Scrubber
	logger   *logging.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithRequestsPerMinute paces outbound calls. Zero or negative disables
// pacing.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *Client) {
		if rpm <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
	}
}

// WithScrubber redacts story text before it is sent.
func WithScrubber(s secrets.Scrubber) Option {
	return func(c *Client) {
		if s != nil {
			c.scrubber = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client around model.
func NewClient(model Model, opts ...Option) *Client {
	c := &Client{
		model:    model,
		scrubber: secrets.NoopScrubber{},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GenerateTestCases asks the model for test cases covering story.
//
// A failed call yields a *ServiceError; a reply that is not a JSON array of
// valid test cases yields a *ParseError. Neither is retried.
func (c *Client) GenerateTestCases(ctx context.Context, story domain.UserStory) ([]domain.TestCase, error) {
	reply, err := c.complete(ctx, "generate", generationPrompt, c.scrubStory(ctx, story),
		llms.WithMaxTokens(generationMaxTokens),
		llms.WithTemperature(generationTemperature),
	)
	if err != nil {
		c.logger.Error(ctx, "error generating test cases", zap.Error(err))
		return nil, err
	}

	cases, err := DecodeTestCases(reply)
	if err != nil {
		c.logger.Error(ctx, "failed to parse completion reply as test cases", zap.Error(err))
		return nil, err
	}

	c.logger.Info(ctx, "generated test cases",
		zap.Int("count", len(cases)),
		zap.String("story", story.Title),
	)
	return cases, nil
}

// ReviewTestCase asks the model to grade tc. Errors are returned as-is;
// use ValidateTestCase for the soft-fail variant.
func (c *Client) ReviewTestCase(ctx context.Context, tc domain.TestCase) (Assessment, error) {
	body, err := json.MarshalIndent(tc, "", "  ")
	if err != nil {
		return Assessment{}, fmt.Errorf("encoding test case: %w", err)
	}

	reply, err := c.complete(ctx, "review", reviewPrompt, string(body),
		llms.WithMaxTokens(reviewMaxTokens),
		llms.WithTemperature(reviewTemperature),
	)
	if err != nil {
		return Assessment{}, err
	}
	return DecodeAssessment(reply)
}

// ValidateTestCase reviews tc and falls back to NeutralAssessment on any
// failure. It never returns an error.
func (c *Client) ValidateTestCase(ctx context.Context, tc domain.TestCase) Assessment {
	a, err := c.ReviewTestCase(ctx, tc)
	if err != nil {
		c.logger.Error(ctx, "error validating test case",
			zap.String("test_case", tc.Title),
			zap.Error(err),
		)
		return NeutralAssessment()
	}
	return a
}

func (c *Client) complete(ctx context.Context, op, system, user string, options ...llms.CallOption) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &ServiceError{Op: op, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, system),
		llms.TextParts(schema.ChatMessageTypeHuman, user),
	}

	c.logger.Trace(ctx, "completion request", zap.String("op", op), zap.String("prompt", user))
	resp, err := c.model.GenerateContent(ctx, messages, options...)
	if err != nil {
		return "", &ServiceError{Op: op, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 || resp.Choices[0] == nil {
		return "", &ServiceError{Op: op, Err: errors.New("empty response from model")}
	}
	reply := resp.Choices[0].Content
	c.logger.Trace(ctx, "completion reply", zap.String("op", op), zap.String("reply", reply))
	return reply, nil
}

func (c *Client) scrubStory(ctx context.Context, story domain.UserStory) string {
	res := c.scrubber.Scrub(storyPrompt(story))
	if res.HasFindings() {
		c.logger.Warn(ctx, "redacted secrets from story before generation",
			zap.Int("findings", len(res.Findings)),
			zap.Strings("rules", res.RuleIDs()),
		)
	}
	return res.Scrubbed
}
