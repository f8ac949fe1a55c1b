// Package llm implements the model-backed evaluator, guidance writer and
// summarizer on top of the OpenAI chat completion API. Every method returns an
// error rather than a degraded result; the conversation engine owns the
// deterministic fallbacks.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"anamneseai/internal/config"
	"anamneseai/internal/logger"
	"anamneseai/internal/model"
)

// ErrDisabled is returned by every call when no API key is configured.
var ErrDisabled = errors.New("model backend is not configured")

// Client talks to the OpenAI API. It satisfies the engine's AnswerEvaluator,
// GuidanceGenerator and SummaryGenerator interfaces.
type Client struct {
	api    *openai.Client
	config *config.AIConfig
}

// New builds a client from the given configuration. The client is always
// usable; when no API key is set, every call fails with ErrDisabled and the
// engine falls back to its heuristics.
func New(cfg *config.AIConfig) *Client {
	c := &Client{config: cfg}
	if !cfg.IsEnabled() {
		logger.L().Warn("OPENAI_API_KEY not set, answer evaluation runs in heuristic mode")
		return c
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	c.api = openai.NewClientWithConfig(clientCfg)
	return c
}

// evalVerdict is the JSON shape the evaluation prompt instructs the model to
// produce.
type evalVerdict struct {
	IsSufficient    bool     `json:"is_sufficient"`
	Score           float64  `json:"score"`
	Feedback        string   `json:"feedback"`
	MissingCriteria []string `json:"missing_criteria"`
	Reasoning       string   `json:"reasoning"`
}

// Evaluate judges one answer against the question's sufficiency criteria.
func (c *Client) Evaluate(ctx context.Context, q *model.Question, answer string, history []model.Exchange) (*model.AnswerEvaluation, error) {
	raw, err := c.complete(ctx, c.config.Models.Eval, evalSystemPrompt, buildEvalPrompt(q, answer, history), true)
	if err != nil {
		return nil, err
	}

	var verdict evalVerdict
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &verdict); err != nil {
		return nil, fmt.Errorf("decode evaluation verdict: %w", err)
	}

	return &model.AnswerEvaluation{
		IsSufficient:    verdict.IsSufficient,
		Score:           clampScore(verdict.Score),
		Feedback:        verdict.Feedback,
		MissingCriteria: verdict.MissingCriteria,
		Reasoning:       verdict.Reasoning,
	}, nil
}

// Guide writes a follow-up message steering the patient toward the criteria
// their answer did not cover.
func (c *Client) Guide(ctx context.Context, q *model.Question, missingCriteria []string, answer string, retriesRemaining int) (string, error) {
	raw, err := c.complete(ctx, c.config.Models.Guidance, guidanceSystemPrompt, buildGuidancePrompt(q, missingCriteria, answer, retriesRemaining), false)
	if err != nil {
		return "", err
	}

	guidance := strings.TrimSpace(raw)
	if guidance == "" {
		return "", errors.New("empty guidance response")
	}
	return guidance, nil
}

// summaryResult is the JSON shape the summarization prompt asks for.
type summaryResult struct {
	Narrative   string   `json:"narrative"`
	KeyFindings []string `json:"key_findings"`
	Questions   []struct {
		QuestionID string `json:"question_id"`
		Summary    string `json:"summary"`
	} `json:"questions"`
}

// Summarize synthesizes the final clinical summary from the completed
// interview. Per-question summaries coming back from the model are matched to
// the records by question id; records the model skipped keep their raw answer.
func (c *Client) Summarize(ctx context.Context, records []model.QuestionRecord, meta model.SessionMetadata) (*model.SessionSummary, error) {
	raw, err := c.complete(ctx, c.config.Models.Summary, summarySystemPrompt, buildSummaryPrompt(records, meta), true)
	if err != nil {
		return nil, err
	}

	var result summaryResult
	if err := json.Unmarshal([]byte(stripJSONFences(raw)), &result); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if strings.TrimSpace(result.Narrative) == "" {
		return nil, errors.New("summary has no narrative")
	}

	perQuestion := make(map[string]string, len(result.Questions))
	for _, q := range result.Questions {
		perQuestion[q.QuestionID] = q.Summary
	}

	summary := &model.SessionSummary{
		SessionID:   meta.SessionID,
		Narrative:   result.Narrative,
		KeyFindings: result.KeyFindings,
		GeneratedAt: time.Now(),
	}
	for _, rec := range records {
		qs := model.QuestionSummary{
			QuestionID:  rec.QuestionID,
			Prompt:      rec.Prompt,
			FinalAnswer: rec.FinalAnswer,
			Summary:     perQuestion[rec.QuestionID],
			Sufficient:  rec.Evaluation.IsSufficient,
			Score:       rec.Evaluation.Score,
			Attempts:    rec.Attempts,
			Abandoned:   rec.Abandoned,
		}
		if qs.Summary == "" {
			qs.Summary = rec.FinalAnswer
		}
		summary.Questions = append(summary.Questions, qs)
	}
	return summary, nil
}

// complete runs one chat completion and returns the assistant text.
func (c *Client) complete(ctx context.Context, modelName, system, prompt string, wantJSON bool) (string, error) {
	if c.api == nil {
		return "", ErrDisabled
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.TimeoutMS)*time.Millisecond)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: modelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.2,
	}
	if wantJSON {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: "json_object"}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		logger.L().Warnf("chat completion failed (model %s): %v", modelName, err)
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// stripJSONFences removes a markdown code fence around a JSON payload. Models
// occasionally wrap output in ```json ... ``` even when asked not to.
func stripJSONFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
