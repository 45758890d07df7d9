package analyzer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mrodas/legalexam/internal/model"
)

const defaultTimeout = 30 * time.Second

// Client is an Analyzer backed by an OpenAI-compatible chat endpoint.
// A Client with no API key is valid: every Analyze call then fails with
// KindUnavailable and the caller degrades to its local heuristic.
type Client struct {
	api     *openai.Client
	model   string
	timeout time.Duration
}

// New creates a client. baseURL may point at any OpenAI-compatible server;
// an empty apiKey produces a client that never attempts calls.
func New(baseURL, apiKey, modelName string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{model: modelName, timeout: timeout}
	if apiKey == "" {
		return c
	}
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c.api = openai.NewClientWithConfig(config)
	return c
}

// Available reports whether the client holds credentials.
func (c *Client) Available() bool {
	return c.api != nil
}

// rubricPayload is the wire shape of a successful rubric response. The nine
// criteria are embedded alongside the service's own average and feedback.
type rubricPayload struct {
	ConceptualGrasp    int     `json:"comprension_nft"`
	NormativeGrounding int     `json:"aplicacion_normativa"`
	MediumWorkSplit    int     `json:"distincion_soporte"`
	SmartContracts     int     `json:"smart_contracts"`
	EconomicMoralSplit int     `json:"derechos_patrimoniales"`
	Constitutional     int     `json:"marco_constitucional"`
	Coherence          int     `json:"coherencia"`
	Doctrine           int     `json:"jurisprudencia"`
	PracticalUse       int     `json:"aplicacion_practica"`
	Score              float64 `json:"score"`
	Feedback           string  `json:"feedback"`
}

func (p rubricPayload) scores() model.RubricScores {
	return model.RubricScores{
		ConceptualGrasp:    p.ConceptualGrasp,
		NormativeGrounding: p.NormativeGrounding,
		MediumWorkSplit:    p.MediumWorkSplit,
		SmartContracts:     p.SmartContracts,
		EconomicMoralSplit: p.EconomicMoralSplit,
		Constitutional:     p.Constitutional,
		Coherence:          p.Coherence,
		Doctrine:           p.Doctrine,
		PracticalUse:       p.PracticalUse,
	}
}

// Analyze grades one justification against the nine-criterion rubric.
// The call is bounded by the client timeout on top of ctx.
func (c *Client) Analyze(ctx context.Context, req Request) (*RubricResult, error) {
	if c.api == nil {
		return nil, &Error{Kind: KindUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildRubricPrompt(req)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, &Error{Kind: KindRequest, Err: err}
	}
	if len(resp.Choices) == 0 {
		return nil, &Error{Kind: KindEmpty}
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("analyzer response", "raw", raw)

	var payload rubricPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, &Error{Kind: KindMalformed, Err: fmt.Errorf("parse rubric: %w (raw: %s)", err, raw)}
	}

	result := &RubricResult{
		Scores:   payload.scores(),
		Feedback: payload.Feedback,
	}
	if err := validateScores(result.Scores); err != nil {
		return nil, &Error{Kind: KindOutOfRange, Err: err}
	}
	// The derived average is authoritative; the service's own score field
	// is only logged when they disagree.
	result.Average = result.Scores.Average()
	if payload.Score != 0 && !closeEnough(payload.Score, result.Average) {
		slog.Warn("analyzer score differs from criterion average",
			"reported", payload.Score, "derived", result.Average)
	}

	return result, nil
}

// Paraphrase rewrites a displayed question without changing its meaning.
// Returns an empty string when the result fails sanity bounds, so callers
// can fall back to static variations.
func (c *Client) Paraphrase(ctx context.Context, text string) (string, error) {
	if c.api == nil {
		return "", &Error{Kind: KindUnavailable}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildParaphrasePrompt(text)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", &Error{Kind: KindRequest, Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &Error{Kind: KindEmpty}
	}

	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if !paraphraseLooksSane(text, out) {
		return "", nil
	}
	return out, nil
}

// paraphraseLooksSane rejects rewrites that are empty, trivially short, or
// wildly longer than the source.
func paraphraseLooksSane(original, out string) bool {
	return out != "" && len(out) > 50 && len(out) < len(original)*2
}

func closeEnough(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 0.25
}
