// Package provider dispatches prompts to the configured model backends and
// normalizes their responses into a single result shape.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"lazycook/backend/internal/config"
	"lazycook/backend/internal/plan"
)

var (
	ErrMissingGeminiKey = errors.New("gemini api key is not configured")
	ErrMissingGrokKey   = errors.New("grok api key is not configured")
)

// Request is a single prompt dispatch. Context, when present, is prepended
// to the prompt as assembled conversation history.
type Request struct {
	Prompt  string
	Context string
}

// Result is the normalized backend answer.
type Result struct {
	Model        string      `json:"model"`
	Response     string      `json:"response"`
	QualityScore float64     `json:"qualityScore"`
	Iterations   int         `json:"iterations"`
	Comparison   *Comparison `json:"comparison,omitempty"`
}

// Comparison reports how the backends fared against each other on a mixed
// run.
type Comparison struct {
	BothSuccessful  bool               `json:"bothSuccessful"`
	QualityScores   map[string]float64 `json:"qualityScores"`
	ResponseLengths map[string]int     `json:"responseLengths"`
	BetterQuality   string             `json:"betterQuality"`
}

// Runner owns one client per backend and routes by resolved model name.
type Runner struct {
	gemini *GeminiClient
	grok   *GrokClient
}

func NewRunner(cfg config.Config, httpClient *http.Client) *Runner {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Runner{
		gemini: NewGeminiClient(cfg, httpClient),
		grok:   NewGrokClient(cfg, httpClient),
	}
}

// Run dispatches to the backend the model name selects. The model must
// already be plan-checked and normalized by the caller.
func (r *Runner) Run(ctx context.Context, model string, req Request) (Result, error) {
	switch model {
	case plan.ModelGemini:
		return r.runGemini(ctx, req)
	case plan.ModelGrok:
		return r.runGrok(ctx, req)
	case plan.ModelMixed:
		return r.runMixed(ctx, req)
	default:
		return Result{}, fmt.Errorf("unknown model %q", model)
	}
}

func (r *Runner) runGemini(ctx context.Context, req Request) (Result, error) {
	response, err := r.gemini.Generate(ctx, composePrompt(req))
	if err != nil {
		return Result{}, err
	}
	return Result{
		Model:        plan.ModelGemini,
		Response:     response,
		QualityScore: scoreResponse(response),
		Iterations:   1,
	}, nil
}

func (r *Runner) runGrok(ctx context.Context, req Request) (Result, error) {
	response, err := r.grok.Complete(ctx, req.Context, req.Prompt)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Model:        plan.ModelGrok,
		Response:     response,
		QualityScore: scoreResponse(response),
		Iterations:   1,
	}, nil
}

// composePrompt prepends the assembled context so single-message backends
// see the same history a system message would carry.
func composePrompt(req Request) string {
	if strings.TrimSpace(req.Context) == "" {
		return req.Prompt
	}
	return req.Context + "\n\n" + req.Prompt
}
