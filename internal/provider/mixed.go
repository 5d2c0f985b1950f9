package provider

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"lazycook/backend/internal/plan"
)

// runMixed fans the request out to both backends at once, scores both
// answers and returns the better one. One backend failing degrades to the
// other's answer; both failing is an error.
func (r *Runner) runMixed(ctx context.Context, req Request) (Result, error) {
	var geminiResult, grokResult Result
	var geminiErr, grokErr error

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		geminiResult, geminiErr = r.runGemini(groupCtx, req)
		return nil
	})
	group.Go(func() error {
		grokResult, grokErr = r.runGrok(groupCtx, req)
		return nil
	})
	// Goroutines record their own errors so one failure cannot cancel the
	// surviving backend.
	_ = group.Wait()

	switch {
	case geminiErr != nil && grokErr != nil:
		return Result{}, fmt.Errorf("all backends failed: gemini: %v; grok: %v", geminiErr, grokErr)
	case geminiErr != nil:
		grokResult.Model = plan.ModelMixed
		return grokResult, nil
	case grokErr != nil:
		geminiResult.Model = plan.ModelMixed
		return geminiResult, nil
	}

	comparison := &Comparison{
		BothSuccessful: true,
		QualityScores: map[string]float64{
			plan.ModelGemini: geminiResult.QualityScore,
			plan.ModelGrok:   grokResult.QualityScore,
		},
		ResponseLengths: map[string]int{
			plan.ModelGemini: len(geminiResult.Response),
			plan.ModelGrok:   len(grokResult.Response),
		},
	}

	winner := geminiResult
	switch {
	case geminiResult.QualityScore > grokResult.QualityScore:
		comparison.BetterQuality = plan.ModelGemini
	case grokResult.QualityScore > geminiResult.QualityScore:
		comparison.BetterQuality = plan.ModelGrok
		winner = grokResult
	default:
		comparison.BetterQuality = "equal"
	}

	winner.Model = plan.ModelMixed
	winner.Iterations = geminiResult.Iterations + grokResult.Iterations
	winner.Comparison = comparison
	return winner, nil
}
