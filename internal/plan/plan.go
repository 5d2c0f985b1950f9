// Package plan is the single source of truth for subscription plan to model
// routing. GO maps to gemini, PRO to grok, ULTRA to mixed. No fallback, no
// partial access: enforcement happens here, never in the frontend.
package plan

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ModelGemini = "gemini"
	ModelGrok   = "grok"
	ModelMixed  = "mixed"
)

var ErrUnknownPlan = errors.New("unknown plan")

var planToModel = map[string]string{
	"GO":    ModelGemini,
	"PRO":   ModelGrok,
	"ULTRA": ModelMixed,
}

// Client model aliases. The backend remains authoritative: an alias only
// selects among the known models, it never widens access.
var modelAliases = map[string]string{
	"gemini":    ModelGemini,
	"grok":      ModelGrok,
	"mixed":     ModelMixed,
	"ai_type_1": ModelGemini,
	"ai_type_2": ModelGrok,
	"ai_type_3": ModelMixed,
}

// Normalize uppercases and trims a plan name, returning ErrUnknownPlan for
// anything outside the table.
func Normalize(raw string) (string, error) {
	p := strings.ToUpper(strings.TrimSpace(raw))
	if _, ok := planToModel[p]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownPlan, raw)
	}
	return p, nil
}

// ModelFor returns the model a plan is allowed to invoke.
func ModelFor(planName string) (string, error) {
	normalized, err := Normalize(planName)
	if err != nil {
		return "", err
	}
	return planToModel[normalized], nil
}

// NormalizeRequestedModel maps a client-supplied model value to a canonical
// model name. Unknown values pass through lowercased so the caller can reject
// them against the known set.
func NormalizeRequestedModel(value string) string {
	v := strings.ToLower(strings.TrimSpace(value))
	if canonical, ok := modelAliases[v]; ok {
		return canonical
	}
	return v
}

// KnownModel reports whether the value names one of the routed models.
func KnownModel(value string) bool {
	switch value {
	case ModelGemini, ModelGrok, ModelMixed:
		return true
	}
	return false
}

// FromEmail derives an initial plan from an email address the way signup
// would: "ultra" anywhere in the address wins over "pro", everything else
// gets the provided default.
func FromEmail(email, defaultPlan string) string {
	e := strings.ToLower(email)
	switch {
	case strings.Contains(e, "ultra"):
		return "ULTRA"
	case strings.Contains(e, "pro"):
		return "PRO"
	}
	if normalized, err := Normalize(defaultPlan); err == nil {
		return normalized
	}
	return "GO"
}
