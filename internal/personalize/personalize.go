// Package personalize filters and reweights raw extraction results against
// a user's declared field schema.
package personalize

import (
	"sort"

	"certidocs-backend/internal/engine"
	"certidocs-backend/internal/entity"
	"certidocs-backend/internal/schema"
)

// Suffix appended to the upstream engine name so downstream auditing can
// tell personalized results from raw ones.
const Suffix = "_personalized"

// Result is an engine result narrowed to the user's declared fields.
type Result struct {
	engine.Result
	UserFieldsMatched []string `json:"user_fields_matched"`
}

// Apply personalizes a raw extraction result. With nil preferences the
// result passes through untouched and every extracted key counts as
// matched. With preferences present, only fields whose key exactly matches
// a declared field name (case-sensitive) survive. Fields the user declared
// but extraction did not produce are omitted, not inserted as nulls.
func Apply(base engine.Result, prefs *entity.UserPreferences) Result {
	if prefs == nil {
		return Result{Result: base, UserFieldsMatched: allKeys(base.Fields)}
	}

	filtered := base.Fields
	var matched []string
	if len(prefs.CustomFields) > 0 {
		filtered = make(map[string]any, len(prefs.CustomFields))
		matched = make([]string, 0, len(prefs.CustomFields))
		for _, f := range prefs.CustomFields {
			if v, ok := base.Fields[f.Name]; ok {
				filtered[f.Name] = v
				matched = append(matched, f.Name)
			}
		}
	} else {
		matched = allKeys(base.Fields)
	}

	out := base
	out.Fields = filtered
	out.Confidence = base.Confidence * requiredMatchRatio(prefs, matched)
	out.EngineName = base.EngineName + Suffix
	return Result{Result: out, UserFieldsMatched: matched}
}

// requiredMatchRatio is matchedRequired / totalRequired over the user's
// required fields. Zero declared required fields means no penalty.
func requiredMatchRatio(prefs *entity.UserPreferences, matched []string) float64 {
	required := schema.RequiredFields(prefs.CustomFields)
	if len(required) == 0 {
		return 1
	}
	matchedRequired := 0
	for _, f := range required {
		for _, name := range matched {
			if name == f.Name {
				matchedRequired++
				break
			}
		}
	}
	return float64(matchedRequired) / float64(len(required))
}

func allKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
