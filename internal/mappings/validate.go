package mappings

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseError means the raw model output could not be turned into the
// expected JSON object at all. Raw carries the offending output for
// diagnostics.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means the output was valid JSON but violated the response
// contract. Parsed carries the decoded object for diagnostics.
type SchemaError struct {
	Parsed     map[string]any
	Violations []Violation
}

func (e *SchemaError) Error() string {
	if len(e.Violations) == 0 {
		return "model response failed schema validation"
	}
	parts := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		parts = append(parts, fmt.Sprintf("%s: %s", v.Field, v.Message))
	}
	return "model response failed schema validation: " + strings.Join(parts, "; ")
}

// Validator turns raw model output into validated response structs.
//
// AllowLegacyWrapper accepts responses that wrap the analysis result in
// a single top-level "mapping" key, a shape some older model versions
// produced. It is off by default.
type Validator struct {
	AllowLegacyWrapper bool
}

// Safety validates raw output against the screening response contract.
func (v *Validator) Safety(raw string) (*SafetyAnalysis, error) {
	var out SafetyAnalysis
	if err := v.validate(raw, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Analysis validates raw output against the mapping response contract.
func (v *Validator) Analysis(raw string) (*AnalysisResult, error) {
	var out AnalysisResult
	if err := v.validate(raw, &out, v.AllowLegacyWrapper); err != nil {
		return nil, err
	}
	return &out, nil
}

type validatable interface {
	Validate() []Violation
}

func (v *Validator) validate(raw string, target validatable, unwrap bool) error {
	extracted, err := extractJSONObject(raw)
	if err != nil {
		return &ParseError{Raw: raw, Err: err}
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(extracted), &parsed); err != nil {
		return &ParseError{Raw: raw, Err: err}
	}

	if unwrap {
		if inner, ok := parsed["mapping"].(map[string]any); ok && len(parsed) == 1 {
			parsed = inner
		}
	}

	normalized, err := json.Marshal(parsed)
	if err != nil {
		return &ParseError{Raw: raw, Err: err}
	}
	if err := json.Unmarshal(normalized, target); err != nil {
		return &SchemaError{Parsed: parsed, Violations: violationsFromUnmarshal(err)}
	}
	if violations := target.Validate(); len(violations) > 0 {
		return &SchemaError{Parsed: parsed, Violations: violations}
	}
	return nil
}

// extractJSONObject trims surrounding noise such as markdown fences by
// slicing from the first '{' to the last '}'.
func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON object found in response")
	}
	return raw[start : end+1], nil
}

func violationsFromUnmarshal(err error) []Violation {
	if typeErr, ok := err.(*json.UnmarshalTypeError); ok {
		return []Violation{{
			Field:   typeErr.Field,
			Message: fmt.Sprintf("expected %s, got %s", typeErr.Type, typeErr.Value),
		}}
	}
	return []Violation{{Field: "", Message: err.Error()}}
}
