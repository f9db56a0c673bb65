package mappings

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/invopop/jsonschema"
)

// SafetyFlagSelfHarm is the only safety flag the screening stage may raise.
const SafetyFlagSelfHarm = "USER_DISTRESS_SELF_HARM"

// Recognized PII flag values. Anything the screening stage cannot name
// precisely falls back to PIIFlagOther.
const (
	PIIFlagSpecificDate     = "specific_date"
	PIIFlagFullNameOrTitle  = "full_name_or_title"
	PIIFlagNHSOrMRNNumber   = "nhs_or_mrn_number"
	PIIFlagPhoneNumber      = "phone_number"
	PIIFlagEmailAddress     = "email_address"
	PIIFlagSpecificLocation = "specific_location_or_ward"
	PIIFlagOther            = "other"
)

var validPIIFlags = map[string]bool{
	PIIFlagSpecificDate:     true,
	PIIFlagFullNameOrTitle:  true,
	PIIFlagNHSOrMRNNumber:   true,
	PIIFlagPhoneNumber:      true,
	PIIFlagEmailAddress:     true,
	PIIFlagSpecificLocation: true,
	PIIFlagOther:            true,
}

// Violation describes a single field-level problem in a model response.
type Violation struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// PIIDetection is one fragment of personally identifiable information
// found in the reflection text.
type PIIDetection struct {
	Flag        string `json:"flag" jsonschema:"required,description=Category of the detected information."`
	Text        string `json:"text" jsonschema:"required,description=The exact text fragment detected."`
	Explanation string `json:"explanation" jsonschema:"required,description=Why this fragment is identifying."`
}

// SafetyAnalysis is the structured verdict of the screening stage.
type SafetyAnalysis struct {
	IsSafeForProcessing bool           `json:"is_safe_for_processing" jsonschema:"required,description=False when the text indicates user distress or self-harm."`
	SafetyFlags         []string       `json:"safety_flags" jsonschema:"description=Safety concerns raised by the screen."`
	PIIDetections       []PIIDetection `json:"pii_detections" jsonschema:"description=Personally identifiable fragments found in the text."`
}

// Validate checks field-level constraints beyond JSON well-formedness.
func (s *SafetyAnalysis) Validate() []Violation {
	var violations []Violation
	for i, flag := range s.SafetyFlags {
		if flag != SafetyFlagSelfHarm {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("safety_flags[%d]", i),
				Message: fmt.Sprintf("unknown safety flag %q", flag),
			})
		}
	}
	for i, d := range s.PIIDetections {
		if !validPIIFlags[d.Flag] {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("pii_detections[%d].flag", i),
				Message: fmt.Sprintf("unknown pii flag %q", d.Flag),
			})
		}
		if d.Text == "" {
			violations = append(violations, Violation{
				Field:   fmt.Sprintf("pii_detections[%d].text", i),
				Message: "text must not be empty",
			})
		}
	}
	return violations
}

// AssessedCompetency is one matched competency in the analysis result.
type AssessedCompetency struct {
	FrameworkCode                string `json:"framework_code" jsonschema:"required,description=Code of the framework this competency belongs to."`
	CompetencyID                 string `json:"competency_id" jsonschema:"required,description=The display_id of the matched competency."`
	CompetencyText               string `json:"competency_text" jsonschema:"required,description=The text of the matched competency."`
	MatchStrength                int    `json:"match_strength" jsonschema:"required,minimum=1,maximum=5,description=Strength of the match from 1 (weak) to 5 (direct)."`
	AchievedLevel                string `json:"achieved_level" jsonschema:"required,description=The academic level key the evidence demonstrates."`
	JustificationForLevel        string `json:"justification_for_level" jsonschema:"required,description=Reasoning for the achieved level citing the reflection."`
	EmergingEvidenceForNextLevel string `json:"emerging_evidence_for_next_level,omitempty" jsonschema:"description=Evidence hinting at the next level when present."`
}

// AnalysisResult is the structured output of the competency-mapping stage.
type AnalysisResult struct {
	OverallSummary       string               `json:"overall_summary" jsonschema:"required,description=A short narrative summary of the mapping."`
	AssessedCompetencies []AssessedCompetency `json:"assessed_competencies" jsonschema:"required,description=All competencies evidenced by the reflection."`
}

// Validate checks field-level constraints beyond JSON well-formedness.
func (r *AnalysisResult) Validate() []Violation {
	var violations []Violation
	if r.OverallSummary == "" {
		violations = append(violations, Violation{
			Field:   "overall_summary",
			Message: "must not be empty",
		})
	}
	for i, c := range r.AssessedCompetencies {
		prefix := fmt.Sprintf("assessed_competencies[%d]", i)
		if c.FrameworkCode == "" {
			violations = append(violations, Violation{Field: prefix + ".framework_code", Message: "must not be empty"})
		}
		if c.CompetencyID == "" {
			violations = append(violations, Violation{Field: prefix + ".competency_id", Message: "must not be empty"})
		}
		if c.MatchStrength < 1 || c.MatchStrength > 5 {
			violations = append(violations, Violation{
				Field:   prefix + ".match_strength",
				Message: fmt.Sprintf("must be between 1 and 5, got %d", c.MatchStrength),
			})
		}
		if c.AchievedLevel == "" {
			violations = append(violations, Violation{Field: prefix + ".achieved_level", Message: "must not be empty"})
		}
		if c.JustificationForLevel == "" {
			violations = append(violations, Violation{Field: prefix + ".justification_for_level", Message: "must not be empty"})
		}
	}
	return violations
}

// SafetySchemaJSON and AnalysisSchemaJSON are the schema strings injected
// into prompts so the model knows the exact shape to produce.
var (
	SafetySchemaJSON   = mustSchemaJSON(&SafetyAnalysis{})
	AnalysisSchemaJSON = mustSchemaJSON(&AnalysisResult{})
)

func mustSchemaJSON(v any) string {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		DoNotReference:             true,
	}
	schema := reflector.Reflect(v)
	b, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		log.Fatalf("reflect response schema: %v", err)
	}
	return string(b)
}
