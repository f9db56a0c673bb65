package mappings

import (
	"encoding/json"
	"fmt"

	"portfolio-mapper-backend/internal/config"
	"portfolio-mapper-backend/internal/frameworks"
	"portfolio-mapper-backend/internal/shared/telemetry"
)

// AssembleSafetyPrompt renders the screening prompt for a reflection.
func AssembleSafetyPrompt(reflection string, prompt config.Prompt) (string, error) {
	return prompt.Render(map[string]string{
		"user_reflection_text": reflection,
		"output_schema":        SafetySchemaJSON,
	})
}

// AnalysisPromptInput carries everything the mapping prompt needs.
type AnalysisPromptInput struct {
	Role       config.Role
	Level      config.AcademicLevel
	LevelKey   config.LevelKey
	Reflection string
	Frameworks map[string]*frameworks.FrameworkFile
	Prompt     config.Prompt
	Catalog    *config.Catalog
	DebugMode  bool
}

// AssembleAnalysisPrompt prunes the selected frameworks for the target
// level, serializes them alongside the academic level ladder, and
// renders the mapping prompt.
func AssembleAnalysisPrompt(in AnalysisPromptInput) (string, error) {
	pruned := make(map[string]any, len(in.Frameworks))
	for _, code := range frameworks.SortedCodes(in.Frameworks) {
		p, err := frameworks.PruneForLLM(in.Frameworks[code], string(in.LevelKey))
		if err != nil {
			return "", fmt.Errorf("prune framework %s: %w", code, err)
		}
		pruned[code] = p
	}
	frameworksJSON, err := json.MarshalIndent(pruned, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize frameworks: %w", err)
	}

	ladderJSON, err := json.MarshalIndent(levelLadder(in.Catalog), "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize academic levels: %w", err)
	}

	nextName, nextDescription := in.Catalog.NextLevelInfo(in.LevelKey)

	if in.DebugMode {
		telemetry.Info("prompt.assembled", map[string]any{
			"role":            in.Role.DisplayName,
			"level":           in.LevelKey,
			"frameworks":      frameworks.SortedCodes(in.Frameworks),
			"frameworksBytes": len(frameworksJSON),
		})
	}

	return in.Prompt.Render(map[string]string{
		"tone":                       in.Prompt.Tone,
		"persona":                    in.Prompt.Persona,
		"role_display_name":          in.Role.DisplayName,
		"academic_level_name":        in.Level.Name,
		"academic_level_description": in.Level.Description,
		"user_reflection_text":       in.Reflection,
		"frameworks_json_string":     string(frameworksJSON),
		"output_schema":              AnalysisSchemaJSON,
		"next_level_name":            nextName,
		"next_level_description":     nextDescription,
		"academic_levels_json":       string(ladderJSON),
	})
}

type ladderEntry struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// levelLadder lists every academic level in ascending order so the model
// sees the full progression, not just the target level.
func levelLadder(catalog *config.Catalog) []ladderEntry {
	keys := config.LevelKeys()
	ladder := make([]ladderEntry, 0, len(keys))
	for _, key := range keys {
		level := catalog.Levels[key]
		ladder = append(ladder, ladderEntry{
			Key:         string(key),
			Name:        level.Name,
			Description: level.Description,
		})
	}
	return ladder
}
