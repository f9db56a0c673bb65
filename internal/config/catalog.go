package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"portfolio-mapper-backend/internal/shared/telemetry"
)

// Role describes a user role and the frameworks it is permitted to map against.
type Role struct {
	DisplayName           string   `yaml:"display_name" json:"display_name"`
	AllowedFrameworkCodes []string `yaml:"allowed_framework_codes" json:"allowed_framework_codes"`
	DefaultAcademicLevel  LevelKey `yaml:"default_academic_level" json:"default_academic_level"`
}

// SafetySetting is one provider harm-category threshold.
type SafetySetting struct {
	Category  string `yaml:"category"`
	Threshold string `yaml:"threshold"`
}

// GenerationSettings controls the model's output generation. Nil fields
// fall through to provider defaults.
type GenerationSettings struct {
	Temperature *float32 `yaml:"temperature"`
	TopP        *float32 `yaml:"top_p"`
	TopK        *int32   `yaml:"top_k"`
}

// GeminiSettings holds everything specific to the Gemini provider.
type GeminiSettings struct {
	ModelName      string             `yaml:"model_name"`
	SafetySettings []SafetySetting    `yaml:"safety_settings"`
	Generation     GenerationSettings `yaml:"generation_config"`
}

// AppSettings holds general application behavior knobs.
type AppSettings struct {
	DebugMode           bool `yaml:"debug_mode"`
	MinReflectionLength int  `yaml:"min_reflection_length"`
}

// Catalog is the validated set of YAML configuration loaded at startup.
// Read-only after Load; shared safely across concurrent sessions.
type Catalog struct {
	Roles   map[string]Role
	Levels  map[LevelKey]AcademicLevel
	Prompts map[string]Prompt
	Gemini  GeminiSettings
	App     AppSettings
}

type rolesFile struct {
	Roles map[string]Role `yaml:"roles"`
}

type levelsFile struct {
	AcademicLevels map[LevelKey]AcademicLevel `yaml:"academic_levels"`
}

type promptsFile struct {
	Prompts map[string]Prompt `yaml:"prompts"`
}

type llmFile struct {
	App    AppSettings    `yaml:"app"`
	Gemini GeminiSettings `yaml:"gemini"`
}

const defaultMinReflectionLength = 150

// LoadCatalog reads and validates roles.yaml, academic_levels.yaml,
// prompts.yaml and llm.yaml from dir. Any missing file, unparseable value
// or dangling cross-reference is fatal: the caller must halt startup.
func LoadCatalog(dir string) (*Catalog, error) {
	var roles rolesFile
	if err := readYAML(filepath.Join(dir, "roles.yaml"), &roles); err != nil {
		return nil, err
	}
	var levels levelsFile
	if err := readYAML(filepath.Join(dir, "academic_levels.yaml"), &levels); err != nil {
		return nil, err
	}
	var prompts promptsFile
	if err := readYAML(filepath.Join(dir, "prompts.yaml"), &prompts); err != nil {
		return nil, err
	}
	var llm llmFile
	if err := readYAML(filepath.Join(dir, "llm.yaml"), &llm); err != nil {
		return nil, err
	}
	if llm.App.MinReflectionLength <= 0 {
		llm.App.MinReflectionLength = defaultMinReflectionLength
	}

	cat := &Catalog{
		Roles:   roles.Roles,
		Levels:  levels.AcademicLevels,
		Prompts: prompts.Prompts,
		Gemini:  llm.Gemini,
		App:     llm.App,
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	telemetry.Info("config.loaded", map[string]any{
		"roles":   len(cat.Roles),
		"levels":  len(cat.Levels),
		"prompts": len(cat.Prompts),
	})
	return cat, nil
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Catalog) validate() error {
	if len(c.Roles) == 0 {
		return fmt.Errorf("roles.yaml defines no roles")
	}
	for key := range c.Levels {
		if !ValidLevelKey(key) {
			return fmt.Errorf("academic_levels.yaml defines unknown level key %q", key)
		}
	}
	for _, key := range LevelKeys() {
		if _, ok := c.Levels[key]; !ok {
			return fmt.Errorf("academic_levels.yaml is missing level %q", key)
		}
	}
	for id, role := range c.Roles {
		if _, ok := c.Levels[role.DefaultAcademicLevel]; !ok {
			return fmt.Errorf("role %q refers to non-existent academic level %q", id, role.DefaultAcademicLevel)
		}
		if len(role.AllowedFrameworkCodes) == 0 {
			return fmt.Errorf("role %q allows no frameworks", id)
		}
	}
	for _, key := range []string{PromptSafetyCheck, PromptPortfolioAnalysis} {
		prompt, ok := c.Prompts[key]
		if !ok {
			return fmt.Errorf("prompts.yaml is missing required prompt %q", key)
		}
		if prompt.Template == "" {
			return fmt.Errorf("prompt %q has an empty template", key)
		}
		if err := validatePlaceholders(key, prompt); err != nil {
			return err
		}
	}
	return nil
}

// NextLevelInfo returns the name and description of the level above key.
// At the top of the ladder it returns the fixed highest-level sentinel.
func (c *Catalog) NextLevelInfo(key LevelKey) (string, string) {
	next, ok := NextLevelKey(key)
	if !ok {
		return "N/A", "This is the highest academic level defined."
	}
	level := c.Levels[next]
	return level.Name, level.Description
}
