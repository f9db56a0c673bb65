package config

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadCatalogValid(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join("testdata", "valid"))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	role, ok := cat.Roles["physician_associate"]
	if !ok {
		t.Fatalf("role physician_associate missing")
	}
	if role.DefaultAcademicLevel != LevelGraduate {
		t.Errorf("default level = %q", role.DefaultAcademicLevel)
	}
	if len(cat.Levels) != 6 {
		t.Errorf("levels = %d, want 6", len(cat.Levels))
	}
	if cat.App.MinReflectionLength != 25 {
		t.Errorf("min reflection length = %d", cat.App.MinReflectionLength)
	}
	if cat.Gemini.ModelName != "gemini-1.5-pro" {
		t.Errorf("model = %q", cat.Gemini.ModelName)
	}
	if cat.Gemini.Generation.Temperature == nil || *cat.Gemini.Generation.Temperature != 0.2 {
		t.Errorf("temperature = %v", cat.Gemini.Generation.Temperature)
	}
	if cat.Gemini.Generation.TopK != nil {
		t.Errorf("top_k should stay unset, got %v", *cat.Gemini.Generation.TopK)
	}
}

func TestLoadCatalogBadLevelReference(t *testing.T) {
	_, err := LoadCatalog(filepath.Join("testdata", "badlevelref"))
	if err == nil {
		t.Fatalf("expected error for role referencing unknown level")
	}
	if !strings.Contains(err.Error(), "postdoctoral") {
		t.Errorf("error does not name the bad level: %v", err)
	}
}

func TestLoadCatalogBadPlaceholder(t *testing.T) {
	_, err := LoadCatalog(filepath.Join("testdata", "badplaceholder"))
	if err == nil {
		t.Fatalf("expected error for unrecognized placeholder")
	}
	if !strings.Contains(err.Error(), "academic_levels_jsn") {
		t.Errorf("error does not name the placeholder: %v", err)
	}
}

func TestLoadCatalogMissingPrompt(t *testing.T) {
	_, err := LoadCatalog(filepath.Join("testdata", "missingprompt"))
	if err == nil {
		t.Fatalf("expected error for missing analysis prompt")
	}
	if !strings.Contains(err.Error(), PromptPortfolioAnalysis) {
		t.Errorf("error does not name the prompt: %v", err)
	}
}

func TestNextLevelInfo(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join("testdata", "valid"))
	if err != nil {
		t.Fatalf("LoadCatalog: %v", err)
	}

	name, _ := cat.NextLevelInfo(LevelGraduate)
	if name != "Advanced" {
		t.Errorf("next of graduate = %q, want Advanced", name)
	}

	name, desc := cat.NextLevelInfo(LevelDoctoral)
	if name != "N/A" {
		t.Errorf("next of doctoral = %q, want N/A", name)
	}
	if desc != "This is the highest academic level defined." {
		t.Errorf("top-of-ladder description = %q", desc)
	}
}
