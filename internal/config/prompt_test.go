package config

import (
	"reflect"
	"strings"
	"testing"
)

func TestRenderSubstitutesAllPlaceholders(t *testing.T) {
	p := Prompt{Template: "Hello {name}, you are {role}."}
	out, err := p.Render(map[string]string{"name": "Sam", "role": "a pharmacist"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != "Hello Sam, you are a pharmacist." {
		t.Fatalf("out = %q", out)
	}
}

func TestRenderFailsOnUnsuppliedPlaceholder(t *testing.T) {
	p := Prompt{Template: "Hello {name}, you are {role}."}
	_, err := p.Render(map[string]string{"name": "Sam"})
	if err == nil {
		t.Fatalf("expected error for unsupplied placeholder")
	}
	if !strings.Contains(err.Error(), "role") {
		t.Errorf("error does not name the placeholder: %v", err)
	}
}

func TestRenderPassesLiteralBracesThrough(t *testing.T) {
	p := Prompt{Template: `Respond as {"key": "value"} with {schema}.`}
	out, err := p.Render(map[string]string{"schema": "S"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if out != `Respond as {"key": "value"} with S.` {
		t.Fatalf("out = %q", out)
	}
}

func TestPlaceholdersSortedAndDeduplicated(t *testing.T) {
	p := Prompt{Template: "{b} then {a} then {b} and { not one }"}
	got := p.Placeholders()
	want := []string{"a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("placeholders = %v, want %v", got, want)
	}
}

func TestNextLevelKeyOrdering(t *testing.T) {
	next, ok := NextLevelKey(LevelFoundational)
	if !ok || next != LevelDeveloping {
		t.Fatalf("next of foundational = (%q, %v)", next, ok)
	}
	if _, ok := NextLevelKey(LevelDoctoral); ok {
		t.Fatalf("doctoral should have no next level")
	}
	if ValidLevelKey("expert") {
		t.Fatalf("unknown level key accepted")
	}
}
