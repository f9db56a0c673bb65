package config

import (
	"fmt"
	"sort"
	"strings"
)

// Prompt template keys the application requires at startup.
const (
	PromptSafetyCheck       = "safety_check_v1"
	PromptPortfolioAnalysis = "portfolio_analysis_v1"
)

// Prompt is one loaded prompt template plus its persona/tone framing.
type Prompt struct {
	Template string `yaml:"template"`
	Persona  string `yaml:"persona"`
	Tone     string `yaml:"tone"`
}

// recognizedPlaceholders enumerates every placeholder each template may
// reference. A template using anything outside its set fails at load time,
// so a typo in prompts.yaml can never surface as a render-time blank.
var recognizedPlaceholders = map[string][]string{
	PromptSafetyCheck: {
		"user_reflection_text",
		"output_schema",
	},
	PromptPortfolioAnalysis: {
		"tone",
		"persona",
		"role_display_name",
		"academic_level_name",
		"academic_level_description",
		"user_reflection_text",
		"frameworks_json_string",
		"output_schema",
		"next_level_name",
		"next_level_description",
		"academic_levels_json",
	},
}

// Render substitutes {placeholder} tokens with vars. Substitution is strict:
// a placeholder with no supplied value is an error, never a silent blank.
func (p Prompt) Render(vars map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(p.Template))

	tmpl := p.Template
	for {
		start, name, rest, found := nextPlaceholder(tmpl)
		if !found {
			b.WriteString(tmpl)
			return b.String(), nil
		}
		b.WriteString(tmpl[:start])
		val, ok := vars[name]
		if !ok {
			return "", fmt.Errorf("template references unsupplied placeholder %q", name)
		}
		b.WriteString(val)
		tmpl = rest
	}
}

// Placeholders returns the sorted set of placeholder names the template uses.
func (p Prompt) Placeholders() []string {
	seen := make(map[string]struct{})
	tmpl := p.Template
	for {
		_, name, rest, found := nextPlaceholder(tmpl)
		if !found {
			break
		}
		seen[name] = struct{}{}
		tmpl = rest
	}
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// nextPlaceholder finds the next {identifier} token. Only tokens whose body
// is a plain identifier count; literal braces around other content (e.g.
// JSON examples inside a template) are passed through untouched.
func nextPlaceholder(s string) (start int, name, rest string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' {
			continue
		}
		end := strings.IndexByte(s[i:], '}')
		if end < 0 {
			return 0, "", "", false
		}
		body := s[i+1 : i+end]
		if isIdentifier(body) {
			return i, body, s[i+end+1:], true
		}
	}
	return 0, "", "", false
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c == '_':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// validatePlaceholders checks a template's used placeholders against the
// recognized set for its key.
func validatePlaceholders(key string, p Prompt) error {
	recognized, ok := recognizedPlaceholders[key]
	if !ok {
		// Unknown prompt keys carry no placeholder contract.
		return nil
	}
	allowed := make(map[string]struct{}, len(recognized))
	for _, name := range recognized {
		allowed[name] = struct{}{}
	}
	for _, name := range p.Placeholders() {
		if _, ok := allowed[name]; !ok {
			return fmt.Errorf("prompt %q references unrecognized placeholder %q", key, name)
		}
	}
	return nil
}
