package frameworks

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"portfolio-mapper-backend/internal/shared/telemetry"
)

// LoadLibrary discovers every .yaml/.yml file under dir, validates it as a
// framework definition, derives its framework code from the relative path
// (separators become "-", extension dropped), qualifies node ids exactly
// once, and verifies declared dependencies. Any failure is fatal: a partly
// loaded library is never returned.
func LoadLibrary(dir string) (Library, error) {
	lib := Library{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(p))
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		code := codeFromPath(dir, p)
		data, err := os.ReadFile(p)
		if err != nil {
			return fmt.Errorf("read framework %s: %w", p, err)
		}
		var fw FrameworkFile
		if err := yaml.Unmarshal(data, &fw); err != nil {
			return fmt.Errorf("parse framework %s: %w", p, err)
		}
		fw.Metadata.FrameworkCode = code
		if err := validateFramework(&fw); err != nil {
			return fmt.Errorf("framework %s: %w", code, err)
		}
		QualifyIDs(fw.Structure)
		lib[code] = &fw
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(lib) == 0 {
		return nil, fmt.Errorf("no framework files found under %s", dir)
	}
	if err := checkDependencies(lib); err != nil {
		return nil, err
	}

	telemetry.Info("frameworks.loaded", map[string]any{
		"dir":   dir,
		"count": len(lib),
	})
	return lib, nil
}

func codeFromPath(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		rel = filepath.Base(p)
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return strings.ReplaceAll(rel, string(filepath.Separator), "-")
}

func validateFramework(fw *FrameworkFile) error {
	if fw.Metadata.Title == "" {
		return fmt.Errorf("metadata.title is required")
	}
	if fw.Metadata.Abbreviation == "" {
		return fmt.Errorf("metadata.abbreviation is required")
	}
	if len(fw.Structure) == 0 {
		return fmt.Errorf("structure is empty")
	}
	return validateNodes(fw.Structure, "structure")
}

func validateNodes(nodes []*FrameworkNode, path string) error {
	for i, node := range nodes {
		where := fmt.Sprintf("%s[%d]", path, i)
		if node == nil {
			return fmt.Errorf("%s: node is null", where)
		}
		if node.ID == "" {
			return fmt.Errorf("%s: id is required", where)
		}
		if node.Text == "" {
			return fmt.Errorf("%s (id %q): text is required", where, node.ID)
		}
		if len(node.Children) > 0 {
			if err := validateNodes(node.Children, where+".children"); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkDependencies(lib Library) error {
	for code, fw := range lib {
		for _, dep := range fw.Metadata.Dependencies {
			if _, ok := lib[dep]; !ok {
				return fmt.Errorf("framework %q depends on %q, which is not loaded", code, dep)
			}
		}
	}
	return nil
}
