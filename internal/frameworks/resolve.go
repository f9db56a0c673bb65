package frameworks

import (
	"path"
	"sort"
	"strings"

	"portfolio-mapper-backend/internal/shared/telemetry"
)

// ResolveAllowed expands a role's allowed-framework patterns against the
// library. Patterns containing wildcard characters match any loaded code;
// literal patterns must match exactly, and a miss logs a warning rather
// than failing. The result is keyed by code; use SortedCodes for a
// deterministic ordering.
func ResolveAllowed(roleName string, patterns []string, lib Library) map[string]*FrameworkFile {
	allowed := make(map[string]*FrameworkFile)
	for _, pattern := range patterns {
		if strings.ContainsAny(pattern, "*?[") {
			for code, fw := range lib {
				if ok, err := path.Match(pattern, code); err == nil && ok {
					allowed[code] = fw
				}
			}
			continue
		}
		fw, ok := lib[pattern]
		if !ok {
			telemetry.Warn("framework.unknown", map[string]any{
				"role":           roleName,
				"framework_code": pattern,
			})
			continue
		}
		allowed[pattern] = fw
	}
	return allowed
}

// ResolveRequired expands a selected code set with every framework it
// transitively depends on, breadth-first. The result is always a superset
// of the selection, sorted for determinism, and re-resolving it is a
// no-op. A visited set makes cyclic dependency declarations terminate.
func ResolveRequired(selected []string, lib Library) []string {
	visited := make(map[string]bool, len(selected))
	queue := make([]string, 0, len(selected))
	for _, code := range selected {
		if !visited[code] {
			visited[code] = true
			queue = append(queue, code)
		}
	}

	required := make([]string, 0, len(queue))
	for len(queue) > 0 {
		code := queue[0]
		queue = queue[1:]
		required = append(required, code)

		fw, ok := lib[code]
		if !ok {
			continue
		}
		for _, dep := range fw.Metadata.Dependencies {
			if !visited[dep] {
				visited[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	sort.Strings(required)
	return required
}

// SortedCodes returns the map's framework codes in ascending order.
func SortedCodes(frameworksByCode map[string]*FrameworkFile) []string {
	codes := make([]string, 0, len(frameworksByCode))
	for code := range frameworksByCode {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
