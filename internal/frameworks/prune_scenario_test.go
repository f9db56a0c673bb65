package frameworks

import (
	"encoding/json"
	"strings"
	"testing"
)

// Mirrors the smallest realistic use: one collapsed root with a single
// leaf, pruned and serialized the way the prompt assembly consumes it.
func TestPruneCollapsedRootEndToEnd(t *testing.T) {
	fw := &FrameworkFile{
		Metadata: FrameworkMetadata{
			FrameworkCode: "demo",
			Title:         "Demo",
			Abbreviation:  "Demo",
		},
		Structure: []*FrameworkNode{
			{
				ID: "1", NodeType: "principle", Text: "Professional practice",
				CollapseChildren: true,
				Children: []*FrameworkNode{
					{ID: "1.1", NodeType: "competency", Text: "Works within scope"},
				},
			},
		},
	}
	QualifyIDs(fw.Structure)

	out, err := PruneForLLM(fw, "graduate")
	if err != nil {
		t.Fatalf("PruneForLLM: %v", err)
	}
	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal pruned: %v", err)
	}
	body := string(data)

	if !strings.Contains(body, "- Works within scope (ID: 1.1)") {
		t.Errorf("leaf bullet missing from source notes: %s", body)
	}
	if strings.Contains(body, `"children"`) {
		t.Errorf("collapsed root kept children: %s", body)
	}
	if !strings.Contains(body, `('1')`) {
		t.Errorf("instructions do not reference the parent display id: %s", body)
	}
}
