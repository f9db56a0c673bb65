package frameworks

import "testing"

func TestQualifyIDsBuildsColonPaths(t *testing.T) {
	tree := []*FrameworkNode{
		{
			ID: "1", NodeType: "domain", Text: "Assess the patient",
			Children: []*FrameworkNode{
				{ID: "1.1", NodeType: "competency", Text: "Takes a history"},
				{
					ID: "1.2", NodeType: "competency", Text: "Examines the patient",
					Children: []*FrameworkNode{
						{ID: "1.2.1", NodeType: "competency", Text: "Performs a focused examination"},
					},
				},
			},
		},
	}

	QualifyIDs(tree)

	root := tree[0]
	if root.ID != "1" || root.DisplayID != "1" {
		t.Fatalf("root = (%q, %q), want (1, 1)", root.ID, root.DisplayID)
	}
	child := root.Children[1]
	if child.ID != "1:1.2" {
		t.Errorf("child ID = %q, want 1:1.2", child.ID)
	}
	if child.DisplayID != "1.2" {
		t.Errorf("child DisplayID = %q, want 1.2", child.DisplayID)
	}
	leaf := child.Children[0]
	if leaf.ID != "1:1.2:1.2.1" {
		t.Errorf("leaf ID = %q, want 1:1.2:1.2.1", leaf.ID)
	}
	if leaf.DisplayID != "1.2.1" {
		t.Errorf("leaf DisplayID = %q, want 1.2.1", leaf.DisplayID)
	}
}
