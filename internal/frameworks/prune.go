package frameworks

import (
	"encoding/json"
	"fmt"
	"sort"
)

const collapsedIntroNote = "This principle is demonstrated by evidence of the following points:"

// categoryInstruction keeps the model from matching vague grouping nodes:
// any node that still has children after pruning must not be cited directly.
const categoryInstruction = "This is a category/domain, not a specific competency. Do not match this node directly. You must find a more specific match within its children."

func collapsedInstruction(displayID string) string {
	return fmt.Sprintf("This is a high-level principle. If you match this node, you MUST use its 'display_id' ('%s') for the 'competency_id' in your response. In your 'justification_for_level', you should then reference the most relevant supporting competency IDs (e.g., 'ID: 1.1', 'ID: 6.2') to support your reasoning.", displayID)
}

// PruneForLLM returns a level-tailored, prompt-ready form of the framework
// as a plain nested map with empty optional fields omitted. It operates on
// a deep copy: the cached framework is never mutated, so repeated pruning
// at different academic levels cannot interfere.
//
// The level key is threaded through the recursion but pruning itself is
// level-invariant; the level shapes the LLM's reading only via the prompt's
// academic-level ladder.
func PruneForLLM(fw *FrameworkFile, levelKey string) (map[string]any, error) {
	pruned := fw.Clone()
	pruned.Structure = pruneNodes(pruned.Structure, levelKey)

	data, err := json.Marshal(pruned)
	if err != nil {
		return nil, fmt.Errorf("serialize pruned framework %s: %w", fw.Metadata.FrameworkCode, err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("serialize pruned framework %s: %w", fw.Metadata.FrameworkCode, err)
	}
	return out, nil
}

// pruneNodes walks an already-copied node list, absorbing collapsed
// subtrees into their parent's source notes and injecting matching
// instructions on every surviving non-leaf node.
func pruneNodes(nodes []*FrameworkNode, levelKey string) []*FrameworkNode {
	pruned := make([]*FrameworkNode, 0, len(nodes))
	for _, node := range nodes {
		if node.CollapseChildren && len(node.Children) > 0 {
			leaves := collectLeaves(node.Children)
			sort.Slice(leaves, func(i, j int) bool { return leaves[i].displayID < leaves[j].displayID })

			if len(leaves) > 0 {
				node.SourceNotes = append(node.SourceNotes, collapsedIntroNote)
				for _, leaf := range leaves {
					node.SourceNotes = append(node.SourceNotes, fmt.Sprintf("- %s (ID: %s)", leaf.text, leaf.displayID))
				}
			}
			node.LLMInstructions = collapsedInstruction(node.DisplayID)
			node.Children = nil
			node.CollapseChildren = false
		}

		if len(node.Children) > 0 {
			node.LLMInstructions = categoryInstruction
			node.Children = pruneNodes(node.Children, levelKey)
			if len(node.Children) == 0 {
				node.Children = nil
			}
		}

		pruned = append(pruned, node)
	}
	return pruned
}

type leafRef struct {
	displayID string
	text      string
}

// collectLeaves gathers every descendant leaf as (display id, text),
// falling back to the qualified id when a node was never qualified.
func collectLeaves(nodes []*FrameworkNode) []leafRef {
	var leaves []leafRef
	for _, node := range nodes {
		if node.IsLeaf() {
			id := node.DisplayID
			if id == "" {
				id = node.ID
			}
			leaves = append(leaves, leafRef{displayID: id, text: node.Text})
			continue
		}
		leaves = append(leaves, collectLeaves(node.Children)...)
	}
	return leaves
}
