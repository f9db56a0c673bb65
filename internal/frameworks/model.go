package frameworks

// FrameworkNode is one entry in a competency tree: a grouping (domain,
// competency) or a specific assessable statement (leaf). After
// qualification ID holds the colon-delimited ancestor path and DisplayID
// the original local id.
type FrameworkNode struct {
	ID               string           `yaml:"id" json:"id"`
	DisplayID        string           `yaml:"display_id,omitempty" json:"display_id,omitempty"`
	NodeType         string           `yaml:"node_type" json:"node_type"`
	Text             string           `yaml:"text" json:"text"`
	SourceNotes      []string         `yaml:"source_notes,omitempty" json:"source_notes,omitempty"`
	SourceExamples   []string         `yaml:"source_examples,omitempty" json:"source_examples,omitempty"`
	LLMInstructions  string           `yaml:"llm_instructions,omitempty" json:"llm_instructions,omitempty"`
	Children         []*FrameworkNode `yaml:"children,omitempty" json:"children,omitempty"`
	CollapseChildren bool             `yaml:"collapse_children,omitempty" json:"collapse_children,omitempty"`
}

// IsLeaf reports whether the node has no children.
func (n *FrameworkNode) IsLeaf() bool {
	return len(n.Children) == 0
}

// Clone returns a deep copy of the node and its subtree.
func (n *FrameworkNode) Clone() *FrameworkNode {
	if n == nil {
		return nil
	}
	out := *n
	out.SourceNotes = append([]string(nil), n.SourceNotes...)
	out.SourceExamples = append([]string(nil), n.SourceExamples...)
	if n.Children != nil {
		out.Children = make([]*FrameworkNode, len(n.Children))
		for i, child := range n.Children {
			out.Children[i] = child.Clone()
		}
	}
	return &out
}

// FrameworkMetadata describes a loaded framework file.
type FrameworkMetadata struct {
	FrameworkCode string   `yaml:"framework_code,omitempty" json:"framework_code,omitempty"`
	Organisation  string   `yaml:"organisation" json:"organisation"`
	Title         string   `yaml:"title" json:"title"`
	Date          string   `yaml:"date,omitempty" json:"date,omitempty"`
	Abbreviation  string   `yaml:"abbreviation" json:"abbreviation"`
	Version       string   `yaml:"version,omitempty" json:"version,omitempty"`
	Dependencies  []string `yaml:"dependencies,omitempty" json:"dependencies,omitempty"`
	SourceURL     string   `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	DisplayInUI   *bool    `yaml:"display_in_ui,omitempty" json:"display_in_ui,omitempty"`
}

// Visible reports whether the framework should be offered in selection UIs.
// Hidden frameworks can still be pulled in as dependencies.
func (m FrameworkMetadata) Visible() bool {
	return m.DisplayInUI == nil || *m.DisplayInUI
}

// FrameworkFile is one loaded framework: metadata plus the root node list.
// Loaded and qualified once at startup, then cached read-only; later
// transforms (pruning) operate on deep copies.
type FrameworkFile struct {
	Metadata    FrameworkMetadata `yaml:"metadata" json:"metadata"`
	SourceNotes []string          `yaml:"source_notes,omitempty" json:"source_notes,omitempty"`
	Structure   []*FrameworkNode  `yaml:"structure" json:"structure"`
}

// Clone returns a deep copy of the framework.
func (f *FrameworkFile) Clone() *FrameworkFile {
	if f == nil {
		return nil
	}
	out := *f
	out.SourceNotes = append([]string(nil), f.SourceNotes...)
	out.Metadata.Dependencies = append([]string(nil), f.Metadata.Dependencies...)
	if f.Metadata.DisplayInUI != nil {
		v := *f.Metadata.DisplayInUI
		out.Metadata.DisplayInUI = &v
	}
	out.Structure = make([]*FrameworkNode, len(f.Structure))
	for i, node := range f.Structure {
		out.Structure[i] = node.Clone()
	}
	return &out
}

// CountNodes returns the total node count of the framework tree.
func (f *FrameworkFile) CountNodes() int {
	var count func(nodes []*FrameworkNode) int
	count = func(nodes []*FrameworkNode) int {
		total := len(nodes)
		for _, n := range nodes {
			total += count(n.Children)
		}
		return total
	}
	return count(f.Structure)
}

// Library is the process-wide framework collection keyed by framework code.
type Library map[string]*FrameworkFile
