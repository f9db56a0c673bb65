package frameworks

// QualifyIDs rewrites each node's authored local id into a fully qualified,
// colon-delimited ancestor path (e.g. "RPS:The Consultation:1.1") and
// preserves the local id in DisplayID. It mutates the tree in place and
// must run exactly once per framework, immediately after load and before
// the framework is cached.
func QualifyIDs(nodes []*FrameworkNode) {
	qualify(nodes, "")
}

func qualify(nodes []*FrameworkNode, parentPath string) {
	for _, node := range nodes {
		current := node.ID
		if parentPath != "" {
			current = parentPath + ":" + node.ID
		}
		node.DisplayID = node.ID
		node.ID = current
		if len(node.Children) > 0 {
			qualify(node.Children, current)
		}
	}
}
