package expr

// Complexity holds size metrics for an expression tree.
type Complexity struct {
	NodeCount      int
	LeafCount      int
	ParamCount     int // constants and window lengths
	MaxDepth       int
	UniqueFeatures map[string]bool
	OperatorCount  map[string]int
}

// UniqueFeatureCount returns the number of distinct features referenced.
func (c Complexity) UniqueFeatureCount() int {
	return len(c.UniqueFeatures)
}

// ComputeComplexity walks the tree once and tallies its metrics.
func ComputeComplexity(n *Node) Complexity {
	cx := Complexity{
		UniqueFeatures: make(map[string]bool),
		OperatorCount:  make(map[string]int),
	}
	if n == nil {
		return cx
	}
	walkTree(n, &cx, 1)
	return cx
}

func walkTree(n *Node, cx *Complexity, depth int) {
	if depth > cx.MaxDepth {
		cx.MaxDepth = depth
	}
	cx.NodeCount++

	switch n.Kind {
	case NodeFeature:
		cx.LeafCount++
		cx.UniqueFeatures[n.Feature] = true
		return
	case NodeConstant, NodeDeltaTime:
		cx.LeafCount++
		cx.ParamCount++
		return
	}

	cx.OperatorCount[n.Op.Name]++
	for _, c := range n.Children {
		walkTree(c, cx, depth+1)
	}
}
