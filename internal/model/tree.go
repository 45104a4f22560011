package model

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Node is one node of a regression tree stored in a flat slice
type Node struct {
	Feature   int     `json:"f"`
	Threshold float64 `json:"t"`
	Left      int     `json:"l"`
	Right     int     `json:"r"`
	Leaf      bool    `json:"leaf,omitempty"`
	Value     float64 `json:"v"`
}

// Tree is a binary regression tree; samples with x <= Threshold go left
type Tree struct {
	Nodes []Node `json:"nodes"`
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// binning holds candidate thresholds and each sample's bin per feature
type binning struct {
	thresholds [][]float64
	bins       [][]int
}

func newBinning(x [][]float64, nFeatures, maxBins int) *binning {
	b := &binning{
		thresholds: make([][]float64, nFeatures),
		bins:       make([][]int, nFeatures),
	}

	col := make([]float64, len(x))
	for f := 0; f < nFeatures; f++ {
		for i := range x {
			col[i] = x[i][f]
		}
		sorted := append([]float64(nil), col...)
		sort.Float64s(sorted)

		unique := sorted[:0:0]
		for i, v := range sorted {
			if i == 0 || v != sorted[i-1] {
				unique = append(unique, v)
			}
		}

		var thr []float64
		if len(unique) <= maxBins {
			if len(unique) > 1 {
				thr = append(thr, unique[:len(unique)-1]...)
			}
		} else {
			for k := 1; k < maxBins; k++ {
				q := stat.Quantile(float64(k)/float64(maxBins), stat.Empirical, sorted, nil)
				if len(thr) == 0 || q > thr[len(thr)-1] {
					thr = append(thr, q)
				}
			}
			if len(thr) > 0 && thr[len(thr)-1] >= unique[len(unique)-1] {
				thr = thr[:len(thr)-1]
			}
		}
		b.thresholds[f] = thr

		idx := make([]int, len(x))
		for i, v := range col {
			idx[i] = sort.SearchFloat64s(thr, v)
		}
		b.bins[f] = idx
	}
	return b
}

type treeBuilder struct {
	binning   *binning
	residuals []float64
	cfg       Config
	gains     []float64
	tree      Tree
}

type split struct {
	feature int
	bin     int
	gain    float64
}

func (tb *treeBuilder) build(samples []int) Tree {
	tb.tree = Tree{}
	tb.grow(samples, 0)
	return tb.tree
}

func (tb *treeBuilder) leafValue(samples []int) float64 {
	var g float64
	for _, i := range samples {
		g += tb.residuals[i]
	}
	return g / (float64(len(samples)) + tb.cfg.L2LeafReg)
}

func (tb *treeBuilder) grow(samples []int, depth int) int {
	id := len(tb.tree.Nodes)
	tb.tree.Nodes = append(tb.tree.Nodes, Node{})

	best, ok := tb.bestSplit(samples, depth)
	if !ok {
		tb.tree.Nodes[id] = Node{Leaf: true, Value: tb.leafValue(samples)}
		return id
	}

	bins := tb.binning.bins[best.feature]
	var left, right []int
	for _, i := range samples {
		if bins[i] <= best.bin {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	tb.gains[best.feature] += best.gain
	l := tb.grow(left, depth+1)
	r := tb.grow(right, depth+1)
	tb.tree.Nodes[id] = Node{
		Feature:   best.feature,
		Threshold: tb.binning.thresholds[best.feature][best.bin],
		Left:      l,
		Right:     r,
	}
	return id
}

func (tb *treeBuilder) bestSplit(samples []int, depth int) (split, bool) {
	minLeaf := tb.cfg.MinSamplesLeaf
	if minLeaf < 1 {
		minLeaf = 1
	}
	if depth >= tb.cfg.Depth || len(samples) < 2*minLeaf {
		return split{}, false
	}

	lambda := tb.cfg.L2LeafReg
	var total float64
	for _, i := range samples {
		total += tb.residuals[i]
	}
	n := float64(len(samples))
	parent := total * total / (n + lambda)

	best := split{gain: 1e-12}
	found := false

	for f, thr := range tb.binning.thresholds {
		if len(thr) == 0 {
			continue
		}
		sums := make([]float64, len(thr)+1)
		counts := make([]int, len(thr)+1)
		bins := tb.binning.bins[f]
		for _, i := range samples {
			sums[bins[i]] += tb.residuals[i]
			counts[bins[i]]++
		}

		var gl float64
		var nl int
		for k := 0; k < len(thr); k++ {
			gl += sums[k]
			nl += counts[k]
			nr := len(samples) - nl
			if nl < minLeaf {
				continue
			}
			if nr < minLeaf {
				break
			}
			gr := total - gl
			gain := gl*gl/(float64(nl)+lambda) + gr*gr/(float64(nr)+lambda) - parent
			if gain > best.gain {
				best = split{feature: f, bin: k, gain: gain}
				found = true
			}
		}
	}
	return best, found
}
