package hdbscan

// eomSelect runs Excess-of-Mass selection over the split tree: each
// internal node compares its own stability against the sum of its
// descendants' selected stabilities, keeping whichever is greater and
// propagating the winning set upward. Leaves (labels with no recorded
// split) are always selected.
func eomSelect(splits []splitEvent, stability map[int]float64) []int {
	children := make(map[int][2]int)
	hasChildren := make(map[int]bool)
	for _, s := range splits {
		children[s.parent] = [2]int{s.left, s.right}
		hasChildren[s.parent] = true
	}

	var eval func(label int) (float64, []int)
	eval = func(label int) (float64, []int) {
		kids, ok := children[label]
		if !ok {
			return stability[label], []int{label}
		}
		sL, selL := eval(kids[0])
		sR, selR := eval(kids[1])
		childSum := sL + sR
		if stability[label] >= childSum {
			return stability[label], []int{label}
		}
		return childSum, append(selL, selR...)
	}

	_, selected := eval(0)
	var out []int
	for _, lab := range selected {
		if stability[lab] > 0 {
			out = append(out, lab)
		}
	}
	return out
}
