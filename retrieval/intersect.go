package retrieval

// intersectSorted computes the intersection of two ascending,
// duplicate-free sequences by a linear two-pointer merge. It always
// allocates a fresh slice: the intersection buffer is never reused
// across buckets or passes, so a bucket's previously-reported result
// (if any escaped to a caller) is never mutated out from under it.
func intersectSorted(a, b []FeatureID) []FeatureID {
	result := make([]FeatureID, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			result = append(result, a[i])
			i++
			j++
		}
	}
	return result
}
