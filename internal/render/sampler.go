package render

// SelectSamplePages picks the physical pages (1-based) to probe for offset
// detection. Pages are drawn from the document body, past the first skipFirst
// pages, so covers and tables of contents do not poison the samples.
//
// The selection is fully deterministic: identical inputs always produce the
// identical sequence.
func SelectSamplePages(totalPages, numSamples, skipFirst int) []int {
	if totalPages <= skipFirst {
		// Too short to have distinguishable front matter; probe the midpoint.
		if totalPages == 0 {
			return []int{}
		}
		return []int{totalPages / 2}
	}

	usableStart := skipFirst + 1
	usableEnd := totalPages
	usableRange := usableEnd - usableStart

	if usableRange < numSamples {
		pages := make([]int, 0, usableRange+1)
		for p := usableStart; p <= usableEnd; p++ {
			pages = append(pages, p)
		}
		return pages
	}

	// Evenly spaced fractions of the usable span: 25%, 50%, 75% for three
	// samples. Truncation, not rounding.
	pages := make([]int, 0, numSamples)
	for i := 0; i < numSamples; i++ {
		fraction := float64(i+1) / float64(numSamples+1)
		pages = append(pages, usableStart+int(float64(usableRange)*fraction))
	}
	return pages
}
