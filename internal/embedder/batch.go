package embedder

// Slicing and batch packing for the remote provider. Oversized inputs
// are cut into consecutive fixed-size slices; slices are packed into
// request batches under a total-character budget; per-slice vectors are
// recombined by elementwise mean so the caller still gets exactly one
// vector per input text.

// sliceText splits text into consecutive slices of at most maxLen
// characters. Text within the ceiling comes back as a single slice.
func sliceText(text string, maxLen int) []string {
	if maxLen <= 0 || len(text) <= maxLen {
		return []string{text}
	}
	slices := make([]string, 0, (len(text)+maxLen-1)/maxLen)
	for start := 0; start < len(text); start += maxLen {
		end := start + maxLen
		if end > len(text) {
			end = len(text)
		}
		slices = append(slices, text[start:end])
	}
	return slices
}

// batchRange is a half-open [Start, End) range into a flat slice list
type batchRange struct {
	Start int
	End   int
}

// packBatches greedily groups consecutive slices into batches whose
// total length stays under budget. A batch always admits at least one
// slice, even one that alone exceeds budget; a single oversized item
// can never stall packing.
func packBatches(slices []string, budget int) []batchRange {
	if len(slices) == 0 {
		return nil
	}
	var batches []batchRange
	start := 0
	used := 0
	for i, s := range slices {
		if i > start && used+len(s) > budget {
			batches = append(batches, batchRange{Start: start, End: i})
			start = i
			used = 0
		}
		used += len(s)
	}
	return append(batches, batchRange{Start: start, End: len(slices)})
}

// meanVectors combines per-slice vectors into one vector by elementwise
// arithmetic mean. A single vector is returned as-is.
func meanVectors(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}
	if len(vectors) == 1 {
		return vectors[0]
	}
	out := make([]float32, len(vectors[0]))
	for _, vec := range vectors {
		for i, v := range vec {
			out[i] += v
		}
	}
	n := float32(len(vectors))
	for i := range out {
		out[i] /= n
	}
	return out
}

// zeroVector returns an all-zero vector of the given width. Width 0
// (dimensions never discovered) yields an empty vector.
func zeroVector(width int) []float32 {
	if width <= 0 {
		return []float32{}
	}
	return make([]float32, width)
}
