package layout

// ColumnDetector finds column left edges from the distribution of block left edges.
type ColumnDetector struct {
	config   Config
	recorder Recorder
}

// NewColumnDetector creates a detector. A nil recorder discards events.
func NewColumnDetector(config Config, recorder Recorder) *ColumnDetector {
	return &ColumnDetector{
		config:   config,
		recorder: recorderOrNop(recorder),
	}
}

// Detect returns the ascending column boundaries of the page, or nil when the page does
// not look like a multi-column table.
//
// Left edges are binned over [0, imageWidth]. Interior bins holding at least the
// threshold count and no less than either neighbour are peaks; a peak within
// PeakMergeDistance of the previously kept one is dropped.
func (d *ColumnDetector) Detect(blocks []TextBlock, imageWidth int) []float64 {
	if imageWidth <= 0 {
		d.recorder.Record(Event{Name: EventInvalidWidth, Fields: map[string]interface{}{
			"image_width": imageWidth,
		}})
		return nil
	}

	lefts := leftEdges(blocks)
	if len(lefts) < d.config.MinBlocks {
		d.recorder.Record(Event{Name: EventInsufficientBlocks, Fields: map[string]interface{}{
			"usable_blocks": len(lefts),
			"min_blocks":    d.config.MinBlocks,
		}})
		return nil
	}

	bins := d.config.binCount(imageWidth)
	binWidth := float64(imageWidth) / float64(bins)
	counts, binned := histogram(lefts, bins, float64(imageWidth))
	if binned < d.config.MinBlocks {
		d.recorder.Record(Event{Name: EventInsufficientBlocks, Fields: map[string]interface{}{
			"usable_blocks": binned,
			"min_blocks":    d.config.MinBlocks,
		}})
		return nil
	}

	threshold := d.config.peakThreshold(len(blocks))
	peaks := findPeaks(counts, threshold, binWidth)
	boundaries := mergePeaks(peaks, d.config.PeakMergeDistance)

	d.recorder.Record(Event{Name: EventPeaksFound, Fields: map[string]interface{}{
		"bins":       bins,
		"threshold":  threshold,
		"peaks":      len(peaks),
		"boundaries": len(boundaries),
	}})

	if len(boundaries) < d.config.MinBoundaries {
		return nil
	}

	d.recorder.Record(Event{Name: EventColumnsDetected, Fields: map[string]interface{}{
		"columns":    len(boundaries) + 1,
		"boundaries": boundaries,
	}})
	return boundaries
}

func leftEdges(blocks []TextBlock) []float64 {
	lefts := make([]float64, 0, len(blocks))
	for _, b := range blocks {
		if b.BBox.Usable() {
			lefts = append(lefts, b.BBox.Left())
		}
	}
	return lefts
}

// histogram counts values into bins equal-width bins over [0, upper]. The last bin is
// closed on the right; values outside the range are ignored. It also returns how many
// values landed in a bin.
func histogram(values []float64, bins int, upper float64) ([]int, int) {
	counts := make([]int, bins)
	binned := 0
	for _, v := range values {
		if v < 0 || v > upper {
			continue
		}
		idx := int(v / upper * float64(bins))
		if idx >= bins {
			idx = bins - 1
		}
		counts[idx]++
		binned++
	}
	return counts, binned
}

// findPeaks scans the interior bins left to right and returns the midpoints of local maxima.
func findPeaks(counts []int, threshold int, binWidth float64) []float64 {
	var peaks []float64
	for i := 1; i < len(counts)-1; i++ {
		c := counts[i]
		if c >= threshold && c >= counts[i-1] && c >= counts[i+1] {
			peaks = append(peaks, (float64(i)+0.5)*binWidth)
		}
	}
	return peaks
}

// mergePeaks keeps the first peak of every cluster. Input must be ascending.
func mergePeaks(peaks []float64, distance float64) []float64 {
	var merged []float64
	for _, p := range peaks {
		if len(merged) == 0 || p-merged[len(merged)-1] > distance {
			merged = append(merged, p)
		}
	}
	return merged
}
