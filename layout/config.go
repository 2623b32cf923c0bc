package layout

import "fmt"

// Config holds the tunables of column detection and sequencing.
type Config struct {
	// MinBlocks is the number of usable blocks below which no column analysis is attempted.
	// Default: 5
	MinBlocks int `json:"min_blocks"`

	// MinBins is the floor of the histogram bin count.
	// Default: 20
	MinBins int `json:"min_bins"`

	// BinWidth is the image width, in pixels, covered by one bin before the MinBins floor applies.
	// Bin count is max(MinBins, imageWidth/BinWidth), capped at MaxBins.
	// Default: 40
	BinWidth int `json:"bin_width"`

	// MaxBins caps the bin count so that huge widths cannot inflate the histogram.
	// Default: 4096
	MaxBins int `json:"max_bins"`

	// MinPeakCount is the floor of the peak acceptance threshold.
	// Default: 3
	MinPeakCount int `json:"min_peak_count"`

	// PeakCountDivisor scales the threshold with the input size.
	// Threshold is max(MinPeakCount, totalBlocks/PeakCountDivisor).
	// Default: 20
	PeakCountDivisor int `json:"peak_count_divisor"`

	// PeakMergeDistance is the distance, in pixels, within which a peak is folded into the
	// previously accepted one.
	// Default: 50
	PeakMergeDistance float64 `json:"peak_merge_distance"`

	// MinBoundaries is the number of boundaries needed for table mode.
	// Default: 2
	MinBoundaries int `json:"min_boundaries"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		MinBlocks:         5,
		MinBins:           20,
		BinWidth:          40,
		MaxBins:           4096,
		MinPeakCount:      3,
		PeakCountDivisor:  20,
		PeakMergeDistance: 50,
		MinBoundaries:     2,
	}
}

// Validate checks that every tunable is in a range the algorithm can work with.
func (c Config) Validate() error {
	switch {
	case c.MinBlocks < 1:
		return fmt.Errorf("min_blocks must be at least 1, got %d", c.MinBlocks)
	case c.MinBins < 3:
		return fmt.Errorf("min_bins must be at least 3, got %d", c.MinBins)
	case c.BinWidth < 1:
		return fmt.Errorf("bin_width must be positive, got %d", c.BinWidth)
	case c.MaxBins < c.MinBins:
		return fmt.Errorf("max_bins must be at least min_bins (%d), got %d", c.MinBins, c.MaxBins)
	case c.MinPeakCount < 1:
		return fmt.Errorf("min_peak_count must be at least 1, got %d", c.MinPeakCount)
	case c.PeakCountDivisor < 1:
		return fmt.Errorf("peak_count_divisor must be positive, got %d", c.PeakCountDivisor)
	case c.PeakMergeDistance < 0:
		return fmt.Errorf("peak_merge_distance must not be negative, got %v", c.PeakMergeDistance)
	case c.MinBoundaries < 1:
		return fmt.Errorf("min_boundaries must be at least 1, got %d", c.MinBoundaries)
	}
	return nil
}

func (c Config) binCount(imageWidth int) int {
	return min(max(c.MinBins, imageWidth/c.BinWidth), max(c.MaxBins, c.MinBins))
}

func (c Config) peakThreshold(totalBlocks int) int {
	return max(c.MinPeakCount, totalBlocks/c.PeakCountDivisor)
}
