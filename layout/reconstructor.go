package layout

// Result is the outcome of reconstructing one page.
type Result struct {
	Blocks     []TextBlock `json:"blocks"`
	Text       string      `json:"text"`
	Boundaries []float64   `json:"boundaries"`
	Mode       Mode        `json:"mode"`
	// Columns holds the number of blocks assigned to each column, left to right.
	// Fallback mode reports a single column.
	Columns []int `json:"columns"`
	// Dropped counts blocks discarded in table mode for lacking a usable box.
	Dropped int `json:"dropped"`
}

// ColumnBlocks groups the ordered blocks by column, skipping empty columns. Fallback
// results form a single group.
func (r Result) ColumnBlocks() [][]TextBlock {
	if r.Mode != ModeTable {
		if len(r.Blocks) == 0 {
			return nil
		}
		return [][]TextBlock{r.Blocks}
	}
	var groups [][]TextBlock
	last := -1
	for _, b := range r.Blocks {
		col := columnIndex(b.BBox.Left(), r.Boundaries)
		if col != last {
			groups = append(groups, nil)
			last = col
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], b)
	}
	return groups
}

// Reconstructor runs column detection followed by sequencing.
type Reconstructor struct {
	detector  *ColumnDetector
	sequencer *Sequencer
}

// NewReconstructor creates a reconstructor. A nil recorder discards events.
func NewReconstructor(config Config, recorder Recorder) *Reconstructor {
	return &Reconstructor{
		detector:  NewColumnDetector(config, recorder),
		sequencer: NewSequencer(config, recorder),
	}
}

// Reconstruct orders blocks for reading. It is a pure function of its inputs.
func (r *Reconstructor) Reconstruct(blocks []TextBlock, imageWidth int) Result {
	boundaries := r.detector.Detect(blocks, imageWidth)
	ordered := r.sequencer.order(blocks, boundaries)
	if boundaries == nil {
		boundaries = []float64{}
	}
	return Result{
		Blocks:     ordered.blocks,
		Text:       JoinText(ordered.blocks),
		Boundaries: boundaries,
		Mode:       ordered.mode,
		Columns:    ordered.columns,
		Dropped:    ordered.dropped,
	}
}

// Reconstruct runs the default configuration without event recording.
func Reconstruct(blocks []TextBlock, imageWidth int) Result {
	return NewReconstructor(DefaultConfig(), nil).Reconstruct(blocks, imageWidth)
}
