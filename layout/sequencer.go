package layout

import (
	"math"
	"sort"
)

// Mode names the ordering strategy that produced a result.
type Mode string

const (
	// ModeFallback reads top to bottom, then left to right.
	ModeFallback Mode = "fallback"
	// ModeTable reads column by column, each column top to bottom.
	ModeTable Mode = "table"
)

// Sequencer orders blocks given the column boundaries of the page.
type Sequencer struct {
	config   Config
	recorder Recorder
}

// NewSequencer creates a sequencer. A nil recorder discards events.
func NewSequencer(config Config, recorder Recorder) *Sequencer {
	return &Sequencer{
		config:   config,
		recorder: recorderOrNop(recorder),
	}
}

// Sequence returns the blocks in reading order together with their newline-joined text.
// The input slice is not modified.
func (s *Sequencer) Sequence(blocks []TextBlock, boundaries []float64) ([]TextBlock, string) {
	ordered := s.order(blocks, boundaries)
	return ordered.blocks, JoinText(ordered.blocks)
}

type ordering struct {
	blocks  []TextBlock
	mode    Mode
	columns []int
	dropped int
}

type sortKey struct {
	column int
	top    float64
	left   float64
}

func (s *Sequencer) order(blocks []TextBlock, boundaries []float64) ordering {
	if len(boundaries) < s.config.MinBoundaries {
		return s.fallback(blocks)
	}
	return s.table(blocks, boundaries)
}

// fallback sorts every block by (top, left). Blocks without a usable box keep their
// relative order after all positioned blocks.
func (s *Sequencer) fallback(blocks []TextBlock) ordering {
	out := make([]TextBlock, len(blocks))
	copy(out, blocks)
	keys := make([]sortKey, len(out))
	for i, b := range out {
		keys[i] = sortKey{top: math.Inf(1), left: math.Inf(1)}
		if b.BBox.Usable() {
			keys[i] = sortKey{top: b.BBox.Top(), left: b.BBox.Left()}
		}
	}
	stableSort(out, keys)

	s.recorder.Record(Event{Name: EventFallback, Fields: map[string]interface{}{
		"blocks": len(out),
	}})
	return ordering{blocks: out, mode: ModeFallback, columns: []int{len(out)}}
}

// table sorts blocks by (column, top, left). Blocks without a usable box are dropped.
func (s *Sequencer) table(blocks []TextBlock, boundaries []float64) ordering {
	out := make([]TextBlock, 0, len(blocks))
	keys := make([]sortKey, 0, len(blocks))
	columns := make([]int, len(boundaries)+1)
	for _, b := range blocks {
		if !b.BBox.Usable() {
			continue
		}
		left := b.BBox.Left()
		col := columnIndex(left, boundaries)
		columns[col]++
		out = append(out, b)
		keys = append(keys, sortKey{column: col, top: b.BBox.Top(), left: left})
	}
	stableSort(out, keys)

	dropped := len(blocks) - len(out)
	s.recorder.Record(Event{Name: EventTableOrder, Fields: map[string]interface{}{
		"blocks":     len(out),
		"dropped":    dropped,
		"assignment": columns,
	}})
	return ordering{blocks: out, mode: ModeTable, columns: columns, dropped: dropped}
}

// columnIndex counts the boundaries at or left of x. A block past the last boundary
// lands in column len(boundaries).
func columnIndex(x float64, boundaries []float64) int {
	col := 0
	for _, b := range boundaries {
		if b <= x {
			col++
		}
	}
	return col
}

func stableSort(blocks []TextBlock, keys []sortKey) {
	idx := make([]int, len(blocks))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := keys[idx[i]], keys[idx[j]]
		if a.column != b.column {
			return a.column < b.column
		}
		if a.top != b.top {
			return a.top < b.top
		}
		return a.left < b.left
	})

	sorted := make([]TextBlock, len(blocks))
	for i, k := range idx {
		sorted[i] = blocks[k]
	}
	copy(blocks, sorted)
}
