package layout

import "github.com/sirupsen/logrus"

// Event names emitted by the detector and sequencer.
const (
	EventInsufficientBlocks = "insufficient_blocks"
	EventInvalidWidth       = "invalid_image_width"
	EventPeaksFound         = "peaks_found"
	EventColumnsDetected    = "columns_detected"
	EventFallback           = "fallback_order"
	EventTableOrder         = "table_order"
)

// Event is an advisory observation. Nothing in this package reads events back.
type Event struct {
	Name   string
	Fields map[string]interface{}
}

// Recorder receives events from the reconstructor.
type Recorder interface {
	Record(Event)
}

// NopRecorder drops every event.
type NopRecorder struct{}

// Record implements Recorder.
func (NopRecorder) Record(Event) {}

// LogRecorder writes events to a logrus logger at debug level.
type LogRecorder struct {
	logger logrus.FieldLogger
}

// NewLogRecorder wraps logger. A nil logger falls back to the logrus standard logger.
func NewLogRecorder(logger logrus.FieldLogger) *LogRecorder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LogRecorder) Record(e Event) {
	r.logger.WithFields(logrus.Fields(e.Fields)).Debug(e.Name)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Event)

// Record implements Recorder.
func (f RecorderFunc) Record(e Event) { f(e) }

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return NopRecorder{}
	}
	return r
}
