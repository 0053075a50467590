package metrics

import (
	"io"
	"time"

	log "github.com/sirupsen/logrus"
)

const RecordTimeFormat = "2006-01-02 15:04:05"

// Recorder writes one JSON record per flushed batch to a telemetry sink.
type Recorder struct {
	logger *log.Logger
	now    func() time.Time
}

func NewRecorder(out io.Writer) *Recorder {
	logger := log.New()
	logger.Out = out
	logger.Formatter = &log.JSONFormatter{DisableTimestamp: true}
	logger.Level = log.InfoLevel
	return &Recorder{logger: logger, now: time.Now}
}

func (r *Recorder) Record(sample string, events, bytes int) {
	r.logger.WithFields(log.Fields{
		"timestamp": r.now().Format(RecordTimeFormat),
		"sample":    sample,
		"events":    events,
		"bytes":     bytes,
	}).Info("batch flushed")
}
