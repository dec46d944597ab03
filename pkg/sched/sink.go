package sched

import "github.com/marmos91/ransched/internal/logger"

// logSink is the default EventSink: it forwards lifecycle events to the
// structured logger.
type logSink struct{}

// NewLogSink returns an EventSink that logs every event at info level.
func NewLogSink() EventSink { return logSink{} }

func (logSink) UEAdded(rnti RNTI, numCarriers int) {
	logger.Info("ue added", logger.KeyRNTI, rnti, "carriers", numCarriers)
}

func (logSink) UEReconfigured(rnti RNTI) {
	logger.Info("ue reconfigured", logger.KeyRNTI, rnti)
}

func (logSink) UERemoved(rnti RNTI) {
	logger.Info("ue removed", logger.KeyRNTI, rnti)
}
