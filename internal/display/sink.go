// Package display provides rendering sinks for the coordinator: a log sink,
// a fan-out, and a Hub that publishes frames to remote overlay clients.
package display

import "go.uber.org/zap"

type Sink interface {
	SetTopText(s string)
	SetBottomText(s string)
	SetPosition(y int)
	SetColors(top, bottom string)
	SetHeight(h int)
	Show()
	Hide()
}

// LogSink writes every display operation to the logger at debug level.
type LogSink struct {
	logger *zap.SugaredLogger
}

func NewLogSink(logger *zap.SugaredLogger) *LogSink {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &LogSink{logger: logger.Named("display")}
}

func (s *LogSink) SetTopText(text string)    { s.logger.Debugw("top text", "text", text) }
func (s *LogSink) SetBottomText(text string) { s.logger.Debugw("bottom text", "text", text) }
func (s *LogSink) SetPosition(y int)         { s.logger.Debugw("position", "y", y) }
func (s *LogSink) SetHeight(h int)           { s.logger.Debugw("height", "height", h) }
func (s *LogSink) Show()                     { s.logger.Debugw("show") }
func (s *LogSink) Hide()                     { s.logger.Debugw("hide") }

func (s *LogSink) SetColors(top, bottom string) {
	s.logger.Debugw("colors", "top", top, "bottom", bottom)
}

// Multi forwards every operation to each sink in order.
type Multi []Sink

func (m Multi) SetTopText(s string) {
	for _, sink := range m {
		sink.SetTopText(s)
	}
}

func (m Multi) SetBottomText(s string) {
	for _, sink := range m {
		sink.SetBottomText(s)
	}
}

func (m Multi) SetPosition(y int) {
	for _, sink := range m {
		sink.SetPosition(y)
	}
}

func (m Multi) SetColors(top, bottom string) {
	for _, sink := range m {
		sink.SetColors(top, bottom)
	}
}

func (m Multi) SetHeight(h int) {
	for _, sink := range m {
		sink.SetHeight(h)
	}
}

func (m Multi) Show() {
	for _, sink := range m {
		sink.Show()
	}
}

func (m Multi) Hide() {
	for _, sink := range m {
		sink.Hide()
	}
}
