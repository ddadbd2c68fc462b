package display

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// subscriberBuffer is how many frames a slow client may lag before frames
// are dropped for it.
const subscriberBuffer = 16

// Frame is the full visible state sent to overlay clients after every change.
type Frame struct {
	Visible     bool   `json:"visible"`
	TopText     string `json:"top_text"`
	BottomText  string `json:"bottom_text"`
	YPosition   int    `json:"y_position"`
	Height      int    `json:"height"`
	TopColor    string `json:"top_color"`
	BottomColor string `json:"bottom_color"`
}

// Hub is a Sink that broadcasts each resulting Frame as JSON to subscribers.
// Publishing never blocks the caller.
type Hub struct {
	mu     sync.Mutex
	frame  Frame
	subs   map[string]chan []byte
	logger *zap.SugaredLogger
}

func NewHub(logger *zap.SugaredLogger) *Hub {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Hub{
		subs:   make(map[string]chan []byte),
		logger: logger,
	}
}

// Subscribe registers a client. The current frame is delivered first. The
// returned cancel func unregisters it and closes the channel.
func (h *Hub) Subscribe() (id string, frames <-chan []byte, cancel func()) {
	id = uuid.NewString()
	ch := make(chan []byte, subscriberBuffer)

	h.mu.Lock()
	h.subs[id] = ch
	if payload, err := json.Marshal(h.frame); err == nil {
		ch <- payload
	}
	h.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
	return id, ch, cancel
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) update(fn func(f *Frame)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	fn(&h.frame)
	payload, err := json.Marshal(h.frame)
	if err != nil {
		h.logger.Errorw("failed to marshal display frame", "error", err)
		return
	}
	for id, ch := range h.subs {
		select {
		case ch <- payload:
		default:
			h.logger.Warnw("display client lagging, frame dropped", "client", id)
		}
	}
}

func (h *Hub) SetTopText(s string)    { h.update(func(f *Frame) { f.TopText = s }) }
func (h *Hub) SetBottomText(s string) { h.update(func(f *Frame) { f.BottomText = s }) }
func (h *Hub) SetPosition(y int)      { h.update(func(f *Frame) { f.YPosition = y }) }
func (h *Hub) SetHeight(height int)   { h.update(func(f *Frame) { f.Height = height }) }
func (h *Hub) Show()                  { h.update(func(f *Frame) { f.Visible = true }) }
func (h *Hub) Hide()                  { h.update(func(f *Frame) { f.Visible = false }) }

func (h *Hub) SetColors(top, bottom string) {
	h.update(func(f *Frame) { f.TopColor, f.BottomColor = top, bottom })
}
