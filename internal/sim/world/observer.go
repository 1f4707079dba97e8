package world

import (
	"encoding/json"

	"go.uber.org/zap"

	"ninex.world/internal/observerproto"
	"ninex.world/internal/sim/encoding"
)

// ObserverJoinRequest registers a read-only observer session that receives
// FRAME messages on Out. The world loop owns Out once the request is
// accepted and closes it on leave or Close.
type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte

	// Every sends one frame per N iterations. Defaults to 1.
	Every int
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID string
	Every     int
}

type observerClient struct {
	id    string
	out   chan []byte
	every int
}

const maxObserverEvery = 100000

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if w == nil || req.SessionID == "" || req.Out == nil {
		return
	}
	if old := w.observers[req.SessionID]; old != nil {
		close(old.out)
	}
	c := &observerClient{
		id:    req.SessionID,
		out:   req.Out,
		every: clampInt(req.Every, 1, maxObserverEvery, 1),
	}
	w.observers[req.SessionID] = c
	w.log.Debug("observer joined", zap.String("session", c.id), zap.Int("every", c.every))

	// Initial frame so the client has something to draw before the next tick.
	if b, err := w.frameMessage(w.tick.Load()); err == nil {
		sendLatest(c.out, b)
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.every = clampInt(req.Every, 1, maxObserverEvery, c.every)
}

func (w *World) handleObserverLeave(sessionID string) {
	if sessionID == "" {
		return
	}
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.out)
	w.log.Debug("observer left", zap.String("session", sessionID))
}

func (w *World) stepObservers(nowTick uint64) {
	if len(w.observers) == 0 {
		return
	}
	var frame []byte
	for _, c := range w.observers {
		if nowTick%uint64(c.every) != 0 {
			continue
		}
		if frame == nil {
			b, err := w.frameMessage(nowTick)
			if err != nil {
				w.log.Warn("observer frame", zap.Uint64("tick", nowTick), zap.Error(err))
				return
			}
			frame = b
		}
		sendLatest(c.out, frame)
	}
}

// Frame builds the display frame for the current state.
func (w *World) Frame() observerproto.FrameMsg {
	palette := make([]uint32, 0, 64)
	index := map[uint32]uint32{}
	ids := make([]uint32, 0, w.cfg.Width*w.cfg.Height)
	for x := range w.grid {
		for y := range w.grid[x] {
			c := packRGB(w.Display(x, y))
			id, ok := index[c]
			if !ok {
				id = uint32(len(palette))
				index[c] = id
				palette = append(palette, c)
			}
			ids = append(ids, id)
		}
	}
	return observerproto.FrameMsg{
		Type:            observerproto.TypeFrame,
		ProtocolVersion: observerproto.Version,
		Tick:            w.tick.Load(),
		Width:           w.cfg.Width,
		Height:          w.cfg.Height,
		Palette:         palette,
		Encoding:        "RLE",
		Data:            encoding.EncodeRLE(ids),
	}
}

func (w *World) frameMessage(tick uint64) ([]byte, error) {
	msg := w.Frame()
	msg.Tick = tick
	msg.Digest = w.Digest()
	return json.Marshal(msg)
}

func clampInt(v, min, max, def int) int {
	if v == 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// sendLatest delivers b without blocking, dropping the oldest queued
// message when the channel is full.
func sendLatest(ch chan []byte, b []byte) {
	select {
	case ch <- b:
		return
	default:
	}
	// Drop one.
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- b:
	default:
	}
}
