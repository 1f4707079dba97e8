package world

import (
	"encoding/json"
	"testing"

	"ninex.world/internal/observerproto"
	"ninex.world/internal/sim/encoding"
)

func readFrame(t *testing.T, ch chan []byte) observerproto.FrameMsg {
	t.Helper()
	select {
	case b := <-ch:
		var msg observerproto.FrameMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		return msg
	default:
		t.Fatalf("expected a frame")
	}
	return observerproto.FrameMsg{}
}

func TestObserver_FramesFollowSubscription(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	out := make(chan []byte, 4)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "s1", Out: out, Every: 2})

	initial := readFrame(t, out)
	if initial.Tick != 0 || initial.Type != observerproto.TypeFrame {
		t.Fatalf("initial frame=%+v", initial)
	}

	_ = w.Step()
	if len(out) != 0 {
		t.Fatalf("unexpected frame on odd tick")
	}
	_ = w.Step()
	f := readFrame(t, out)
	if f.Tick != 2 || f.Digest != w.Digest() {
		t.Fatalf("frame tick=%d digest=%s", f.Tick, f.Digest)
	}

	ids, err := encoding.DecodeRLE(f.Data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ids) != 20 {
		t.Fatalf("ids=%d want 20", len(ids))
	}
	// Scan order: index = x*height + y.
	r, g, b := w.RGB(3, 1)
	want := uint32(r)<<16 | uint32(g)<<8 | uint32(b)
	if got := f.Palette[ids[3*4+1]]; got != want {
		t.Fatalf("color at (3,1)=%06x want %06x", got, want)
	}

	w.handleObserverSubscribe(ObserverSubscribeRequest{SessionID: "s1", Every: 1})
	_ = w.Step()
	if readFrame(t, out).Tick != 3 {
		t.Fatalf("expected frame every tick after resubscribe")
	}

	w.handleObserverLeave("s1")
	if _, ok := <-out; ok {
		t.Fatalf("expected closed channel after leave")
	}
}

func TestObserver_CloseClosesChannels(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	out := make(chan []byte, 1)
	w.handleObserverJoin(ObserverJoinRequest{SessionID: "s1", Out: out})
	w.Close()
	for range out {
	}
}

func TestFrame_ValidatesAgainstSchema(t *testing.T) {
	w := newTestWorld(t, smallConfig())
	b, err := w.frameMessage(w.CurrentTick())
	if err != nil {
		t.Fatalf("frame: %v", err)
	}
	if err := observerproto.Validate(observerproto.TypeFrame, b); err != nil {
		t.Fatalf("validate: %v", err)
	}
}
