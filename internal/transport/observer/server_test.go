package observer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/goleak"

	"ninex.world/internal/observerproto"
	"ninex.world/internal/sim/encoding"
	"ninex.world/internal/sim/world"
)

func startWorld(t *testing.T) (*world.World, func()) {
	t.Helper()
	w, err := world.New(world.Config{
		ID:                "obs",
		Seed:              5,
		GenomeAddressSize: 6,
		Width:             6,
		Height:            4,
		Iterations:        1 << 20,
		TickRateHz:        200,
	}, nil)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return w, func() {
		cancel()
		<-done
		w.Close()
	}
}

func TestBootstrap(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, stop := startWorld(t)
	defer stop()
	srv := httptest.NewServer(NewServer(w, nil).BootstrapHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var boot observerproto.BootstrapResponse
	if err := json.NewDecoder(resp.Body).Decode(&boot); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if boot.WorldID != "obs" || boot.WorldParams.Width != 6 || boot.WorldParams.Height != 4 {
		t.Fatalf("bootstrap=%+v", boot)
	}
	if boot.ProtocolVersion != observerproto.Version {
		t.Fatalf("protocol=%q", boot.ProtocolVersion)
	}
}

func TestWS_StreamsFrames(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	w, stop := startWorld(t)
	defer stop()
	srv := httptest.NewServer(NewServer(w, nil).WSHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := observerproto.SubscribeMsg{Type: observerproto.TypeSubscribe, ProtocolVersion: observerproto.Version, Every: 1}
	if err := conn.WriteJSON(sub); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	var last uint64
	for i := 0; i < 3; i++ {
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		var f observerproto.FrameMsg
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame %d: %v", i, err)
		}
		if f.Type != observerproto.TypeFrame || f.Width != 6 || f.Height != 4 {
			t.Fatalf("frame=%+v", f)
		}
		ids, err := encoding.DecodeRLE(f.Data)
		if err != nil || len(ids) != 24 {
			t.Fatalf("frame data ids=%d err=%v", len(ids), err)
		}
		if i > 0 && f.Tick <= last {
			t.Fatalf("ticks not increasing: %d after %d", f.Tick, last)
		}
		last = f.Tick
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func TestWS_RejectsBadSubscribe(t *testing.T) {
	w, stop := startWorld(t)
	defer stop()
	srv := httptest.NewServer(NewServer(w, nil).WSHandler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"SUBSCRIBE","protocol_version":"9.9"}`))
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	var ce *websocket.CloseError
	if !errors.As(err, &ce) || ce.Code != websocket.ClosePolicyViolation {
		t.Fatalf("expected policy violation close, got %v", err)
	}
}

func TestRemoteForbidden(t *testing.T) {
	s := &Server{}
	req := httptest.NewRequest(http.MethodGet, "/v1/observer/bootstrap", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec := httptest.NewRecorder()
	s.BootstrapHandler()(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("code=%d want 403", rec.Code)
	}
}
