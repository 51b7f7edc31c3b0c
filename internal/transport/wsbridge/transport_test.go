package wsbridge

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBridge runs script against every accepted socket after reading hello.
type fakeBridge struct {
	t      *testing.T
	hello  chan helloData
	script func(ws *websocket.Conn)
}

func newFakeBridge(t *testing.T, script func(ws *websocket.Conn)) (*fakeBridge, *httptest.Server) {
	t.Helper()
	b := &fakeBridge{t: t, hello: make(chan helloData, 1), script: script}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		f := readFrame(t, ws)
		if f.Type != frameHello {
			t.Errorf("first frame = %q, want hello", f.Type)
			return
		}
		var h helloData
		if err := json.Unmarshal(f.Data, &h); err != nil {
			t.Errorf("decode hello: %v", err)
			return
		}
		b.hello <- h
		b.script(ws)
	}))
	t.Cleanup(srv.Close)
	return b, srv
}

func readFrame(t *testing.T, ws *websocket.Conn) frame {
	t.Helper()
	_, data, err := ws.ReadMessage()
	if err != nil {
		return frame{}
	}
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Errorf("decode frame: %v", err)
	}
	return f
}

func writeFrame(t *testing.T, ws *websocket.Conn, typ string, data any) {
	t.Helper()
	payload, err := encodeFrame(typ, data)
	if err != nil {
		t.Fatal(err)
	}
	if err := ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Errorf("write %s: %v", typ, err)
	}
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func newTestTransport(t *testing.T, url string, mutate func(*Config)) *Transport {
	t.Helper()
	cfg := DefaultConfig()
	cfg.URL = url
	cfg.SendRate = 0
	if mutate != nil {
		mutate(&cfg)
	}
	tr, err := New(cfg, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	return tr
}

func nextEvent(t *testing.T, events <-chan domain.InboundEvent) domain.InboundEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		if !ok {
			t.Fatal("event stream closed early")
		}
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return nil
}

func drain(t *testing.T, events <-chan domain.InboundEvent) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("event stream not closed")
		}
	}
}

func TestTransport_DecodesEventsInOrder(t *testing.T) {
	text := ".ping"
	bridge, srv := newFakeBridge(t, func(ws *websocket.Conn) {
		writeFrame(t, ws, frameConnectionUpdate, connectionUpdateData{Connection: "connecting", QR: "2@qr-payload"})
		_ = ws.WriteMessage(websocket.TextMessage, []byte("not json"))
		writeFrame(t, ws, "presence.update", map[string]string{"id": "x"})
		writeFrame(t, ws, frameCredsUpdate, credsUpdateData{Seq: 7, Credentials: domain.CredentialPatch{
			Keys: map[string]map[string][]byte{domain.KeyCategoryPreKey: {"1": []byte("k")}},
		}})
		writeFrame(t, ws, frameMessagesUpsert, messagesUpsertData{Messages: []wireMessage{
			{ID: "m1", Chat: "94711111111@s.whatsapp.net", Timestamp: 1700000000, Message: &wirePayload{Conversation: &text}},
			{ID: "m2", Chat: "94711111111@s.whatsapp.net"},
		}})
		writeFrame(t, ws, frameMessagesUpdate, messagesUpdateData{Updates: []messageStatus{
			{ID: "out-1", Chat: "94711111111@s.whatsapp.net", Status: int(domain.ReceiptDeliveryAck)},
		}})
		writeFrame(t, ws, frameConnectionUpdate, connectionUpdateData{Connection: "open", Me: "94718461889:2@s.whatsapp.net"})
		readFrame(t, ws) // wait for the client to close
	})

	creds := domain.NewCredentials()
	tr := newTestTransport(t, wsURL(srv), nil)
	c, err := tr.Connect(context.Background(), creds)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())

	hello := <-bridge.hello
	if hello.PairingMethod != PairingQR {
		t.Errorf("pairing method = %q", hello.PairingMethod)
	}
	if hello.Credentials == nil || hello.Credentials.Identity.RegistrationID != creds.Identity.RegistrationID {
		t.Errorf("hello credentials = %+v", hello.Credentials)
	}

	pairing, ok := nextEvent(t, c.Events()).(domain.ConnectionUpdate)
	if !ok || pairing.Phase != domain.PhasePairing || pairing.QR != "2@qr-payload" {
		t.Errorf("first event = %#v, want pairing update", pairing)
	}
	cu, ok := nextEvent(t, c.Events()).(domain.CredentialUpdate)
	if !ok || cu.Seq != 7 || string(cu.Patch.Keys[domain.KeyCategoryPreKey]["1"]) != "k" {
		t.Errorf("second event = %#v, want credential update 7", cu)
	}
	batch, ok := nextEvent(t, c.Events()).(domain.MessageBatch)
	if !ok || len(batch.Messages) != 2 {
		t.Fatalf("third event = %#v, want batch of 2", batch)
	}
	if batch.Messages[0].Body() != ".ping" || batch.Messages[0].Timestamp.Unix() != 1700000000 {
		t.Errorf("message = %+v", batch.Messages[0])
	}
	if batch.Messages[1].Payload != nil {
		t.Error("message without content should have nil payload")
	}
	status, ok := nextEvent(t, c.Events()).(domain.StatusUpdate)
	if !ok || len(status.Receipts) != 1 || status.Receipts[0].Status != domain.ReceiptDeliveryAck {
		t.Errorf("fourth event = %#v", status)
	}
	open, ok := nextEvent(t, c.Events()).(domain.ConnectionUpdate)
	if !ok || open.Phase != domain.PhaseOpen || open.Me != "94718461889:2@s.whatsapp.net" {
		t.Errorf("fifth event = %#v, want open", open)
	}
}

func TestTransport_SendAndAck(t *testing.T) {
	acks := make(chan uint64, 1)
	_, srv := newFakeBridge(t, func(ws *websocket.Conn) {
		for {
			f := readFrame(t, ws)
			switch f.Type {
			case frameSend:
				var d sendData
				_ = json.Unmarshal(f.Data, &d)
				res := sendResultData{ID: d.ID}
				if d.Text == "reject me" {
					res.Error = "not on whatsapp"
				}
				writeFrame(t, ws, frameSendResult, res)
			case frameCredsAck:
				var d credsAckData
				_ = json.Unmarshal(f.Data, &d)
				acks <- d.Seq
			default:
				return
			}
		}
	})

	tr := newTestTransport(t, wsURL(srv), nil)
	c, err := tr.Connect(context.Background(), domain.NewCredentials())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())
	ctx := context.Background()

	id, err := c.Send(ctx, "94711111111@s.whatsapp.net", domain.OutboundMessage{Text: "pong"})
	if err != nil {
		t.Fatal(err)
	}
	if len(id) != 26 {
		t.Errorf("message id = %q, want a ULID", id)
	}

	if _, err := c.Send(ctx, "x@s.whatsapp.net", domain.OutboundMessage{Text: "reject me"}); err == nil {
		t.Error("rejected send should fail")
	}

	if err := c.AckCredentials(ctx, 42); err != nil {
		t.Fatal(err)
	}
	select {
	case seq := <-acks:
		if seq != 42 {
			t.Errorf("ack seq = %d, want 42", seq)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("bridge never saw the ack")
	}
}

func TestTransport_DuplicateSendResultsDoNotStallEvents(t *testing.T) {
	text := ".ping"
	_, srv := newFakeBridge(t, func(ws *websocket.Conn) {
		f := readFrame(t, ws)
		var d sendData
		_ = json.Unmarshal(f.Data, &d)
		for i := 0; i < 3; i++ {
			writeFrame(t, ws, frameSendResult, sendResultData{ID: d.ID})
		}
		writeFrame(t, ws, frameSendResult, sendResultData{ID: "never-sent"})
		writeFrame(t, ws, frameMessagesUpsert, messagesUpsertData{Messages: []wireMessage{
			{ID: "m1", Chat: "94711111111@s.whatsapp.net", Message: &wirePayload{Conversation: &text}},
		}})
		readFrame(t, ws) // wait for the client to close
	})

	tr := newTestTransport(t, wsURL(srv), nil)
	c, err := tr.Connect(context.Background(), domain.NewCredentials())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())

	if _, err := c.Send(context.Background(), "94711111111@s.whatsapp.net", domain.OutboundMessage{Text: "pong"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	batch, ok := nextEvent(t, c.Events()).(domain.MessageBatch)
	if !ok || len(batch.Messages) != 1 || batch.Messages[0].ID != "m1" {
		t.Errorf("event after duplicate results = %#v, want batch with m1", batch)
	}
}

func TestTransport_CloseCodes(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		wantKind domain.ReasonKind
	}{
		{"logged out", closeCodeBase + domain.StatusLoggedOut, domain.ReasonLoggedOut},
		{"replaced", closeCodeBase + domain.StatusConnectionReplaced, domain.ReasonReplaced},
		{"restart required", closeCodeBase + domain.StatusRestartRequired, domain.ReasonTransientNetwork},
		{"bridge going away", websocket.CloseGoingAway, domain.ReasonTransientNetwork},
		{"abrupt close", websocket.CloseInternalServerErr, domain.ReasonTransientNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, srv := newFakeBridge(t, func(ws *websocket.Conn) {
				msg := websocket.FormatCloseMessage(tt.code, "bye")
				_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
				readFrame(t, ws)
			})

			c, err := newTestTransport(t, wsURL(srv), nil).Connect(context.Background(), domain.NewCredentials())
			if err != nil {
				t.Fatal(err)
			}
			drain(t, c.Events())

			if c.Err() == nil {
				t.Fatal("Err() = nil after remote close")
			}
			if got := domain.ClassifyError(c.Err()).Kind; got != tt.wantKind {
				t.Errorf("classified as %v, want %v (err %v)", got, tt.wantKind, c.Err())
			}
		})
	}
}

func TestTransport_ClientCloseIsClean(t *testing.T) {
	_, srv := newFakeBridge(t, func(ws *websocket.Conn) {
		// Echo the close handshake.
		readFrame(t, ws)
	})

	c, err := newTestTransport(t, wsURL(srv), nil).Connect(context.Background(), domain.NewCredentials())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Close(ctx); err != nil {
		t.Fatal(err)
	}
	drain(t, c.Events())
	if err := c.Err(); err != nil {
		t.Errorf("Err() after own close = %v, want nil", err)
	}
	if _, err := c.Send(ctx, "x@s.whatsapp.net", domain.OutboundMessage{Text: "late"}); !errors.Is(err, ErrClosed) {
		t.Errorf("Send() after close = %v, want ErrClosed", err)
	}
}

func TestTransport_RejectedHandshake(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "device removed", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := newTestTransport(t, wsURL(srv), nil).Connect(context.Background(), domain.NewCredentials())
	var ce *domain.CloseError
	if !errors.As(err, &ce) || ce.Code != http.StatusUnauthorized {
		t.Fatalf("Connect() error = %v, want CloseError 401", err)
	}
	if domain.ClassifyError(err).Kind != domain.ReasonLoggedOut {
		t.Error("401 handshake should classify as logged out")
	}
}

func TestTransport_PairingByCode(t *testing.T) {
	bridge, srv := newFakeBridge(t, func(ws *websocket.Conn) {
		writeFrame(t, ws, frameConnectionUpdate, connectionUpdateData{PairingCode: "ABCD-1234"})
		readFrame(t, ws)
	})

	tr := newTestTransport(t, wsURL(srv), func(c *Config) {
		c.PairingMethod = PairingCode
		c.PairingPhone = "94718461889"
	})
	c, err := tr.Connect(context.Background(), domain.NewCredentials())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(context.Background())

	hello := <-bridge.hello
	if hello.PairingMethod != PairingCode || hello.PairingPhone != "94718461889" {
		t.Errorf("hello = %+v", hello)
	}
	u, ok := nextEvent(t, c.Events()).(domain.ConnectionUpdate)
	if !ok || u.Phase != domain.PhasePairing || u.PairingCode != "ABCD-1234" {
		t.Errorf("event = %#v, want pairing code", u)
	}
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.URL = "" }},
		{"code without phone", func(c *Config) { c.PairingMethod = PairingCode }},
		{"unknown pairing", func(c *Config) { c.PairingMethod = "nfc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if _, err := New(cfg, testLogger()); err == nil {
				t.Error("expected error")
			}
		})
	}
}
