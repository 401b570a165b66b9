package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/parleyhq/parley/internal/brain"
	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/observability"
	"github.com/parleyhq/parley/internal/store"
	"github.com/parleyhq/parley/internal/transcript"
)

type stubBrain struct {
	reply string
	err   error
}

func (b *stubBrain) Complete(_ context.Context, _ brain.CompletionRequest) (brain.CompletionResponse, error) {
	if b.err != nil {
		return brain.CompletionResponse{}, b.err
	}
	return brain.CompletionResponse{Text: b.reply}, nil
}

func newTestServer(t *testing.T, cl brain.Client) *httptest.Server {
	t.Helper()
	manager := transcript.NewManager(transcript.Config{Model: "test-model"}, store.NewMemoryStore(), cl, nil)
	srv := New(config.Config{}, manager, nil)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func postChat(t *testing.T, ts *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	res, err := http.Post(ts.URL+"/v1/chat", "application/json", bytes.NewReader([]byte(body)))
	if err != nil {
		t.Fatalf("POST /v1/chat error = %v", err)
	}
	t.Cleanup(func() { res.Body.Close() })

	var decoded map[string]any
	if err := json.NewDecoder(res.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return res, decoded
}

func TestChatTurnRoundTrip(t *testing.T) {
	ts := newTestServer(t, &stubBrain{reply: "SYN, SYN-ACK, ACK"})

	res, body := postChat(t, ts, `{"sessionId":"s1","message":"Explain TCP handshakes"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	if body["reply"] != "SYN, SYN-ACK, ACK" {
		t.Fatalf("reply = %v, want the backend text", body["reply"])
	}
	history, ok := body["history"].([]any)
	if !ok || len(history) != 3 {
		t.Fatalf("history = %v, want 3 turns", body["history"])
	}
	first, _ := history[0].(map[string]any)
	if first["role"] != "instruction" {
		t.Fatalf("history[0].role = %v, want instruction", first["role"])
	}

	res, body = postChat(t, ts, `{"sessionId":"s1","message":"and UDP?"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("second turn status = %d, want %d", res.StatusCode, http.StatusOK)
	}
	history, _ = body["history"].([]any)
	if len(history) != 5 {
		t.Fatalf("second turn history = %d turns, want 5", len(history))
	}
}

func TestChatValidationReasons(t *testing.T) {
	cases := []struct {
		name       string
		body       string
		wantReason string
	}{
		{"missing sessionId", `{"message":"hi"}`, "missing or invalid sessionId"},
		{"non-string sessionId", `{"sessionId":42,"message":"hi"}`, "missing or invalid sessionId"},
		{"blank sessionId", `{"sessionId":"  ","message":"hi"}`, "missing or invalid sessionId"},
		{"missing message", `{"sessionId":"s1"}`, "missing or invalid message"},
		{"non-string message", `{"sessionId":"s1","message":[1]}`, "missing or invalid message"},
		{"blank message", `{"sessionId":"s1","message":"   "}`, "missing or invalid message"},
		{"empty body", ``, "missing or invalid sessionId"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, &stubBrain{reply: "ok"})
			res, body := postChat(t, ts, tc.body)
			if res.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusBadRequest)
			}
			if body["error"] != tc.wantReason {
				t.Fatalf("error = %v, want %q", body["error"], tc.wantReason)
			}
		})
	}
}

func TestChatInferenceFailureIsOpaque(t *testing.T) {
	ts := newTestServer(t, &stubBrain{err: errors.New("model exploded: secret internals")})

	res, body := postChat(t, ts, `{"sessionId":"s1","message":"hi"}`)
	if res.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusInternalServerError)
	}
	if body["error"] != "internal error" {
		t.Fatalf("error = %v, want opaque message", body["error"])
	}
	if strings.Contains(body["error"].(string), "secret") {
		t.Fatalf("internal detail leaked to the caller: %v", body["error"])
	}
}

func TestCreateSessionMintsID(t *testing.T) {
	ts := newTestServer(t, &stubBrain{reply: "ok"})

	res, err := http.Post(ts.URL+"/v1/session", "application/json", nil)
	if err != nil {
		t.Fatalf("POST /v1/session error = %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d", res.StatusCode, http.StatusCreated)
	}

	var body sessionResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if strings.TrimSpace(body.SessionID) == "" {
		t.Fatalf("sessionId should not be empty")
	}
}

func TestHealthAndUIRoutes(t *testing.T) {
	ts := newTestServer(t, &stubBrain{reply: "ok"})

	res, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	rootRes, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	rootRes.Body.Close()
	if rootRes.StatusCode != http.StatusTemporaryRedirect {
		t.Fatalf("root status = %d, want %d", rootRes.StatusCode, http.StatusTemporaryRedirect)
	}
	if loc := rootRes.Header.Get("Location"); loc != "/ui/" {
		t.Fatalf("root redirect = %q, want %q", loc, "/ui/")
	}

	uiRes, err := http.Get(ts.URL + "/ui/")
	if err != nil {
		t.Fatalf("GET /ui/ error = %v", err)
	}
	uiRes.Body.Close()
	if uiRes.StatusCode != http.StatusOK {
		t.Fatalf("ui status = %d, want %d", uiRes.StatusCode, http.StatusOK)
	}
}

func TestPerfLatencySnapshot(t *testing.T) {
	metrics := observability.NewMetrics("test_httpapi_perf")
	manager := transcript.NewManager(transcript.Config{}, store.NewMemoryStore(), &stubBrain{reply: "ok"}, metrics)
	srv := New(config.Config{}, manager, metrics)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res, _ := postChat(t, ts, `{"sessionId":"s1","message":"hi"}`)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, want %d", res.StatusCode, http.StatusOK)
	}

	perfRes, err := http.Get(ts.URL + "/v1/perf/latency")
	if err != nil {
		t.Fatalf("GET /v1/perf/latency error = %v", err)
	}
	defer perfRes.Body.Close()
	if perfRes.StatusCode != http.StatusOK {
		t.Fatalf("perf status = %d, want %d", perfRes.StatusCode, http.StatusOK)
	}

	var snap observability.StageSnapshot
	if err := json.NewDecoder(perfRes.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	seen := make(map[string]bool)
	for _, s := range snap.Stages {
		seen[s.Stage] = true
	}
	for _, stage := range []string{observability.StageLoad, observability.StageInfer, observability.StagePersist, observability.StageTurn} {
		if !seen[stage] {
			t.Fatalf("stage %q missing from snapshot: %+v", stage, snap.Stages)
		}
	}
}

func TestChatWebSocketTurn(t *testing.T) {
	ts := newTestServer(t, &stubBrain{reply: "pong"})

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/chat/ws"
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("ws dial error = %v", err)
	}
	if res != nil {
		res.Body.Close()
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"sessionId": "s1", "message": "ping"}); err != nil {
		t.Fatalf("ws write error = %v", err)
	}

	var reply chatResponse
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ws read error = %v", err)
	}
	if reply.Reply != "pong" {
		t.Fatalf("ws reply = %q, want %q", reply.Reply, "pong")
	}
	if len(reply.History) != 3 {
		t.Fatalf("ws history = %d turns, want 3", len(reply.History))
	}

	// A malformed frame must produce an error frame, not close the socket.
	if err := conn.WriteJSON(map[string]any{"sessionId": 42, "message": "hi"}); err != nil {
		t.Fatalf("ws write error = %v", err)
	}
	var wsErr errorResponse
	if err := conn.ReadJSON(&wsErr); err != nil {
		t.Fatalf("ws read error = %v", err)
	}
	if wsErr.Code != "invalid_request" {
		t.Fatalf("ws error code = %q, want %q", wsErr.Code, "invalid_request")
	}
}
