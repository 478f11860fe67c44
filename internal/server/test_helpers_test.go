package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"da-vinci/internal/analytics"
	"da-vinci/internal/config"
	"da-vinci/internal/identity"
	"da-vinci/internal/judge"
	"da-vinci/internal/matchmaking"
	"da-vinci/internal/room"
	"da-vinci/internal/schedule"
	"da-vinci/internal/store"
	"da-vinci/internal/words"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const testImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mP8/x8AAwMBAp4pWZkAAAAASUVORK5CYII="

func init() {
	gin.SetMode(gin.TestMode)
}

type stubVision struct {
	reply string
	err   error
}

func (v *stubVision) Describe(context.Context, string, string) (string, error) {
	return v.reply, v.err
}

type testEnv struct {
	ts       *httptest.Server
	cfg      config.Config
	store    *store.Memory
	queue    *matchmaking.Queue
	rooms    *room.Service
	repo     *analytics.Memory
	schedule *schedule.Memory
	vision   *stubVision
	verifier *identity.Verifier
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()
	cfg := config.Default()
	cfg.MaxPlayers = 2
	cfg.JWTSecret = "test-secret"
	cfg.AdminUIDs = []string{"admin"}
	cfg.JudgeRatePerMinute = 100
	if mutate != nil {
		mutate(&cfg)
	}

	st := store.NewMemory()
	windows := schedule.NewMemory()
	gate := schedule.NewGate(windows, time.UTC)
	queue := matchmaking.NewQueue(st, cfg, words.NewStatic([]words.Word{{Theme: "동물", Text: "고양이"}}), gate, nil)
	rooms := room.NewService(st, cfg, nil)
	repo := analytics.NewMemory()
	reports := analytics.NewReports(repo)
	vision := &stubVision{reply: `{"guess": "고양이", "confidence": 0.9}`}
	verifier := identity.NewVerifier(cfg.JWTSecret, cfg.AllowedEmailDomain)

	srv := New(Deps{
		Config:   cfg,
		Store:    st,
		Queue:    queue,
		Rooms:    rooms,
		Judge:    judge.NewService(st, vision, reports, nil),
		Reports:  reports,
		Gate:     gate,
		Verifier: verifier,
		Gatherer: prometheus.NewRegistry(),
	})
	ts := newTestServer(t, srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		list, _ := st.ListRooms(context.Background())
		for _, r := range list {
			rooms.Timers().Cancel(r.ID)
		}
	})
	return &testEnv{
		ts:       ts,
		cfg:      cfg,
		store:    st,
		queue:    queue,
		rooms:    rooms,
		repo:     repo,
		schedule: windows,
		vision:   vision,
		verifier: verifier,
	}
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

func (e *testEnv) token(t *testing.T, uid string) string {
	t.Helper()
	token, err := e.verifier.Issue(identity.Identity{
		UID:         uid,
		DisplayName: "player " + uid,
		Email:       uid + "@example.com",
	}, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return token
}

// matchRoom queues every uid in order and forms a room from them.
func (e *testEnv) matchRoom(t *testing.T, uids ...string) string {
	t.Helper()
	for _, uid := range uids {
		resp := doRequest(t, e.ts, http.MethodPost, "/api/queue", e.token(t, uid), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("join %s: expected status %d, got %d", uid, http.StatusOK, resp.StatusCode)
		}
	}
	created, err := e.queue.ClaimQuorum(context.Background())
	if err != nil {
		t.Fatalf("claim quorum: %v", err)
	}
	return created.ID
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, token string, payload any) *http.Response {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	t.Cleanup(func() {
		_ = resp.Body.Close()
	})
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}
