package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/lawnchairsociety/tiledwfc/internal/config"
	"github.com/lawnchairsociety/tiledwfc/internal/generator"
	"github.com/lawnchairsociety/tiledwfc/internal/store"
	"github.com/lawnchairsociety/tiledwfc/internal/tileset"
	"github.com/lawnchairsociety/tiledwfc/internal/wfc"
)

const grassYAML = `name: grass
tiles:
  - {name: grass}
neighbors:
  - {left: grass, right: grass}
`

const pipesYAML = `name: pipes
tiles:
  - {name: empty, symmetry: X, weight: 4}
  - {name: line, symmetry: I, weight: 2}
  - {name: cross, symmetry: X, weight: 0.5}
neighbors:
  - {left: empty, right: empty}
  - {left: empty, right: line 1}
  - {left: line 1, right: line 1}
  - {left: line, right: line}
  - {left: line, right: cross}
  - {left: cross, right: cross}
`

func testLibrary(t *testing.T) tileset.Library {
	t.Helper()
	lib := make(tileset.Library)
	for _, src := range []string{grassYAML, pipesYAML} {
		ts, err := tileset.ParseYAML([]byte(src))
		if err != nil {
			t.Fatalf("ParseYAML() error = %v", err)
		}
		lib[ts.Name] = ts
	}
	return lib
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Generator.Width = 4
	cfg.Generator.Height = 3
	cfg.Generator.ProgressEvery = 1
	cfg.Tilesets.Default = "grass"
	cfg.Server.MaxCells = 64
	return cfg
}

func startServer(t *testing.T, srv *Server) *httptest.Server {
	t.Helper()
	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)
	return hs
}

func dial(t *testing.T, hs *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// roundTrip sends req and collects messages up to the final result or error.
func roundTrip(t *testing.T, conn *websocket.Conn, req any) ([]Message, Message) {
	t.Helper()
	if err := conn.WriteJSON(req); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}
	var progress []Message
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if msg.Type != MessageProgress {
			return progress, msg
		}
		progress = append(progress, msg)
	}
}

func TestHealthz(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))

	resp, err := http.Get(hs.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz error = %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestTilesets(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))

	resp, err := http.Get(hs.URL + "/tilesets")
	if err != nil {
		t.Fatalf("GET /tilesets error = %v", err)
	}
	defer resp.Body.Close()

	var names []string
	if err := json.NewDecoder(resp.Body).Decode(&names); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !slices.Equal(names, []string{"grass", "pipes"}) {
		t.Errorf("tilesets = %v, want [grass pipes]", names)
	}
}

func TestGenerateDefaultTileset(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))
	conn := dial(t, hs)

	_, msg := roundTrip(t, conn, Request{Seed: "meadow"})
	if msg.Type != MessageResult {
		t.Fatalf("message = %+v, want result", msg)
	}

	res := msg.Result
	if res.Tileset != "grass" || res.Status != "resolved" || res.Attempts != 1 {
		t.Errorf("result = %+v", res)
	}
	if res.Seed != wfc.ParseSeed("meadow").String() {
		t.Errorf("Seed = %s, want hash of phrase", res.Seed)
	}
	if len(res.Observed) != 12 {
		t.Fatalf("len(Observed) = %d, want 12", len(res.Observed))
	}
	wantText := strings.Repeat(strings.Repeat("grass 0, ", 4)+"\n", 3)
	if res.Text != wantText {
		t.Errorf("Text = %q, want %q", res.Text, wantText)
	}
	if res.RunID != 0 {
		t.Errorf("RunID = %d without a store", res.RunID)
	}
}

func TestGenerateProgressAndDeterminism(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))
	conn := dial(t, hs)

	req := Request{Tileset: "pipes", Width: 5, Height: 5, Seed: "same"}
	progress1, final1 := roundTrip(t, conn, req)
	progress2, final2 := roundTrip(t, conn, req)

	if len(progress1) == 0 {
		t.Fatal("expected progress messages with progress_every 1")
	}
	for _, p := range progress1 {
		if p.Progress.Cells != 25 || p.Progress.Collapsed > 25 {
			t.Errorf("progress = %+v", p.Progress)
		}
	}
	if len(progress1) != len(progress2) {
		t.Errorf("progress counts differ: %d vs %d", len(progress1), len(progress2))
	}
	if final1.Type != final2.Type {
		t.Fatalf("final types differ: %s vs %s", final1.Type, final2.Type)
	}
	if final1.Type == MessageResult {
		if final1.Result.Seed != final2.Result.Seed || !slices.Equal(final1.Result.Observed, final2.Result.Observed) {
			t.Error("same seed produced different results")
		}
	}
}

func TestGenerateErrors(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))
	conn := dial(t, hs)

	tests := []struct {
		name string
		req  any
		want string
	}{
		{"unknown tileset", Request{Tileset: "lava"}, "not found"},
		{"too large", Request{Width: 10, Height: 10}, "max_cells"},
		{"negative size", Request{Width: -1}, "invalid config"},
		{"bad json", json.RawMessage(`"width"`), "invalid request"},
	}
	for _, tt := range tests {
		_, msg := roundTrip(t, conn, tt.req)
		if msg.Type != MessageError || !strings.Contains(msg.Error, tt.want) {
			t.Errorf("%s: message = %+v, want error containing %q", tt.name, msg, tt.want)
		}
	}

	// the session survives bad requests
	if _, msg := roundTrip(t, conn, Request{}); msg.Type != MessageResult {
		t.Errorf("after errors: message = %+v, want result", msg)
	}
}

func TestGeneratePersistsRun(t *testing.T) {
	st, err := store.Open(store.DefaultConfig(filepath.Join(t.TempDir(), "runs.db")))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	srv := New(testConfig(), testLibrary(t))
	srv.SetStore(st)
	conn := dial(t, startServer(t, srv))

	_, msg := roundTrip(t, conn, Request{Seed: "saved"})
	if msg.Type != MessageResult || msg.Result.RunID == 0 {
		t.Fatalf("message = %+v, want result with run id", msg)
	}

	run, err := st.GetRun(msg.Result.RunID)
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if run.Tileset != "grass" || run.Seed != msg.Result.Seed || !slices.Equal(run.Observed, msg.Result.Observed) {
		t.Errorf("run = %+v", run)
	}

	// the same seed reproduces the same grid, which is stored once
	_, again := roundTrip(t, conn, Request{Seed: "saved"})
	if again.Result == nil || again.Result.RunID != msg.Result.RunID {
		t.Errorf("repeated run id = %+v, want %d", again.Result, msg.Result.RunID)
	}
	counts, err := st.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus() error = %v", err)
	}
	if counts["resolved"] != 1 {
		t.Errorf("CountByStatus() = %v, want one resolved run", counts)
	}
}

func TestRunEndpoints(t *testing.T) {
	st, err := store.Open(store.DefaultConfig(filepath.Join(t.TempDir(), "runs.db")))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer st.Close()

	srv := New(testConfig(), testLibrary(t))
	srv.SetStore(st)
	hs := startServer(t, srv)
	conn := dial(t, hs)

	_, first := roundTrip(t, conn, Request{Seed: "one"})
	_, second := roundTrip(t, conn, Request{Width: 2, Height: 2, Seed: "two"})
	if first.Result == nil || second.Result == nil {
		t.Fatalf("results = %+v, %+v", first, second)
	}

	get := func(path string) *http.Response {
		t.Helper()
		resp, err := http.Get(hs.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		t.Cleanup(func() { resp.Body.Close() })
		return resp
	}

	var runs []store.Run
	if err := json.NewDecoder(get("/runs").Body).Decode(&runs); err != nil {
		t.Fatalf("Decode(/runs) error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != second.Result.RunID {
		t.Errorf("/runs = %+v, want newest first", runs)
	}

	runs = nil
	if err := json.NewDecoder(get("/runs?tileset=pipes").Body).Decode(&runs); err != nil {
		t.Fatalf("Decode(/runs?tileset=pipes) error = %v", err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("/runs?tileset=pipes = %v, want an empty list", runs)
	}

	var run store.Run
	path := "/runs/" + strconv.FormatInt(first.Result.RunID, 10)
	if err := json.NewDecoder(get(path).Body).Decode(&run); err != nil {
		t.Fatalf("Decode(%s) error = %v", path, err)
	}
	if run.Seed != first.Result.Seed || !slices.Equal(run.Observed, first.Result.Observed) {
		t.Errorf("%s = %+v", path, run)
	}

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/runs?limit=0", http.StatusBadRequest},
		{http.MethodGet, "/runs/abc", http.StatusBadRequest},
		{http.MethodGet, "/runs/9999", http.StatusNotFound},
		{http.MethodDelete, path, http.StatusNoContent},
		{http.MethodGet, path, http.StatusNotFound},
		{http.MethodDelete, path, http.StatusNotFound},
	}
	for _, tc := range tests {
		req, _ := http.NewRequest(tc.method, hs.URL+tc.path, nil)
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("%s %s error = %v", tc.method, tc.path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != tc.want {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.path, resp.StatusCode, tc.want)
		}
	}

	resp := get("/healthz")
	var body struct {
		Status string         `json:"status"`
		Runs   map[string]int `json:"runs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode(/healthz) error = %v", err)
	}
	if body.Status != "ok" || body.Runs["resolved"] != 1 {
		t.Errorf("/healthz = %+v, want one resolved run left", body)
	}
}

func TestRunEndpointsWithoutStore(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))
	for _, path := range []string{"/runs", "/runs/1"} {
		resp, err := http.Get(hs.URL + path)
		if err != nil {
			t.Fatalf("GET %s error = %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))
	conn := dial(t, hs)
	roundTrip(t, conn, Request{})

	resp, err := http.Get(hs.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	for _, name := range []string{
		`tiledwfc_solver_solves_total{status="resolved",tileset="grass"} 1`,
		`tiledwfc_generator_runs_total{outcome="solved",tileset="grass"} 1`,
		`tiledwfc_server_active_sessions 1`,
	} {
		if !strings.Contains(string(body), name) {
			t.Errorf("/metrics missing %q", name)
		}
	}
}

func TestOriginRejected(t *testing.T) {
	hs := startServer(t, New(testConfig(), testLibrary(t)))
	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if !errors.Is(err, websocket.ErrBadHandshake) {
		t.Fatalf("Dial() error = %v, want ErrBadHandshake", err)
	}
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want 403", resp.StatusCode)
	}
}

func TestSessionLimitEnforced(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Connections = config.ConnectionsConfig{MaxTotal: 1}
	hs := startServer(t, New(cfg, testLibrary(t)))

	dial(t, hs)

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("second session should be rejected")
	}
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("response = %v, want 429", resp)
	}
}

func TestPrepareDefaults(t *testing.T) {
	srv := New(testConfig(), testLibrary(t))

	limit := 7
	j, err := srv.prepare(Request{Tileset: "pipes", Height: 2, Limit: &limit, Attempts: 3, Periodic: true})
	if err != nil {
		t.Fatalf("prepare() error = %v", err)
	}
	want := generator.Config{Width: 4, Height: 2, Limit: 7, MaxAttempts: 3, Periodic: true, ProgressEvery: 1}
	if j.config != want {
		t.Errorf("config = %+v, want %+v", j.config, want)
	}
	if j.model.VariantCount() != 4 {
		t.Errorf("VariantCount() = %d, want 4", j.model.VariantCount())
	}

	again, _ := srv.prepare(Request{Tileset: "pipes"})
	if again.model != j.model {
		t.Error("compiled model should be cached")
	}
	if again.seed == j.seed {
		t.Error("empty seeds should be randomized")
	}
	tests := []struct {
		width, height int
		wantErr       bool
	}{
		{width: 9, height: 9, wantErr: true},
		{width: 16, height: 4, wantErr: false},
		{width: 17, height: 4, wantErr: true},
		{width: 1 << 62, height: 4, wantErr: true},
		{width: 4, height: 1 << 62, wantErr: true},
	}
	for _, tc := range tests {
		_, err := srv.prepare(Request{Width: tc.width, Height: tc.height})
		if tc.wantErr && !errors.Is(err, ErrTooLarge) {
			t.Errorf("prepare(%dx%d) error = %v, want ErrTooLarge", tc.width, tc.height, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("prepare(%dx%d) error = %v, want nil", tc.width, tc.height, err)
		}
	}
}
