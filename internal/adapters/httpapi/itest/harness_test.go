package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/peraluna/trip-planner-api/internal/adapters/cache/workingset"
	"github.com/peraluna/trip-planner-api/internal/adapters/httpapi"
	memassistant "github.com/peraluna/trip-planner-api/internal/adapters/memory/assistant"
	memclock "github.com/peraluna/trip-planner-api/internal/adapters/memory/clock"
	memevents "github.com/peraluna/trip-planner-api/internal/adapters/memory/events"
	memidempotency "github.com/peraluna/trip-planner-api/internal/adapters/memory/idempotency"
	memtriprepo "github.com/peraluna/trip-planner-api/internal/adapters/memory/triprepo"
	pgidempotency "github.com/peraluna/trip-planner-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/peraluna/trip-planner-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/peraluna/trip-planner-api/internal/adapters/postgres/triprepo"
	"github.com/peraluna/trip-planner-api/internal/app/assistant"
	"github.com/peraluna/trip-planner-api/internal/app/trips"
	"github.com/peraluna/trip-planner-api/internal/platform/logging"
	"github.com/peraluna/trip-planner-api/internal/platform/metrics"
	idempotencyport "github.com/peraluna/trip-planner-api/internal/ports/out/idempotency"
	triprepoport "github.com/peraluna/trip-planner-api/internal/ports/out/triprepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type serverOptions struct {
	// wrap lets a test put a fault-injecting store in front of the backend.
	wrap    func(triprepoport.Repository) triprepoport.Repository
	replies [][]string
}

type testServer struct {
	baseURL string
	client  *http.Client
	trips   *trips.Service
	events  *memevents.Recorder
}

func newTestServer(t *testing.T, b backend, opts serverOptions) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC))

	var (
		tripRepo  triprepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		tripRepo = pgtriprepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		tripRepo = memtriprepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}
	if opts.wrap != nil {
		tripRepo = opts.wrap(tripRepo)
	}

	log := logging.Discard()
	m := metrics.New()
	rec := memevents.NewRecorder()
	tripSvc := trips.NewService(tripRepo, clk,
		trips.WithWorkingSet(workingset.New(time.Hour, time.Minute)),
		trips.WithPublisher(rec),
		trips.WithRecorder(m),
		trips.WithLogger(log),
	)
	asst := assistant.NewService(tripSvc, memassistant.NewScripted(opts.replies...),
		assistant.WithRecorder(m), assistant.WithLogger(log))
	api := httpapi.NewServer(tripSvc, asst, idemStore, clk, log)

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// The empty default subject means requests MUST provide X-Debug-Subject.
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		AuthMiddleware: httpapi.NewDevAuthMiddleware(""),
		Logger:         log,
		CORSOrigins:    []string{"http://localhost:5173"},
		Metrics:        m.Handler(),
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		trips:   tripSvc,
		events:  rec,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
