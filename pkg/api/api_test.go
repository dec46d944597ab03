package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/marmos91/ransched/pkg/sched"
)

func testRouter(t *testing.T) (http.Handler, *sched.Scheduler) {
	t.Helper()
	s, err := sched.New(sched.Config{})
	if err != nil {
		t.Fatalf("sched.New: %v", err)
	}
	if err := s.CellCfg([]sched.CellConfig{sched.DefaultCellConfig()}); err != nil {
		t.Fatalf("CellCfg: %v", err)
	}
	return NewRouter(s), s
}

func TestHealthEndpoints(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("GET /health/ready = %d", rec.Code)
	}
}

func TestUELifecycleOverAPI(t *testing.T) {
	r, s := testRouter(t)

	body := `{"rnti": "0x46", "carriers": [true]}`
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ues", strings.NewReader(body)))
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/v1/ues = %d: %s", rec.Code, rec.Body)
	}
	if s.NumUEs() != 1 {
		t.Fatalf("NumUEs = %d, want 1", s.NumUEs())
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ues/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/ues = %d", rec.Code)
	}
	var ues []sched.UEInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &ues); err != nil {
		t.Fatalf("list decode: %v", err)
	}
	if len(ues) != 1 || ues[0].RNTI != 0x46 {
		t.Errorf("ues = %+v", ues)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/ues/0x46", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("DELETE = %d", rec.Code)
	}
}

func TestUEValidationOverAPI(t *testing.T) {
	r, _ := testRouter(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"bad rnti", `{"rnti": "zz", "carriers": [true]}`, http.StatusBadRequest},
		{"unknown cell", `{"rnti": "0x46", "carriers": [true, true]}`, http.StatusBadRequest},
		{"no carriers", `{"rnti": "0x46", "carriers": []}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/ues", strings.NewReader(tt.body)))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/stats = %d", rec.Code)
	}
	var stats sched.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("stats decode: %v", err)
	}
	if stats.NumCells != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
