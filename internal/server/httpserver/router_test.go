package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yndnr/tabsess-go/internal/core/domain"
	"github.com/yndnr/tabsess-go/internal/core/service"
	"github.com/yndnr/tabsess-go/internal/storage"
	"github.com/yndnr/tabsess-go/internal/storage/catalog"
	"github.com/yndnr/tabsess-go/internal/storage/memory"
	"github.com/yndnr/tabsess-go/internal/storage/snapshot"
	"github.com/yndnr/tabsess-go/internal/telemetry/metric"
)

func newTestRouter(t *testing.T) (http.Handler, string) {
	t.Helper()

	codec, err := snapshot.NewCodec(snapshot.Config{})
	if err != nil {
		t.Fatal(err)
	}
	cache := memory.NewCache(time.Hour)
	t.Cleanup(func() { _ = cache.Close() })

	store := storage.NewSessionStore(cache, codec, nil)
	cat := catalog.New(cache, codec)
	svc := service.NewSessionService(store, cat, nil, service.Config{})

	id, err := domain.GenerateDatasetID()
	if err != nil {
		t.Fatal(err)
	}
	ds := &domain.Dataset{ID: id, Name: "nums", OwnerID: "user-1", CreatedAt: time.Now().UnixMilli()}
	frame := &domain.Frame{Columns: []domain.Column{
		{Name: "n", Type: domain.TypeInt64, Values: []domain.Value{domain.Int64Value(1)}},
	}}
	if err := cat.Register(context.Background(), ds, frame); err != nil {
		t.Fatal(err)
	}

	router := NewRouter(&RouterConfig{
		SessionService: svc,
		Catalog:        cat,
		Metrics:        metric.New(),
		Logger:         discardLogger(),
	})
	return router, ds.ID
}

func TestRouterEndToEnd(t *testing.T) {
	router, datasetID := newTestRouter(t)

	do := func(method, path string, body any) *httptest.ResponseRecorder {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			if err := json.NewEncoder(&buf).Encode(body); err != nil {
				t.Fatal(err)
			}
		}
		req := httptest.NewRequest(method, path, &buf)
		req.Header.Set("X-User-ID", "user-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	// Open a session through the full middleware chain.
	rec := do(http.MethodPost, "/sessions", map[string]string{"dataset_id": datasetID})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /sessions = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("response lacks X-Request-ID")
	}

	var envelope struct {
		Data struct {
			SessionID string `json:"session_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatal(err)
	}
	sid := envelope.Data.SessionID

	// Exercise all session routes.
	if rec := do(http.MethodGet, "/sessions/"+sid, nil); rec.Code != http.StatusOK {
		t.Errorf("GET /sessions/{id} = %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/sessions/"+sid+"/operations", map[string]any{
		"type":   "rename_column",
		"params": map[string]string{"column": "n", "new_name": "m"},
	}); rec.Code != http.StatusOK {
		t.Errorf("POST operations = %d, body %s", rec.Code, rec.Body.String())
	}
	if rec := do(http.MethodPost, "/sessions/"+sid+"/undo", nil); rec.Code != http.StatusOK {
		t.Errorf("POST undo = %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/sessions/"+sid+"/redo", nil); rec.Code != http.StatusOK {
		t.Errorf("POST redo = %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/sessions/"+sid+"/history", nil); rec.Code != http.StatusOK {
		t.Errorf("GET history = %d", rec.Code)
	}
	if rec := do(http.MethodPost, "/sessions/"+sid+"/close", nil); rec.Code != http.StatusOK {
		t.Errorf("POST close = %d", rec.Code)
	}

	// Probe and metrics endpoints.
	if rec := do(http.MethodGet, "/health", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d", rec.Code)
	}
	if rec := do(http.MethodGet, "/metrics", nil); rec.Code != http.StatusOK {
		t.Errorf("GET /metrics = %d", rec.Code)
	}
	if !bytes.Contains(do(http.MethodGet, "/metrics", nil).Body.Bytes(), []byte("tabsess_http_requests_total")) {
		t.Error("metrics exposition lacks request counters")
	}
}

func TestRouterUnknownRoute(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
