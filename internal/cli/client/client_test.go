package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		serverURL string
		wantErr   bool
		wantBase  string
	}{
		{
			name:      "valid URL",
			serverURL: "http://localhost:8125",
			wantBase:  "http://localhost:8125",
		},
		{
			name:      "trailing slash stripped",
			serverURL: "http://localhost:8125/",
			wantBase:  "http://localhost:8125",
		},
		{
			name:      "empty URL",
			serverURL: "",
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.serverURL, 0)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if c.baseURL != tt.wantBase {
				t.Errorf("expected base URL %q, got %q", tt.wantBase, c.baseURL)
			}
		})
	}
}

func TestListDueAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/alerts/due" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "5" {
			t.Errorf("expected limit=5, got %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "clausewatch-cli/1.0" {
			t.Errorf("unexpected user agent %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":[
			{"id":1,"contract_id":"c-1","kind":"risk_high","severity":9,"status":"open"},
			{"id":2,"contract_id":"c-2","kind":"renewal_notice","severity":4,"status":"failed"}
		]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	alerts, err := c.ListDueAlerts(context.Background(), 5)
	if err != nil {
		t.Fatalf("ListDueAlerts failed: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].ID != 1 || alerts[0].ContractID != "c-1" || alerts[0].Severity != 9 {
		t.Errorf("unexpected first alert: %+v", alerts[0])
	}
}

func TestDispatchNow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/api/v1/alerts/dispatch" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"sent":3}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	sent, err := c.DispatchNow(context.Background())
	if err != nil {
		t.Fatalf("DispatchNow failed: %v", err)
	}
	if sent != 3 {
		t.Errorf("expected 3 sent, got %d", sent)
	}
}

func TestDispatchNow_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"status":"error","message":"a dispatch run is already in progress","error_type":"conflict"}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	_, err = c.DispatchNow(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusConflict {
		t.Errorf("expected status 409, got %d", apiErr.StatusCode)
	}
	if apiErr.ErrorType != "conflict" {
		t.Errorf("expected conflict error type, got %q", apiErr.ErrorType)
	}
	want := "conflict: a dispatch run is already in progress"
	if apiErr.Error() != want {
		t.Errorf("expected error string %q, got %q", want, apiErr.Error())
	}
}

func TestListContractAlerts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/contracts/c-1/alerts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("status"); got != "dead" {
			t.Errorf("expected status=dead, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":[{"id":7,"contract_id":"c-1","kind":"risk_high","severity":10,"status":"dead"}]}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	alerts, err := c.ListContractAlerts(context.Background(), "c-1", "dead")
	if err != nil {
		t.Fatalf("ListContractAlerts failed: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Status != "dead" {
		t.Errorf("unexpected alerts: %+v", alerts)
	}
}

func TestGetMeta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/meta" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"version":"1.2.0","alerts_enabled":true,"dispatch_interval":"1m0s","severity_threshold":8,"dispatch_batch_limit":50}}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	meta, err := c.GetMeta(context.Background())
	if err != nil {
		t.Fatalf("GetMeta failed: %v", err)
	}
	if meta.Version != "1.2.0" || !meta.AlertsEnabled || meta.SeverityThreshold != 8 {
		t.Errorf("unexpected meta: %+v", meta)
	}
}

func TestDoJSON_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	err = c.DoJSON(context.Background(), RequestOptions{Method: http.MethodGet, Path: "/api/v1/meta"}, nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", apiErr.StatusCode)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Errorf("expected raw body as message, got %q", apiErr.Message)
	}
}

func TestDo_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, err := c.ListDueAlerts(ctx, 0); err == nil {
		t.Error("expected error after context timeout")
	}
}
