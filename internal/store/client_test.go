package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dgallion1/jobtrail/internal/applications"
)

type recorded struct {
	method string
	path   string
	query  map[string]string
	prefer string
	body   map[string]any
}

func newBackend(t *testing.T, status int, response string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "svc-key" || r.Header.Get("Authorization") != "Bearer svc-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		rec := recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  map[string]string{},
			prefer: r.Header.Get("Prefer"),
		}
		for k, v := range r.URL.Query() {
			rec.query[k] = v[0]
		}
		if data, _ := io.ReadAll(r.Body); len(data) > 0 {
			json.Unmarshal(data, &rec.body)
		}
		calls = append(calls, rec)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, response)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestClient_InsertApplication(t *testing.T) {
	srv, calls := newBackend(t, http.StatusCreated, `[{"id":"a1","user_id":"u1","company":"Acme","role":"SRE","status":"applied"}]`)
	c := NewClient(srv.URL+"/", "svc-key")

	app, err := c.InsertApplication(context.Background(), &applications.Application{
		ID: "a1", UserID: "u1", Company: "Acme", Role: "SRE", Status: applications.StatusApplied,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if app.ID != "a1" || app.Company != "Acme" {
		t.Errorf("unexpected app %+v", app)
	}

	got := (*calls)[0]
	if got.method != http.MethodPost || got.path != "/rest/v1/applications" {
		t.Errorf("unexpected request %s %s", got.method, got.path)
	}
	if got.prefer != "return=representation" {
		t.Errorf("expected representation preference, got %q", got.prefer)
	}
	if got.body["company"] != "Acme" {
		t.Errorf("expected company in body, got %v", got.body)
	}
}

func TestClient_GetApplicationFilters(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `[{"id":"a1","user_id":"u1"}]`)
	c := NewClient(srv.URL, "svc-key")

	if _, err := c.GetApplication(context.Background(), "u1", "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	q := (*calls)[0].query
	if q["id"] != "eq.a1" || q["user_id"] != "eq.u1" || q["limit"] != "1" {
		t.Errorf("unexpected filters %v", q)
	}
}

func TestClient_GetApplicationMissing(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `[]`)
	c := NewClient(srv.URL, "svc-key")

	_, err := c.GetApplication(context.Background(), "u1", "nope")
	if !errors.Is(err, applications.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestClient_ListApplications(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `[{"id":"a2"},{"id":"a1"}]`)
	c := NewClient(srv.URL, "svc-key")

	rows, err := c.ListApplications(context.Background(), "u1", applications.ListFilter{
		Status: applications.StatusOffer,
		Limit:  20,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	q := (*calls)[0].query
	if q["status"] != "eq.offer" || q["order"] != "created_at.desc" || q["limit"] != "20" {
		t.Errorf("unexpected query %v", q)
	}
}

func TestClient_ListApplicationsEmptyIsNotNil(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `[]`)
	c := NewClient(srv.URL, "svc-key")
	rows, err := c.ListApplications(context.Background(), "u1", applications.ListFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows == nil {
		t.Error("expected non-nil empty slice")
	}
}

func TestClient_UpdateApplicationMissing(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `[]`)
	c := NewClient(srv.URL, "svc-key")

	_, err := c.UpdateApplication(context.Background(), &applications.Application{ID: "a1", UserID: "u1"})
	if !errors.Is(err, applications.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if (*calls)[0].method != http.MethodPatch {
		t.Errorf("expected PATCH, got %s", (*calls)[0].method)
	}
}

func TestClient_DeleteApplication(t *testing.T) {
	srv, calls := newBackend(t, http.StatusOK, `[{"id":"a1"}]`)
	c := NewClient(srv.URL, "svc-key")

	if err := c.DeleteApplication(context.Background(), "u1", "a1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if (*calls)[0].method != http.MethodDelete {
		t.Errorf("expected DELETE, got %s", (*calls)[0].method)
	}
}

func TestClient_InsertEventNoContent(t *testing.T) {
	srv, calls := newBackend(t, http.StatusCreated, ``)
	c := NewClient(srv.URL, "svc-key")

	err := c.InsertEvent(context.Background(), &applications.Event{ID: "01J", ApplicationID: "a1", UserID: "u1", Type: "created"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := (*calls)[0]
	if got.path != "/rest/v1/application_events" || got.prefer != "return=minimal" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestClient_StatusError(t *testing.T) {
	srv, _ := newBackend(t, http.StatusConflict, `{"message":"duplicate key"}`)
	c := NewClient(srv.URL, "svc-key")

	_, err := c.ListEvents(context.Background(), "u1", "a1", 10)
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if se.StatusCode != http.StatusConflict || se.Table != eventsTable {
		t.Errorf("unexpected status error %+v", se)
	}
}

func TestClient_WrongKeyRejected(t *testing.T) {
	srv, _ := newBackend(t, http.StatusOK, `[]`)
	c := NewClient(srv.URL, "other-key")

	_, err := c.GetApplication(context.Background(), "u1", "a1")
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 status error, got %v", err)
	}
}

func TestClient_HTTP404IsNotFound(t *testing.T) {
	srv, _ := newBackend(t, http.StatusNotFound, `{"message":"not found"}`)
	c := NewClient(srv.URL, "svc-key")

	_, err := c.GetApplication(context.Background(), "u1", "a1")
	if !errors.Is(err, applications.ErrNotFound) {
		t.Errorf("get: expected ErrNotFound, got %v", err)
	}
	if err := c.DeleteApplication(context.Background(), "u1", "a1"); !errors.Is(err, applications.ErrNotFound) {
		t.Errorf("delete: expected ErrNotFound, got %v", err)
	}
}
