package app

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ideaforge/api/internal/draft"
	"ideaforge/api/internal/validation"
)

func newTestHTTPServer(t *testing.T, svc *Service) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(NewHTTPServer(svc, "*").Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		payload = nil
	}
	return resp, payload
}

func loginToken(t *testing.T, ts *httptest.Server, name string) string {
	t.Helper()
	resp, payload := doJSON(t, http.MethodPost, ts.URL+"/api/session/login", "", map[string]string{"name": name})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	token, _ := payload["token"].(string)
	if token == "" {
		t.Fatalf("login payload missing token: %+v", payload)
	}
	return token
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	ts := newTestHTTPServer(t, newTestService(newFakeStore(), &fakeScorer{}))

	resp, payload := doJSON(t, http.MethodGet, ts.URL+"/api/health", "", nil)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("health: status=%d payload=%+v", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/api/ready", "", nil)
	if resp.StatusCode != http.StatusOK || payload["status"] != "ready" {
		t.Fatalf("ready: status=%d payload=%+v", resp.StatusCode, payload)
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Fatal("missing X-Request-ID header")
	}
}

func TestIdeaEndpointsRequireAuth(t *testing.T) {
	ts := newTestHTTPServer(t, newTestService(newFakeStore(), &fakeScorer{}))

	resp, payload := doJSON(t, http.MethodGet, ts.URL+"/api/ideas", "", nil)
	if resp.StatusCode != http.StatusUnauthorized || payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected 401 UNAUTHORIZED, got %d %+v", resp.StatusCode, payload)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/ideas", "not-a-token", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", resp.StatusCode)
	}
}

func TestSessionEndpointReportsAuthState(t *testing.T) {
	ts := newTestHTTPServer(t, newTestService(newFakeStore(), &fakeScorer{}))

	resp, payload := doJSON(t, http.MethodGet, ts.URL+"/api/session", "", nil)
	if resp.StatusCode != http.StatusOK || payload["authenticated"] != false {
		t.Fatalf("anonymous session: status=%d payload=%+v", resp.StatusCode, payload)
	}

	token := loginToken(t, ts, "Sarah")
	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/api/session", token, nil)
	if resp.StatusCode != http.StatusOK || payload["authenticated"] != true || payload["userName"] != "Sarah" {
		t.Fatalf("authenticated session: status=%d payload=%+v", resp.StatusCode, payload)
	}
}

func TestIdeaRoutesOverHTTP(t *testing.T) {
	scorer := &fakeScorer{results: []validation.Result{
		{Score: 72, Verdict: validation.VerdictGo},
	}}
	ts := newTestHTTPServer(t, newTestService(newFakeStore(), scorer))
	token := loginToken(t, ts, "Sarah")

	resp, created := doJSON(t, http.MethodPost, ts.URL+"/api/ideas", token, map[string]string{
		"ideaTitle":        "FarmConnect",
		"problemStatement": "Small farmers cannot reach local buyers",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d %+v", resp.StatusCode, created)
	}
	ideaID, _ := created["id"].(string)
	if ideaID == "" {
		t.Fatalf("create payload missing id: %+v", created)
	}

	resp, payload := doJSON(t, http.MethodPut, ts.URL+"/api/ideas/"+ideaID+"/fields", token, map[string]string{
		"field": draft.FieldSolution,
		"value": "Direct-to-buyer marketplace",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("edit status = %d %+v", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodPut, ts.URL+"/api/ideas/"+ideaID+"/fields", token, map[string]string{
		"value": "missing field name",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected 422 VALIDATION_ERROR, got %d %+v", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodPost, ts.URL+"/api/ideas/"+ideaID+"/save", token, nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("save status = %d %+v", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodPost, ts.URL+"/api/ideas/"+ideaID+"/validate", token, map[string]bool{"refinement": false})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("validate status = %d %+v", resp.StatusCode, payload)
	}
	if payload["score"] != float64(72) || payload["verdict"] != "GO" {
		t.Fatalf("validate payload = %+v", payload)
	}

	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/api/ideas/"+ideaID+"/validation", token, nil)
	if resp.StatusCode != http.StatusOK || payload["validated"] != true {
		t.Fatalf("latest validation = %d %+v", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/api/ideas/"+ideaID+"/diff", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("diff status = %d %+v", resp.StatusCode, payload)
	}
	if _, ok := payload["hasChanges"]; !ok {
		t.Fatalf("diff payload missing hasChanges: %+v", payload)
	}

	resp, payload = doJSON(t, http.MethodDelete, ts.URL+"/api/ideas/"+ideaID, token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete status = %d %+v", resp.StatusCode, payload)
	}

	resp, payload = doJSON(t, http.MethodGet, ts.URL+"/api/ideas/"+ideaID, token, nil)
	if resp.StatusCode != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 after delete, got %d %+v", resp.StatusCode, payload)
	}
}

func TestValidateErrorsMapToStatusCodes(t *testing.T) {
	ts := newTestHTTPServer(t, newTestService(newFakeStore(), &fakeScorer{}))
	token := loginToken(t, ts, "Sarah")

	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/ideas", token, map[string]string{
		"ideaTitle": "FarmConnect",
	})
	ideaID := created["id"].(string)

	resp, payload := doJSON(t, http.MethodPost, ts.URL+"/api/ideas/"+ideaID+"/validate", token, nil)
	if resp.StatusCode != http.StatusUnprocessableEntity || payload["code"] != "MISSING_REQUIRED_FIELDS" {
		t.Fatalf("expected 422 MISSING_REQUIRED_FIELDS, got %d %+v", resp.StatusCode, payload)
	}
	if msg, _ := payload["error"].(string); !strings.Contains(msg, "title") {
		t.Fatalf("error message should name the missing fields: %+v", payload)
	}
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	ts := newTestHTTPServer(t, newTestService(newFakeStore(), &fakeScorer{}))
	token := loginToken(t, ts, "Sarah")

	_, created := doJSON(t, http.MethodPost, ts.URL+"/api/ideas", token, map[string]string{"ideaTitle": "FarmConnect"})
	ideaID := created["id"].(string)

	resp, payload := doJSON(t, http.MethodPost, ts.URL+"/api/ideas/"+ideaID+"/export", token, map[string]string{"format": "xlsx"})
	if resp.StatusCode != http.StatusUnprocessableEntity || payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected 422 VALIDATION_ERROR, got %d %+v", resp.StatusCode, payload)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	ts := newTestHTTPServer(t, newTestService(newFakeStore(), &fakeScorer{}))
	token := loginToken(t, ts, "Sarah")

	resp, payload := doJSON(t, http.MethodGet, ts.URL+"/api/nope", token, nil)
	if resp.StatusCode != http.StatusNotFound || payload["code"] != "NOT_FOUND" {
		t.Fatalf("expected 404 NOT_FOUND, got %d %+v", resp.StatusCode, payload)
	}
}
