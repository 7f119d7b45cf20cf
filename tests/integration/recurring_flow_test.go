package integration

import (
	"fmt"
	"net/http"
	"testing"
)

func TestRecurringReconcileFlow(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "frank@test.com", "password123")

	var templateID float64

	t.Run("create a recurring template", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/transactions",
			`{"type":"expense","vendor":"Netflix","category":"Entertainment","description":"subscription","amount":"12.99","date":"2024-01-15","recurring":true,"frequency":"monthly"}`, token)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		templateID = result["transaction"].(map[string]interface{})["id"].(float64)
	})

	t.Run("reconcile generates missed occurrences", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/transactions/recurring/reconcile",
			`{"as_of":"2024-04-20"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["generated"].(float64) != 3 {
			t.Errorf("expected 3 generated, got %v", result["generated"])
		}
		if result["skipped"].(float64) != 0 {
			t.Errorf("expected 0 skipped, got %v", result["skipped"])
		}
	})

	t.Run("reconcile again is a no-op", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/transactions/recurring/reconcile",
			`{"as_of":"2024-04-20"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["generated"].(float64) != 0 {
			t.Errorf("expected 0 generated on repeat, got %v", result["generated"])
		}
	})

	t.Run("generated occurrences appear in the listing", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/transactions?month=2024-03", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["total_items"].(float64) != 1 {
			t.Errorf("expected 1 occurrence in March, got %v", result["total_items"])
		}
	})

	t.Run("paused series generates nothing", func(t *testing.T) {
		rec := app.request("PUT", fmt.Sprintf("/api/v1/transactions/%.0f", templateID),
			`{"recurring_paused":true}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = app.request("POST", "/api/v1/transactions/recurring/reconcile",
			`{"as_of":"2024-12-31"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["generated"].(float64) != 0 {
			t.Errorf("expected 0 generated while paused, got %v", result["generated"])
		}
	})

	t.Run("resumed series catches up", func(t *testing.T) {
		rec := app.request("PUT", fmt.Sprintf("/api/v1/transactions/%.0f", templateID),
			`{"recurring_paused":false}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}

		rec = app.request("POST", "/api/v1/transactions/recurring/reconcile",
			`{"as_of":"2024-06-20"}`, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["generated"].(float64) != 2 {
			t.Errorf("expected 2 generated after resume (May and June), got %v", result["generated"])
		}
	})

	t.Run("rejects malformed as_of", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/transactions/recurring/reconcile",
			`{"as_of":"not-a-date"}`, token)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestInternalReconcileEndpoint(t *testing.T) {
	app := setupApp(t)
	token, userID := app.registerUser(t, "grace@test.com", "password123")

	rec := app.request("POST", "/api/v1/transactions",
		`{"type":"expense","vendor":"Gym","category":"Health","amount":"35","date":"2024-01-10","recurring":true,"frequency":"monthly"}`, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	path := fmt.Sprintf("/internal/users/%.0f/recurring/reconcile", userID)

	t.Run("rejects a missing API key", func(t *testing.T) {
		rec := app.internalRequest("POST", path, `{"as_of":"2024-03-20"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("rejects a wrong API key", func(t *testing.T) {
		rec := app.internalRequest("POST", path, `{"as_of":"2024-03-20"}`, "wrong-key")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("reconciles with the correct API key", func(t *testing.T) {
		rec := app.internalRequest("POST", path, `{"as_of":"2024-03-20"}`, testInternalAPIKey)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["generated"].(float64) != 2 {
			t.Errorf("expected 2 generated (Feb and Mar), got %v", result["generated"])
		}
	})

	t.Run("rejects an unknown user ID format", func(t *testing.T) {
		rec := app.internalRequest("POST", "/internal/users/abc/recurring/reconcile", "", testInternalAPIKey)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}
