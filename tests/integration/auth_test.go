package integration

import (
	"net/http"
	"testing"
)

func TestRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	t.Run("register issues a token", func(t *testing.T) {
		token, userID := app.registerUser(t, "alice@test.com", "password123")
		if token == "" {
			t.Error("expected a token on registration")
		}
		if userID == 0 {
			t.Error("expected a user ID on registration")
		}
	})

	t.Run("login with correct credentials", func(t *testing.T) {
		token := app.loginUser(t, "alice@test.com", "password123")
		if token == "" {
			t.Error("expected a token on login")
		}
	})

	t.Run("login with wrong password fails", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/login",
			`{"email":"alice@test.com","password":"wrong-password"}`, "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("duplicate registration fails", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/register",
			`{"email":"alice@test.com","password":"password123"}`, "")
		if rec.Code != http.StatusConflict {
			t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("short password is rejected", func(t *testing.T) {
		rec := app.request("POST", "/api/v1/auth/register",
			`{"email":"bob@test.com","password":"short"}`, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
		}
	})
}

func TestProfileRequiresAuth(t *testing.T) {
	app := setupApp(t)
	token, _ := app.registerUser(t, "carol@test.com", "password123")

	t.Run("profile with token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", token)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		user := result["user"].(map[string]interface{})
		if user["email"] != "carol@test.com" {
			t.Errorf("expected carol@test.com, got %v", user["email"])
		}
	})

	t.Run("profile without token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("profile with malformed token", func(t *testing.T) {
		rec := app.request("GET", "/api/v1/profile", "", "not-a-jwt")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})
}
