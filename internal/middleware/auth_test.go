package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukerupert/choretracker/internal/auth"
)

func okHandler(t *testing.T, wantUser int64) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := auth.UserID(r.Context()); got != wantUser {
			t.Errorf("UserID = %d, want %d", got, wantUser)
		}
		w.WriteHeader(http.StatusOK)
	})
}

func noHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})
}

func exists(ids ...int64) UserChecker {
	return func(id int64) (bool, error) {
		for _, v := range ids {
			if v == id {
				return true, nil
			}
		}
		return false, nil
	}
}

func TestRequireAuthNoToken(t *testing.T) {
	handler := RequireAuth(auth.NewIssuer("secret", time.Hour), exists(1))(noHandler(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/chores/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if h := rec.Header().Get("WWW-Authenticate"); h != "Bearer" {
		t.Errorf("WWW-Authenticate = %q, want Bearer", h)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	handler := RequireAuth(auth.NewIssuer("secret", time.Hour), exists(1))(noHandler(t))

	req := httptest.NewRequest("POST", "/chores/", nil)
	req.Header.Set("Authorization", "Bearer nonsense")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthValidToken(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	tok, _ := iss.Issue(1)
	handler := RequireAuth(iss, exists(1))(okHandler(t, 1))

	req := httptest.NewRequest("POST", "/chores/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuthQueryToken(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	tok, _ := iss.Issue(1)
	handler := RequireAuth(iss, exists(1))(okHandler(t, 1))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/ws?access_token="+tok, nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRequireAuthWrongScheme(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	tok, _ := iss.Issue(1)
	handler := RequireAuth(iss, exists(1))(noHandler(t))

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Basic "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthDeletedUser(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	tok, _ := iss.Issue(7)
	handler := RequireAuth(iss, exists(1))(noHandler(t))

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthLookupError(t *testing.T) {
	iss := auth.NewIssuer("secret", time.Hour)
	tok, _ := iss.Issue(1)
	failing := func(int64) (bool, error) { return false, errors.New("db down") }
	handler := RequireAuth(iss, failing)(noHandler(t))

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
}
