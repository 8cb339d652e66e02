package frappe

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSite struct {
	sessionCookie string
	token         string
	user          string
	employees     []map[string]any

	logins   int
	lastAuth string
}

func (s *fakeSite) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/method/login":
			s.logins++
			var creds map[string]string
			_ = json.NewDecoder(r.Body).Decode(&creds)
			if creds["usr"] != s.user || creds["pwd"] != "secret" {
				writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid login credentials"})
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "sid", Value: s.sessionCookie, Path: "/"})
			writeJSON(w, http.StatusOK, map[string]any{"message": "Logged In"})

		case "/api/method/frappe.auth.get_logged_user":
			s.lastAuth = r.Header.Get("Authorization")
			if !s.authorized(r) {
				writeJSON(w, http.StatusForbidden, map[string]any{"exc_type": "AuthenticationError"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"message": s.user})

		case "/api/resource/Employee":
			if !s.authorized(r) {
				writeJSON(w, http.StatusForbidden, map[string]any{"exc_type": "PermissionError"})
				return
			}
			assert.JSONEq(t, `[["user_id","=","`+s.user+`"]]`, r.URL.Query().Get("filters"))
			writeJSON(w, http.StatusOK, map[string]any{"data": s.employees})

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func (s *fakeSite) authorized(r *http.Request) bool {
	if s.token != "" && r.Header.Get("Authorization") == s.token {
		return true
	}
	c, err := r.Cookie("sid")
	return err == nil && c.Value == s.sessionCookie
}

func newFakeSite() *fakeSite {
	return &fakeSite{
		sessionCookie: "abc123",
		token:         "token key:sec",
		user:          "jane@example.com",
		employees:     []map[string]any{{"name": "HR-EMP-0001", "employee_name": "Jane Doe"}},
	}
}

func TestLogin_Password(t *testing.T) {
	site := newFakeSite()
	c := newTestClient(t, site.handler(t))

	s, err := c.Login(context.Background(), Credentials{Username: "jane@example.com", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, Session{User: "jane@example.com", Employee: "HR-EMP-0001", EmployeeName: "Jane Doe"}, s)
	assert.Equal(t, 1, site.logins)
	assert.Empty(t, site.lastAuth)
}

func TestLogin_Token(t *testing.T) {
	site := newFakeSite()
	c := newTestClient(t, site.handler(t))

	s, err := c.Login(context.Background(), Credentials{APIKey: "key", APISecret: "sec", Username: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "HR-EMP-0001", s.Employee)
	assert.Zero(t, site.logins)
	assert.Equal(t, "token key:sec", site.lastAuth)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		tweak   func(*fakeSite)
		message string
	}{
		{
			name:    "missing credentials",
			creds:   Credentials{Username: "jane@example.com"},
			message: "either username and password",
		},
		{
			name:    "wrong password",
			creds:   Credentials{Username: "jane@example.com", Password: "nope"},
			message: "Invalid login credentials",
		},
		{
			name:    "wrong token",
			creds:   Credentials{APIKey: "key", APISecret: "bad"},
			message: "AuthenticationError",
		},
		{
			name:    "no employee",
			creds:   Credentials{APIKey: "key", APISecret: "sec"},
			tweak:   func(s *fakeSite) { s.employees = nil },
			message: "no employee is linked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := newFakeSite()
			if tt.tweak != nil {
				tt.tweak(site)
			}
			c := newTestClient(t, site.handler(t))

			_, err := c.Login(context.Background(), tt.creds)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrLogin)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}
