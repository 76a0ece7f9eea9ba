package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, zap.NewNop()), srv
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42",
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestGetSessionUnwrapsEnvelope(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions/s1" {
			t.Errorf("path = %q, want /sessions/s1", r.URL.Path)
		}
		w.Write([]byte(`{"success":true,"data":{"id":"s1","title":"Sneaker Drop","status":"live","creator":{"id":"7","username":"maya","email":"maya@example.com"}}}`))
	})
	defer srv.Close()

	s, err := c.GetSession(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if s.ID != "s1" || s.Title != "Sneaker Drop" {
		t.Errorf("session = %+v", s.Session)
	}
	if s.Creator.ID != "7" || s.Creator.Username != "maya" {
		t.Errorf("creator = %+v", s.Creator)
	}
}

func TestCreateSessionResponseShapes(t *testing.T) {
	shapes := map[string]string{
		"data envelope": `{"success":true,"data":{"id":"s1","title":"A"}}`,
		"session key":   `{"success":true,"session":{"id":"s1","title":"A"}}`,
		"bare object":   `{"id":"s1","title":"A"}`,
	}
	for name, body := range shapes {
		t.Run(name, func(t *testing.T) {
			c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("method = %s, want POST", r.Method)
				}
				w.Write([]byte(body))
			})
			defer srv.Close()

			s, err := c.CreateSession(context.Background(), CreateSessionInput{Title: "A"})
			if err != nil {
				t.Fatalf("CreateSession: %v", err)
			}
			if s.ID != "s1" {
				t.Errorf("id = %q, want s1", s.ID)
			}
		})
	}
}

func TestErrorStatusSurfacesServerMessage(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"success":false,"error":"not the session creator"}`))
	})
	defer srv.Close()

	_, err := c.StartStream(context.Background(), "s1")
	if err == nil {
		t.Fatal("StartStream succeeded, want error")
	}
	if got := err.Error(); !strings.Contains(got, "403") || !strings.Contains(got, "not the session creator") {
		t.Errorf("error = %q, want status and server message", got)
	}
}

func TestBearerTokenAttached(t *testing.T) {
	var got string
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	})
	defer srv.Close()

	c.SetToken("abc")
	if _, err := c.ListSessions(context.Background(), ""); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if got != "Bearer abc" {
		t.Errorf("Authorization = %q, want Bearer abc", got)
	}
}

func TestListSessionsDecodesBareArray(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if q := r.URL.Query().Get("creatorId"); q != "7" {
			t.Errorf("creatorId = %q, want 7", q)
		}
		w.Write([]byte(`[{"id":"s1"},{"id":"s2"}]`))
	})
	defer srv.Close()

	out, err := c.ListSessions(context.Background(), "7")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(out) != 2 || out[0].ID != "s1" || out[1].ID != "s2" {
		t.Errorf("sessions = %+v", out)
	}
}

func TestUpdateSessionStatusSendsPatch(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "paused" {
			t.Errorf("status = %q, want paused", body["status"])
		}
		w.Write([]byte(`{"data":{"id":"s1","status":"paused"}}`))
	})
	defer srv.Close()

	s, err := c.UpdateSessionStatus(context.Background(), "s1", "paused")
	if err != nil {
		t.Fatalf("UpdateSessionStatus: %v", err)
	}
	if string(s.Status) != "paused" {
		t.Errorf("status = %q, want paused", s.Status)
	}
}

func TestTokenExpired(t *testing.T) {
	c := NewClient("http://unused", zap.NewNop())

	if !c.TokenExpired() {
		t.Error("empty token should report expired")
	}

	c.SetToken("not-a-jwt")
	if !c.TokenExpired() {
		t.Error("garbage token should report expired")
	}

	c.SetToken(signToken(t, time.Now().Add(-time.Minute)))
	if !c.TokenExpired() {
		t.Error("past exp should report expired")
	}

	c.SetToken(signToken(t, time.Now().Add(time.Hour)))
	if c.TokenExpired() {
		t.Error("future exp should not report expired")
	}
}
