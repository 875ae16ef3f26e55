package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tally/internal/core"
	"tally/internal/remote"
)

func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		io.WriteString(w, `[{"id":"x","type":"expense","amount":5,"description":"a","category":"food","date":"2024-01-01T00:00:00Z"}]`)
	}))
	defer srv.Close()

	got, err := New(srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "x" || got[0].Amount.Cents != 500 {
		t.Fatalf("unexpected result: %+v", got)
	}
}

func TestFetchErrorKinds(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		kind    remote.ErrorKind
	}{
		{
			name:    "non-2xx status",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			kind:    remote.KindHTTPStatus,
		},
		{
			name: "html error page",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, "<html>Sign in required</html>")
			},
			kind: remote.KindBadBody,
		},
		{
			name: "script error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"error":"sheet not found"}`)
			},
			kind: remote.KindScriptError,
		},
		{
			name: "element missing amount",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `[{"id":"x","type":"expense","description":"a","category":"food","date":"2024-01-01T00:00:00Z"}]`)
			},
			kind: remote.KindBadSchema,
		},
		{
			name: "object instead of array",
			handler: func(w http.ResponseWriter, r *http.Request) {
				io.WriteString(w, `{"rows":[]}`)
			},
			kind: remote.KindBadSchema,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()

			_, err := New(srv.URL).Fetch(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			if got := remote.KindOf(err); got != tc.kind {
				t.Fatalf("expected kind %v, got %v (%v)", tc.kind, got, err)
			}
		})
	}
}

func TestFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := New(srv.URL).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if got := remote.KindOf(err); got != remote.KindNetwork {
		t.Fatalf("expected network kind, got %v (%v)", got, err)
	}
}

func TestSavePostsWireFormat(t *testing.T) {
	var (
		gotBody        []byte
		gotContentType string
		gotMethod      string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		// The endpoint's response is not machine-readable; send junk to
		// prove it is ignored.
		io.WriteString(w, "<html>ok</html>")
	}))
	defer srv.Close()

	list := []core.Transaction{
		{ID: "a", Type: core.Income, Amount: core.Money{Cents: 1000}, Description: "pay", Category: "salary"},
	}
	if err := New(srv.URL).Save(context.Background(), list); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodPost {
		t.Fatalf("expected POST, got %s", gotMethod)
	}
	if gotContentType != "text/plain;charset=utf-8" {
		t.Fatalf("unexpected content type %q", gotContentType)
	}
	decoded, err := core.DecodeTransactions(gotBody)
	if err != nil {
		t.Fatalf("posted body not decodable: %v", err)
	}
	if len(decoded) != 1 || decoded[0].ID != "a" {
		t.Fatalf("unexpected posted body: %s", gotBody)
	}
}

func TestSaveIgnoresStatus(t *testing.T) {
	// With an opaque response mode the integration cannot see the
	// status; transport completion alone counts as success.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := New(srv.URL).Save(context.Background(), nil); err != nil {
		t.Fatalf("expected success despite status, got %v", err)
	}
}

func TestSaveNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	err := New(srv.URL).Save(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if got := remote.KindOf(err); got != remote.KindNetwork {
		t.Fatalf("expected network kind, got %v", got)
	}
}
