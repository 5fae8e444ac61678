package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestServer(t *testing.T, status int, body string, capture *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if capture != nil {
			_ = json.NewDecoder(r.Body).Decode(capture)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_Complete(t *testing.T) {
	var sent chatRequest
	srv := newTestServer(t, http.StatusOK,
		`{"model":"deepseek-chat-v2","choices":[{"message":{"role":"assistant","content":"hola"}}],"usage":{"total_tokens":42}}`,
		&sent)

	c := NewHTTPClient(srv.URL, "key", time.Second, nil)
	got, err := c.Complete(context.Background(), CompletionRequest{
		Model:       "deepseek-chat",
		Messages:    []Message{{Role: RoleUser, Content: "hi"}},
		Temperature: 1.7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Content != "hola" || got.Model != "deepseek-chat-v2" {
		t.Fatalf("unexpected completion %+v", got)
	}
	if got.TotalTokens == nil || *got.TotalTokens != 42 {
		t.Fatalf("expected 42 tokens, got %v", got.TotalTokens)
	}
	if got.Finished.Before(got.Started) {
		t.Fatalf("finished before started")
	}
	if sent.Stream || sent.Temperature != 1 || sent.Model != "deepseek-chat" {
		t.Fatalf("unexpected request body %+v", sent)
	}
}

func TestHTTPClient_EndpointErrors(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"sin mensaje", ``, "API error: 500 - Unknown error"},
		{"message plano", `{"message":"quota"}`, "API error: 500 - quota"},
		{"error anidado", `{"error":{"message":"bad key"}}`, "API error: 500 - bad key"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newTestServer(t, http.StatusInternalServerError, tc.body, nil)
			_, err := NewHTTPClient(srv.URL, "key", time.Second, nil).Complete(context.Background(), CompletionRequest{Model: "m"})
			var ee *EndpointError
			if !errors.As(err, &ee) {
				t.Fatalf("expected EndpointError, got %v", err)
			}
			if ee.StatusCode != 500 || err.Error() != tc.want {
				t.Fatalf("got %q, want %q", err.Error(), tc.want)
			}
		})
	}
}

func TestHTTPClient_DegradesOnMissingContent(t *testing.T) {
	for _, body := range []string{`not json`, `{"choices":[]}`} {
		srv := newTestServer(t, http.StatusOK, body, nil)
		got, err := NewHTTPClient(srv.URL, "key", time.Second, nil).Complete(context.Background(), CompletionRequest{Model: "m"})
		if err != nil {
			t.Fatalf("body %q: unexpected error %v", body, err)
		}
		if !got.Degraded || got.Content != NoResponseText || got.TotalTokens != nil {
			t.Fatalf("body %q: unexpected completion %+v", body, got)
		}
	}
}

func TestHTTPClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(url, "key", time.Second, nil).Complete(context.Background(), CompletionRequest{Model: "m"})
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestHTTPClient_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := MustNewMetrics(reg)
	srv := newTestServer(t, http.StatusBadGateway, `{}`, nil)

	_, _ = NewHTTPClient(srv.URL, "key", time.Second, nil, WithMetrics(m)).Complete(context.Background(), CompletionRequest{Model: "m"})

	if got := testutil.ToFloat64(m.completions.WithLabelValues(OutcomeEndpoint)); got != 1 {
		t.Fatalf("expected one endpoint_error, got %v", got)
	}
	// registrar dos veces sobre el mismo registry reutiliza los collectors
	if again := MustNewMetrics(reg); again.completions != m.completions {
		t.Fatalf("expected existing collector to be reused")
	}
}
