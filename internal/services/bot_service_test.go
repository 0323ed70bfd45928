package services

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func botErrorKind(t *testing.T, err error) BotErrorKind {
	t.Helper()
	var botErr *BotError
	require.ErrorAs(t, err, &botErr)
	return botErr.Kind
}

func TestBotQuery_Success(t *testing.T) {
	t.Parallel()

	var gotPayload botQueryPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotPayload)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"answer":"42","sources":["doc1","doc2"],"confidence":0.9,"metadata":{"model":"local"}}`))
	}))
	defer server.Close()

	svc := NewBotService(server.URL, time.Second)
	answer, err := svc.Query(context.Background(), "acc-1", "what is the answer?")
	require.NoError(t, err)

	assert.Equal(t, "42", answer.Answer)
	assert.Equal(t, "what is the answer?", gotPayload.Query)
	assert.Contains(t, gotPayload.SessionID, "acc-1_", "session id carries the account id")
	assert.Equal(t, gotPayload.SessionID, answer.SessionID)

	// Optional downstream fields pass through untouched.
	assert.JSONEq(t, `["doc1","doc2"]`, string(answer.Sources))
	assert.JSONEq(t, `0.9`, string(answer.Confidence))
	assert.JSONEq(t, `{"model":"local"}`, string(answer.Metadata))
}

func TestBotQuery_UpstreamErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		status     int
		body       string
		wantKind   BotErrorKind
		wantDetail string
	}{
		{"server error", http.StatusInternalServerError, `{"detail":"model crashed"}`, BotErrUpstreamServer, "model crashed"},
		{"client error", http.StatusUnprocessableEntity, `{"error":"query too long"}`, BotErrUpstreamClient, "query too long"},
		{"plain text error", http.StatusBadGateway, "bad things", BotErrUpstreamServer, "bad things"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			svc := NewBotService(server.URL, time.Second)
			_, err := svc.Query(context.Background(), "acc-1", "q")

			var botErr *BotError
			require.ErrorAs(t, err, &botErr)
			assert.Equal(t, tc.wantKind, botErr.Kind)
			assert.Equal(t, tc.wantDetail, botErr.Detail)
		})
	}
}

func TestBotQuery_MalformedResponse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name, body string
	}{
		{"not json", "<html>oops</html>"},
		{"missing answer", `{"session_id":"x"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer server.Close()

			svc := NewBotService(server.URL, time.Second)
			_, err := svc.Query(context.Background(), "acc-1", "q")
			assert.Equal(t, BotErrMalformed, botErrorKind(t, err))
		})
	}
}

func TestBotQuery_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer server.Close()

	svc := NewBotService(server.URL, 20*time.Millisecond)
	_, err := svc.Query(context.Background(), "acc-1", "q")
	assert.Equal(t, BotErrTimeout, botErrorKind(t, err))
}

func TestBotQuery_Unreachable(t *testing.T) {
	t.Parallel()

	// Grab a port nothing is listening on.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	svc := NewBotService("http://"+addr, time.Second)
	_, err = svc.Query(context.Background(), "acc-1", "q")
	assert.Equal(t, BotErrUnreachable, botErrorKind(t, err))
}

func TestBotQuery_DNSFailure(t *testing.T) {
	t.Parallel()

	svc := NewBotService("http://ragpanel-no-such-host.invalid/query", time.Second)
	_, err := svc.Query(context.Background(), "acc-1", "q")
	assert.Equal(t, BotErrDNSFailure, botErrorKind(t, err))
}
