package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

// BotErrorKind discriminates downstream failures structurally, instead of
// inspecting free-text error messages.
type BotErrorKind string

const (
	BotErrUnreachable    BotErrorKind = "unreachable"
	BotErrDNSFailure     BotErrorKind = "dns_failure"
	BotErrTimeout        BotErrorKind = "timeout"
	BotErrUpstreamClient BotErrorKind = "upstream_client_error"
	BotErrUpstreamServer BotErrorKind = "upstream_server_error"
	BotErrMalformed      BotErrorKind = "malformed_response"
)

// BotError is a classified outcome of a downstream inference call.
type BotError struct {
	Kind   BotErrorKind
	Detail string // raw downstream detail; never sent to clients in production
}

func (e *BotError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// BotAnswer is the inference service's reply. Optional fields are passed
// through to the client unmodified.
type BotAnswer struct {
	Answer     string          `json:"answer"`
	SessionID  string          `json:"session_id"`
	Sources    json.RawMessage `json:"sources,omitempty"`
	Confidence json.RawMessage `json:"confidence,omitempty"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
}

// BotServiceProvider defines the interface for the inference proxy.
type BotServiceProvider interface {
	Query(ctx context.Context, accountID, query string) (BotAnswer, error)
}

// BotService forwards user queries to the external inference service under a
// timeout and classifies failures. A single attempt is made per request; a
// failed call is surfaced directly to the caller without retries.
type BotService struct {
	apiURL  string
	timeout time.Duration
	client  *http.Client
}

// NewBotService creates a new BotService.
func NewBotService(apiURL string, timeout time.Duration) *BotService {
	return &BotService{
		apiURL:  apiURL,
		timeout: timeout,
		client:  &http.Client{},
	}
}

type botQueryPayload struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
}

// Query forwards a user query to the inference service. The session id
// combines the account id and a timestamp for downstream correlation only;
// it carries no authorization weight.
func (s *BotService) Query(ctx context.Context, accountID, query string) (BotAnswer, error) {
	sessionID := fmt.Sprintf("%s_%d", accountID, time.Now().Unix())

	body, err := json.Marshal(botQueryPayload{Query: query, SessionID: sessionID})
	if err != nil {
		return BotAnswer{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiURL, bytes.NewReader(body))
	if err != nil {
		return BotAnswer{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return BotAnswer{}, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		kind := BotErrUpstreamClient
		if resp.StatusCode >= 500 {
			kind = BotErrUpstreamServer
		}
		return BotAnswer{}, &BotError{Kind: kind, Detail: upstreamDetail(resp)}
	}

	var answer BotAnswer
	if err := json.NewDecoder(resp.Body).Decode(&answer); err != nil {
		return BotAnswer{}, &BotError{Kind: BotErrMalformed, Detail: err.Error()}
	}
	if answer.Answer == "" {
		return BotAnswer{}, &BotError{Kind: BotErrMalformed, Detail: "response missing answer field"}
	}

	answer.SessionID = sessionID
	return answer, nil
}

// classifyTransportError maps a transport-level failure onto a BotError kind
// by inspecting the wrapped error chain.
func classifyTransportError(err error) *BotError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &BotError{Kind: BotErrDNSFailure, Detail: err.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &BotError{Kind: BotErrTimeout, Detail: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &BotError{Kind: BotErrTimeout, Detail: err.Error()}
	}

	if errors.Is(err, syscall.ECONNREFUSED) {
		return &BotError{Kind: BotErrUnreachable, Detail: err.Error()}
	}

	// Any other transport failure means the service could not be reached.
	return &BotError{Kind: BotErrUnreachable, Detail: err.Error()}
}

// upstreamDetail extracts whatever error detail the downstream supplied.
func upstreamDetail(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return resp.Status
	}

	var payload struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil {
		if payload.Detail != "" {
			return payload.Detail
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return string(body)
}
