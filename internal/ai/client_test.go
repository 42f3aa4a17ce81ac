package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func okBody(text string) ChatResponse {
	return ChatResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: text}}}}
}

// sequenceServer answers /chat/completions with statuses in order, repeating the last one.
func sequenceServer(t *testing.T, statuses []int, headers []http.Header, body any) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&calls, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		if i < len(headers) {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		w.WriteHeader(statuses[i])
		if statuses[i] >= 200 && statuses[i] < 300 {
			_ = json.NewEncoder(w).Encode(body)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "try later", "code": "busy"}})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func testClient(t *testing.T, url string, retries int) *Client {
	return New(Config{
		APIKey:    "test",
		BaseURL:   url,
		Timeout:   2 * time.Second,
		RetryMax:  retries,
		BaseDelay: 5 * time.Millisecond,
		MaxDelay:  20 * time.Millisecond,
		Logger:    zaptest.NewLogger(t),
	})
}

func chat(t *testing.T, c *Client) (*ChatResponse, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.Chat(ctx, ChatRequest{Model: "m", Messages: []Message{{Role: "user", Content: "hi"}}})
}

func TestChatRetriesOn429And5xx(t *testing.T) {
	srv, calls := sequenceServer(t, []int{429, 503, 200}, []http.Header{{"Retry-After": {"0"}}}, okBody("ok"))
	resp, err := chat(t, testClient(t, srv.URL, 3))
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text())
	assert.EqualValues(t, 3, atomic.LoadInt32(calls))
}

func TestChatRetryAfterHonored(t *testing.T) {
	srv, _ := sequenceServer(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}}, okBody("ok"))
	start := time.Now()
	_, err := chat(t, testClient(t, srv.URL, 2))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 900*time.Millisecond)
}

func TestChatGivesUpWithTypedError(t *testing.T) {
	srv, calls := sequenceServer(t, []int{500}, nil, nil)
	_, err := chat(t, testClient(t, srv.URL, 2))
	var se *ServerError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "busy", se.Code)
	assert.EqualValues(t, 2, atomic.LoadInt32(calls))
}

func TestChatDoesNotRetryClientErrors(t *testing.T) {
	cases := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusUnauthorized, func(err error) bool { var e *AuthError; return errors.As(err, &e) }},
		{http.StatusBadRequest, func(err error) bool { var e *BadRequestError; return errors.As(err, &e) }},
	}
	for _, tc := range cases {
		srv, calls := sequenceServer(t, []int{tc.status}, []http.Header{{"X-Request-Id": {"req_123"}}}, nil)
		_, err := chat(t, testClient(t, srv.URL, 3))
		require.Error(t, err)
		assert.True(t, tc.check(err), err.Error())
		assert.Contains(t, err.Error(), "req_123")
		assert.EqualValues(t, 1, atomic.LoadInt32(calls))
	}
}

func TestChatMissingKeyAndModel(t *testing.T) {
	c := New(Config{})
	_, err := c.Chat(context.Background(), ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, ErrMissingAPIKey)

	c = New(Config{APIKey: "k"})
	_, err = c.Chat(context.Background(), ChatRequest{})
	assert.Error(t, err)
}

func TestChatContextCancelledDuringBackoff(t *testing.T) {
	srv, _ := sequenceServer(t, []int{429}, []http.Header{{"Retry-After": {"30"}}}, nil)
	c := testClient(t, srv.URL, 3)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err := c.Chat(ctx, ChatRequest{Model: "m"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChatUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	_, err := chat(t, testClient(t, url, 1))
	var ue *UnreachableError
	assert.ErrorAs(t, err, &ue)
}

func TestExplain(t *testing.T) {
	var got ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("X-Request-Id", "req_9")
		_ = json.NewEncoder(w).Encode(okBody("  The data has two columns.  "))
	}))
	defer srv.Close()

	e := &Explainer{Client: testClient(t, srv.URL, 1), Model: "m", MaxTokens: 100, PromptBudget: 10}
	out, err := e.Explain(context.Background(), strings.Repeat("# report ", 20))
	require.NoError(t, err)
	assert.Equal(t, "The data has two columns.", out.Text)
	assert.True(t, out.Truncated)
	assert.Equal(t, "req_9", out.RequestID)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.True(t, strings.HasPrefix(got.Messages[1].Content, "Explain this data:"))
	assert.Contains(t, got.Messages[1].Content, "[report truncated]")
	assert.Equal(t, 100, got.MaxTokens)

	_, err = e.Explain(context.Background(), "   ")
	assert.Error(t, err)
}
