package assistant

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"lakehouse_voc/internal/adapters/observability"
	"lakehouse_voc/internal/domain"
)

// Client talks to the NL-to-SQL collaborator service. Questions are opaque
// to us; so are answers. The service thinks asynchronously, so both Start
// and Continue submit a message and then poll it until it settles.
type Client struct {
	base      string
	hc        *http.Client
	token     string
	rl        *rate.Limiter
	pollEvery time.Duration
}

func New(base, token string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("assistant base URL is required")
	}
	if token == "" {
		return nil, fmt.Errorf("assistant API token is required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base:      strings.TrimRight(base, "/"),
		hc:        &http.Client{Timeout: 20 * time.Second},
		token:     token,
		rl:        rate.NewLimiter(rate.Limit(rps), rps),
		pollEvery: 500 * time.Millisecond,
	}, nil
}

func (c *Client) Start(ctx context.Context, scope domain.Scope, question string) (domain.AssistantAnswer, error) {
	return c.ask(ctx, scope, "start", c.base+"/conversations", question)
}

func (c *Client) Continue(ctx context.Context, scope domain.Scope, conversationID, question string) (domain.AssistantAnswer, error) {
	u := fmt.Sprintf("%s/conversations/%s/messages", c.base, url.PathEscape(conversationID))
	return c.ask(ctx, scope, "continue", u, question)
}

// ---- Internals ----

var (
	// ErrNotFound wraps domain.ErrNotFound so HTTP handlers can map unknown
	// conversations to 404 without importing this package.
	ErrNotFound     = fmt.Errorf("assistant: %w", domain.ErrNotFound)
	ErrUnauthorized = errors.New("assistant: unauthorized")
	ErrForbidden    = errors.New("assistant: forbidden")
)

type askRequest struct {
	Question string `json:"question"`
}

// messageStatus is the collaborator's view of one submitted question.
// Status pending/running means it is still thinking.
type messageStatus struct {
	ConversationID string     `json:"conversation_id"`
	MessageID      string     `json:"message_id"`
	Status         string     `json:"status"`
	Text           string     `json:"text,omitempty"`
	SQL            string     `json:"sql,omitempty"`
	Columns        []string   `json:"columns,omitempty"`
	Rows           [][]string `json:"rows,omitempty"`
	Error          string     `json:"error,omitempty"`
}

func (c *Client) ask(ctx context.Context, scope domain.Scope, op, u, question string) (domain.AssistantAnswer, error) {
	var st messageStatus
	if err := c.do(ctx, http.MethodPost, op, u, scope, askRequest{Question: question}, &st); err != nil {
		return domain.AssistantAnswer{}, err
	}
	return c.await(ctx, scope, st)
}

// await polls the message until the collaborator finishes. Empty or unknown
// status counts as settled; synchronous deployments answer in one shot.
func (c *Client) await(ctx context.Context, scope domain.Scope, st messageStatus) (domain.AssistantAnswer, error) {
	for st.Status == "pending" || st.Status == "running" {
		if !sleepCtx(ctx, c.pollEvery) {
			return domain.AssistantAnswer{}, ctx.Err()
		}
		u := fmt.Sprintf("%s/conversations/%s/messages/%s",
			c.base, url.PathEscape(st.ConversationID), url.PathEscape(st.MessageID))
		next := messageStatus{ConversationID: st.ConversationID, MessageID: st.MessageID}
		if err := c.do(ctx, http.MethodGet, "poll", u, scope, nil, &next); err != nil {
			return domain.AssistantAnswer{}, err
		}
		st = next
	}
	if st.Status == "failed" {
		msg := st.Error
		if msg == "" {
			msg = "answer failed"
		}
		return domain.AssistantAnswer{}, fmt.Errorf("assistant: %s", msg)
	}
	return domain.AssistantAnswer{
		ConversationID: st.ConversationID,
		MessageID:      st.MessageID,
		Text:           st.Text,
		SQL:            st.SQL,
		Columns:        st.Columns,
		Rows:           st.Rows,
	}, nil
}

// do performs one HTTP exchange with client-side rate limiting and retries.
// Retries on 429 and transient 5xx, honoring Retry-After when provided. The
// request id stays stable across attempts so the service can dedupe replays.
func (c *Client) do(ctx context.Context, method, op, u string, scope domain.Scope, in, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var payload []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		payload = b
	}
	reqID := uuid.NewString()

	var lastErr error
	for i := 0; i < 4; i++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, body)
		if err != nil {
			return err
		}
		req.Header.Set("X-API-Key", c.token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "lakehouse-voc/1.0")
		req.Header.Set("X-Request-Id", reqID)
		req.Header.Set("X-Dashboard-Role", string(scope.Role))
		if scope.PropertyID != "" {
			req.Header.Set("X-Property-Id", scope.PropertyID)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("assistant", op, 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 3 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("assistant", op, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated, http.StatusAccepted:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			return err

		case http.StatusNotFound:
			resp.Body.Close()
			return ErrNotFound

		case http.StatusUnauthorized:
			resp.Body.Close()
			return ErrUnauthorized

		case http.StatusForbidden:
			resp.Body.Close()
			return ErrForbidden

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("assistant remote %d", resp.StatusCode)
			if i < 3 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("assistant status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}

	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns an exponential delay (200ms, 400ms, 800ms...) with up to
// +50% jitter so concurrent retries spread out.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	j := time.Duration(0.5 * f * float64(base))
	return base + j
}
