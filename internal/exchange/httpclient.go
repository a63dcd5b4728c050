package exchange

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jpillora/backoff"
	"golang.org/x/time/rate"
)

// HTTPClient bundles the HTTP+signing behaviour common to every
// hand-rolled adapter (Bittrex, Kraken, Poloniex, Huobi), shared by
// composition rather than an inheritance hierarchy, per the Design Notes.
// The Binance adapter does not use this; it defers signing to
// github.com/adshao/go-binance/v2.
type HTTPClient struct {
	BaseURL   string
	APIKey    string
	SecretKey string

	client  *http.Client
	limiter *rate.Limiter
}

// NewHTTPClient builds a client whose Do starts at most one request every
// 200ms (a rate limiter with burst 1), with a 20 second adapter-local
// timeout. The limiter spaces request starts; it does not stop a second
// request from starting while an earlier one is still in flight. Redirects are
// never followed automatically: CheckRedirect stops at the first 3xx so
// Do/Retry can surface and act on the Location header themselves instead
// of net/http silently chasing it.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		BaseURL: baseURL,
		client: &http.Client{
			Timeout: 20 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
	}
}

// SignHMACSHA512 returns the hex HMAC-SHA512 digest of payload, used by
// Bittrex, Kraken and Poloniex.
func (h *HTTPClient) SignHMACSHA512(payload string) string {
	mac := hmac.New(sha512.New, []byte(h.SecretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignHMACSHA256 returns the hex HMAC-SHA256 digest of payload, used by
// Huobi.
func (h *HTTPClient) SignHMACSHA256(payload string) string {
	mac := hmac.New(sha256.New, []byte(h.SecretKey))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// Do executes req, retrying transient transport failures with the shared
// backoff policy, and surfacing one redirect retry per spec.md §4.1: a
// 3xx response is returned as a *Error with KindRedirect rather than
// followed automatically, so the caller can retry exactly once.
func (h *HTTPClient) Do(ctx context.Context, req *http.Request) ([]byte, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, Transport(err)
	}

	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: 2 * time.Second, Factor: 2, Jitter: true}
	const maxAttempts = 3

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(b.Duration()):
			case <-ctx.Done():
				return nil, Transport(ctx.Err())
			}
		}

		resp, err := h.client.Do(req.WithContext(ctx))
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
			return nil, Redirect(resp.Header.Get("Location"))
		}

		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			continue
		}

		if resp.StatusCode >= 400 {
			return nil, StockExchangeError(fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)))
		}

		return body, nil
	}

	return nil, Transport(lastErr)
}

// Retry reissues req against location — the Location header carried by a
// RedirectRequested error — exactly once. It does not chase a further
// redirect itself: a second 3xx is reported back as another
// RedirectRequested so the caller (the engine, per spec.md's documented
// retry-once policy) decides whether to give up rather than spin.
func (h *HTTPClient) Retry(ctx context.Context, req *http.Request, location string) ([]byte, error) {
	target, err := req.URL.Parse(location)
	if err != nil {
		return nil, Transport(fmt.Errorf("parsing redirect location %q: %w", location, err))
	}

	retried := req.Clone(ctx)
	retried.URL = target
	retried.Host = target.Host
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, Transport(err)
		}
		retried.Body = body
	}

	resp, err := h.client.Do(retried)
	if err != nil {
		return nil, Transport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Transport(err)
	}

	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther, http.StatusTemporaryRedirect:
		return nil, Redirect(resp.Header.Get("Location"))
	}
	if resp.StatusCode >= 500 {
		return nil, Transport(fmt.Errorf("server error after redirect: status %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, StockExchangeError(fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}

// DoFollowingRedirect is Do plus the one-retry-against-Location policy
// from spec.md §4.1/§7: on a RedirectRequested error it retries exactly
// once via Retry before giving the caller the final outcome. Every
// hand-rolled adapter (Bittrex, Kraken, Poloniex, Huobi) issues its
// requests through this instead of Do directly.
func (h *HTTPClient) DoFollowingRedirect(ctx context.Context, req *http.Request) ([]byte, error) {
	body, err := h.Do(ctx, req)
	if err == nil {
		return body, nil
	}
	var exErr *Error
	if !errors.As(err, &exErr) || exErr.Kind != KindRedirect {
		return nil, err
	}
	return h.Retry(ctx, req, exErr.Location)
}

// ServerTimeOrLocal returns t if the caller passed a real server
// timestamp, or the local UTC time otherwise. Centralises the Open
// Question decision recorded in SPEC_FULL.md §6: orders read back from
// any exchange carry the exchange's own timestamp; a just-placed order
// carries Binance's server transaction time, while the Bittrex, Kraken,
// Poloniex and Huobi adapters stamp placed orders with local time, as
// they read no timestamp from the place-order response.
func ServerTimeOrLocal(serverTime time.Time) time.Time {
	if serverTime.IsZero() {
		return time.Now().UTC()
	}
	return serverTime.UTC()
}
