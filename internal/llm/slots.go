package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Veraticus/the-glossary-must-flow/internal/common"
	"github.com/tidwall/gjson"
)

// IsLocalURL reports whether raw points at a loopback inference server.
func IsLocalURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// slotsURL maps an OpenAI-style base URL to the server's /slots endpoint.
func slotsURL(base string) string {
	base = strings.TrimRight(base, "/")
	base = strings.TrimSuffix(base, "/v1")
	return base + "/slots"
}

// ProbeSlots asks a llama.cpp-style server how many parallel slots it runs.
func ProbeSlots(ctx context.Context, client *http.Client, baseURL string) (int, error) {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	target := slotsURL(baseURL)

	var slots int
	err := common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return &common.RetryableError{Err: err, Retryable: false}
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request slots: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return &common.RetryableError{
				Err:       fmt.Errorf("slots endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
				Retryable: resp.StatusCode >= http.StatusInternalServerError,
			}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read slots: %w", err)
		}
		parsed := gjson.ParseBytes(body)
		if !parsed.IsArray() {
			return &common.RetryableError{Err: errors.New("slots endpoint returned non-array body"), Retryable: false}
		}
		slots = len(parsed.Array())
		return nil
	}, common.RetryOptions{MaxAttempts: 2, InitialDelay: 200 * time.Millisecond})
	if err != nil {
		return 0, err
	}
	return slots, nil
}
