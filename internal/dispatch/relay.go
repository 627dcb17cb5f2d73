package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrRelayNotConfigured = errors.New("relay url not configured")

const maxRelayBody = 1 << 20

// relayClient posts JSON bodies to the internal relays with a per-call timeout.
type relayClient struct {
	http *http.Client
}

func (c relayClient) postJSON(ctx context.Context, url string, timeout time.Duration, body any) (int, []byte, error) {
	if strings.TrimSpace(url) == "" {
		return 0, nil, ErrRelayNotConfigured
	}
	b, err := json.Marshal(body)
	if err != nil {
		return 0, nil, fmt.Errorf("encode body: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	rb, err := io.ReadAll(io.LimitReader(resp.Body, maxRelayBody))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, rb, nil
}
