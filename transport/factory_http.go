package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// maxHTTPResponseBody caps the amount of response data read from remote
// endpoints (1 MiB — replies are short text).
const maxHTTPResponseBody int64 = 1 << 20

// httpConfig is the per-route config JSON.
type httpConfig struct {
	TimeoutMs   int64  `json:"timeout_ms"`
	ContentType string `json:"content_type"`
}

// HTTPFactory creates Handlers that POST the payload to a remote HTTP
// endpoint, for running the generation coordinator out of process.
//
// Register a route with:
//
//	bus.RegisterRemote(transport.MsgGenerationRequest, url, transport.HTTPFactory(), nil)
func HTTPFactory() Factory {
	return func(endpoint string, config json.RawMessage) (Handler, func(), error) {
		var cfg httpConfig
		if len(config) > 0 {
			_ = json.Unmarshal(config, &cfg)
		}

		timeout := 10 * time.Second
		if cfg.TimeoutMs > 0 {
			timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
		}

		contentType := "application/json"
		if cfg.ContentType != "" {
			contentType = cfg.ContentType
		}

		client := &http.Client{Timeout: timeout}

		handler := func(ctx context.Context, payload []byte) ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return nil, fmt.Errorf("transport/http: create request: %w", err)
			}
			req.Header.Set("Content-Type", contentType)

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("transport/http: do request: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, maxHTTPResponseBody))
			if err != nil {
				return nil, fmt.Errorf("transport/http: read response: %w", err)
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return nil, fmt.Errorf("transport/http: status %d: %s", resp.StatusCode, body)
			}

			return body, nil
		}

		closeFn := func() { client.CloseIdleConnections() }
		return handler, closeFn, nil
	}
}
