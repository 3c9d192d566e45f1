package transport

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/tjfontaine/polyglot-providers/internal/decode"
	"github.com/tjfontaine/polyglot-providers/internal/domain"
)

// Frame is one server-sent event payload, or the error that ended the stream.
type Frame struct {
	Data []byte
	Err  error
}

// Stream posts body to url and returns the SSE data payloads in arrival order.
// A non-success status is reported before any frame, as an HTTP status error.
// The channel is closed after "[DONE]", at end of body, or when ctx ends.
func (c *Client) Stream(ctx context.Context, url string, auth Auth, body any) (<-chan Frame, error) {
	httpReq, requestID, err := c.newJSONRequest(ctx, url, auth, body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewTransportError(fmt.Errorf("request failed: %w", err))
	}

	if !decode.IsSuccess(resp.StatusCode) {
		defer resp.Body.Close()
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, domain.NewTransportError(fmt.Errorf("failed to read response: %w", readErr))
		}
		return nil, decode.Status(resp.StatusCode, respBody)
	}

	c.logger.Debug("provider stream opened",
		slog.String("url", httpReq.URL.String()),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
	)

	out := make(chan Frame)
	go c.streamReader(ctx, resp.Body, out)
	return out, nil
}

func (c *Client) streamReader(ctx context.Context, body io.ReadCloser, out chan<- Frame) {
	defer close(out)
	defer body.Close()

	send := func(f Frame) bool {
		select {
		case out <- f:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return
		}
		if !send(Frame{Data: []byte(data)}) {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		send(Frame{Err: domain.NewTransportError(fmt.Errorf("stream read error: %w", err))})
	}
}
