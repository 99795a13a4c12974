package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dgnsrekt/pagepulse/internal/types"
)

// Transport sends one envelope somewhere. Collector is the primary
// transport; the spool and live tail are side channels behind the same
// interface.
type Transport interface {
	Send(ctx context.Context, env Envelope) error
}

// Collector posts envelopes to the external collector endpoint over HTTP.
type Collector struct {
	endpoint string
	client   *http.Client
}

func NewCollector(endpoint string, client *http.Client) *Collector {
	if client == nil {
		client = http.DefaultClient
	}
	return &Collector{endpoint: endpoint, client: client}
}

func (c *Collector) Send(ctx context.Context, env Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return types.NewError(types.CodeTransport, "marshal envelope", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return types.NewError(types.CodeTransport, "build collector request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.NewError(types.CodeTransport, "post to collector", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	// Only success/failure is inspected; the response payload is ignored.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewError(types.CodeTransport, resp.Status, nil)
	}
	return nil
}
