package contactform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Zachkp/portfolio/internal/contact"
)

const maxResponseBytes = 64 << 10

// HTTPPoster posts submissions as JSON to the relay endpoint.
type HTTPPoster struct {
	endpoint string
	client   *http.Client
}

// NewHTTPPoster returns a Poster for endpoint. A nil client means
// http.DefaultClient.
func NewHTTPPoster(endpoint string, client *http.Client) *HTTPPoster {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPoster{endpoint: endpoint, client: client}
}

// Post sends sub and decodes the reply. Any HTTP status counts as a
// response; only a failure to exchange the request is an error. An
// undecodable body yields a nil result.
func (p *HTTPPoster) Post(ctx context.Context, sub contact.Submission) (*contact.Result, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("encoding submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting submission: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, nil
	}
	var res contact.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, nil
	}
	return &res, nil
}
