package lifecycle

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
)

// Response is what a Forwarder returns for a completed backend call.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forwarder is the abstract transport collaborator the engine dispatches
// outbound requests through; grounded on the teacher's httputil-based
// reverse proxy, generalized into an interface so the engine can drive
// duplicate dispatch and swap in a stub for tests.
type Forwarder interface {
	Forward(ctx context.Context, method string, dest *url.URL, header http.Header, body []byte) (*Response, error)
}

// HTTPForwarder is the production Forwarder, backed by a plain
// *http.Client (no connection pooling tuning beyond the client's
// defaults, since transport plumbing is an external collaborator).
type HTTPForwarder struct {
	client *http.Client
}

// NewHTTPForwarder wraps client, or http.DefaultClient if nil.
func NewHTTPForwarder(client *http.Client) *HTTPForwarder {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPForwarder{client: client}
}

func (f *HTTPForwarder) Forward(ctx context.Context, method string, dest *url.URL, header http.Header, body []byte) (*Response, error) {
	var bodyReader io.Reader
	if len(body) > 0 {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, dest.String(), bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header = StripHopByHopHeaders(header)
	req.Host = dest.Host

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}
