package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	maxBodyBytes  = 4 << 20
	maxErrorBytes = 2048
)

// ErrUpstreamStatus is wrapped by fetch errors caused by a non-2xx response.
var ErrUpstreamStatus = errors.New("upstream returned an error status")

// StatusError is a non-2xx response. It unwraps to ErrUpstreamStatus.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", ErrUpstreamStatus, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error {
	return ErrUpstreamStatus
}

// rejectedRequest reports a 4xx answer other than 429. The host is up and
// refused this one request, so its breaker ignores it.
func rejectedRequest(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code >= 400 && se.Code < 500 && se.Code != http.StatusTooManyRequests
}

// Envelope is a normalised upstream response. When the body is not JSON the
// text is kept in Raw and IsJSON is false.
type Envelope struct {
	Status int
	JSON   any
	Raw    string
	IsJSON bool
}

type request struct {
	method string
	url    string
	body   []byte
	header http.Header
}

func getRequest(url string) request {
	return request{method: http.MethodGet, url: url}
}

// host names the breaker guarding the request.
func (r request) host() string {
	u, err := url.Parse(r.url)
	if err != nil || u.Host == "" {
		return r.url
	}
	return u.Host
}

func (r request) cacheKey() string {
	return r.method + " " + r.url + " " + string(r.body)
}

// fetch performs req and decodes the body. Numbers decode as json.Number.
func (g *Gateway) fetch(ctx context.Context, req request) (Envelope, error) {
	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, req.url, body)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("User-Agent", userAgent)
	httpReq.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return Envelope{}, fmt.Errorf("%s %s: %w", req.method, req.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBytes))
		return Envelope{Status: resp.StatusCode}, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to read response body: %w", err)
	}
	return decodeEnvelope(resp.StatusCode, raw), nil
}

func decodeEnvelope(status int, raw []byte) Envelope {
	env := Envelope{Status: status, Raw: string(raw)}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return env
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return env
	}
	if dec.More() {
		return env
	}
	env.JSON = v
	env.IsJSON = true
	return env
}
