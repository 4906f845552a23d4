// Package googletest provides scripted HTTP fakes for exercising the Google
// API clients without a live endpoint.
package googletest

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
)

type Script struct {
	StatusCode int
	Body       []byte
	Header     http.Header
	Err        error
}

func JSONScript(statusCode int, body string) Script {
	return Script{
		StatusCode: statusCode,
		Body:       []byte(body),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

// FakeDoer replays scripts in request order; past the end it repeats the last
// script. It retains each request and its body for call-count assertions.
type FakeDoer struct {
	mu       sync.Mutex
	scripts  []Script
	requests []*http.Request
	bodies   [][]byte
}

func NewFakeDoer(scripts ...Script) *FakeDoer {
	return &FakeDoer{scripts: append([]Script(nil), scripts...)}
}

func (d *FakeDoer) Do(req *http.Request) (*http.Response, error) {
	if d == nil {
		return nil, fmt.Errorf("googletest: fake doer is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	var body []byte
	if req.Body != nil {
		read, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("googletest: read request body: %w", err)
		}
		req.Body.Close()
		body = read
	}
	d.requests = append(d.requests, req)
	d.bodies = append(d.bodies, body)

	index := len(d.requests) - 1
	script := Script{StatusCode: http.StatusOK, Body: []byte("{}")}
	if index < len(d.scripts) {
		script = d.scripts[index]
	} else if len(d.scripts) > 0 {
		script = d.scripts[len(d.scripts)-1]
	}
	if script.Err != nil {
		return nil, script.Err
	}

	header := script.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: script.StatusCode,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(script.Body)),
		Request:    req,
	}, nil
}

func (d *FakeDoer) CallCount() int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.requests)
}

func (d *FakeDoer) Request(index int) *http.Request {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.requests) {
		return nil
	}
	return d.requests[index]
}

func (d *FakeDoer) RequestBody(index int) []byte {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if index < 0 || index >= len(d.bodies) {
		return nil
	}
	return append([]byte(nil), d.bodies[index]...)
}
