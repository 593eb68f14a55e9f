package models

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
)

// Request describes an outgoing fetch. Like Response, its body may be read
// only once; Clone before handing it to a second consumer.
type Request struct {
	Method string
	URL    string
	Header http.Header

	mu   sync.Mutex
	body []byte
	used bool
}

// NewRequest creates a request that owns body
func NewRequest(method, rawURL string, header http.Header, body []byte) *Request {
	if method == "" {
		method = http.MethodGet
	}
	if header == nil {
		header = make(http.Header)
	}
	return &Request{
		Method: strings.ToUpper(method),
		URL:    rawURL,
		Header: header,
		body:   body,
	}
}

// Body consumes the request body
func (r *Request) Body() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.used {
		return nil, ErrBodyUsed
	}
	r.used = true
	body := r.body
	r.body = nil
	return body, nil
}

// BodyUsed reports whether the body has already been consumed
func (r *Request) BodyUsed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Clone returns an independent copy of an unread request
func (r *Request) Clone() (*Request, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.used {
		return nil, ErrBodyUsed
	}

	var body []byte
	if r.body != nil {
		body = make([]byte, len(r.body))
		copy(body, r.body)
	}

	return NewRequest(r.Method, r.URL, r.Header.Clone(), body), nil
}

// ParsedURL parses the request URL
func (r *Request) ParsedURL() (*url.URL, error) {
	return url.Parse(r.URL)
}
