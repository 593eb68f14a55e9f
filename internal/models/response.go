package models

import (
	"errors"
	"net/http"
	"sync"
)

// ErrBodyUsed is returned when a request or response body is read a second time.
var ErrBodyUsed = errors.New("body already used")

// ResponseType mirrors the origin classification of a fetched response
type ResponseType string

const (
	ResponseTypeBasic  ResponseType = "basic"  // same-origin
	ResponseTypeCORS   ResponseType = "cors"   // cross-origin
	ResponseTypeOpaque ResponseType = "opaque" // cross-origin without readable metadata
	ResponseTypeError  ResponseType = "error"
)

// Response is a fetched or cached HTTP response snapshot.
//
// The body follows a single-read ownership rule: Body hands it out once and
// every later read fails with ErrBodyUsed. A caller that needs the response
// twice must Clone it before the first read.
type Response struct {
	URL    string
	Status int
	Type   ResponseType
	Header http.Header

	mu   sync.Mutex
	body []byte
	used bool
}

// NewResponse creates a response that owns body
func NewResponse(url string, status int, typ ResponseType, header http.Header, body []byte) *Response {
	if header == nil {
		header = make(http.Header)
	}
	return &Response{
		URL:    url,
		Status: status,
		Type:   typ,
		Header: header,
		body:   body,
	}
}

// OK reports whether the response carries status 200
func (r *Response) OK() bool {
	return r != nil && r.Status == http.StatusOK
}

// Successful reports whether the status is in the 2xx range
func (r *Response) Successful() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// BodyUsed reports whether the body has already been consumed
func (r *Response) BodyUsed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.used
}

// Body consumes the response body
func (r *Response) Body() ([]byte, error) {
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

// Clone returns an independent copy of an unread response
func (r *Response) Clone() (*Response, error) {
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

	return NewResponse(r.URL, r.Status, r.Type, r.Header.Clone(), body), nil
}

// Entry consumes the response and converts it into a storable cache entry
func (r *Response) Entry(method string, storedAt int64) (*CacheEntry, error) {
	body, err := r.Body()
	if err != nil {
		return nil, err
	}

	return &CacheEntry{
		Method:   method,
		URL:      r.URL,
		Status:   r.Status,
		Type:     r.Type,
		Header:   r.Header.Clone(),
		Body:     body,
		StoredAt: storedAt,
	}, nil
}
