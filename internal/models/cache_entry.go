package models

import (
	"net/http"
)

// CacheEntry is the envelope every store persists for a cached response
type CacheEntry struct {
	Method   string       `json:"method"`
	URL      string       `json:"url"`
	Status   int          `json:"status"`
	Type     ResponseType `json:"type"`
	Header   http.Header  `json:"header,omitempty"`
	Body     []byte       `json:"body,omitempty"`
	StoredAt int64        `json:"stored_at"`
}

// Response rebuilds a fresh, unread response from the entry
func (e *CacheEntry) Response() *Response {
	var body []byte
	if e.Body != nil {
		body = make([]byte, len(e.Body))
		copy(body, e.Body)
	}
	return NewResponse(e.URL, e.Status, e.Type, e.Header.Clone(), body)
}
