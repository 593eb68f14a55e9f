package models

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_SingleRead(t *testing.T) {
	resp := NewResponse("https://example.com/", 200, ResponseTypeBasic, nil, []byte("hello"))
	assert.False(t, resp.BodyUsed())

	body, err := resp.Body()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
	assert.True(t, resp.BodyUsed())

	_, err = resp.Body()
	assert.ErrorIs(t, err, ErrBodyUsed)

	_, err = resp.Clone()
	assert.ErrorIs(t, err, ErrBodyUsed)
}

func TestResponse_CloneIsIndependent(t *testing.T) {
	header := http.Header{"Content-Type": []string{"text/html"}}
	resp := NewResponse("https://example.com/", 200, ResponseTypeBasic, header, []byte("hello"))

	clone, err := resp.Clone()
	require.NoError(t, err)

	clone.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))

	cloneBody, err := clone.Body()
	require.NoError(t, err)
	cloneBody[0] = 'j'

	body, err := resp.Body()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), body)
}

func TestResponse_Status(t *testing.T) {
	tests := []struct {
		status     int
		ok         bool
		successful bool
	}{
		{200, true, true},
		{204, false, true},
		{304, false, false},
		{404, false, false},
		{500, false, false},
	}

	for _, tt := range tests {
		resp := NewResponse("https://example.com/", tt.status, ResponseTypeBasic, nil, nil)
		assert.Equal(t, tt.ok, resp.OK(), "status %d", tt.status)
		assert.Equal(t, tt.successful, resp.Successful(), "status %d", tt.status)
	}

	var nilResp *Response
	assert.False(t, nilResp.OK())
}

func TestResponse_EntryRoundTrip(t *testing.T) {
	resp := NewResponse("https://example.com/a.css", 200, ResponseTypeBasic,
		http.Header{"Content-Type": []string{"text/css"}}, []byte("body{}"))

	entry, err := resp.Entry("GET", 42)
	require.NoError(t, err)
	assert.True(t, resp.BodyUsed(), "converting to an entry consumes the response")
	assert.Equal(t, int64(42), entry.StoredAt)

	first := entry.Response()
	second := entry.Response()

	b1, err := first.Body()
	require.NoError(t, err)
	b2, err := second.Body()
	require.NoError(t, err)
	assert.Equal(t, b1, b2, "each rebuilt response has its own unread body")
	assert.Equal(t, "text/css", first.Header.Get("Content-Type"))
}

func TestRequest_CloneAndSingleRead(t *testing.T) {
	req := NewRequest("post", "https://example.com/form", nil, []byte("a=1"))
	assert.Equal(t, "POST", req.Method)

	clone, err := req.Clone()
	require.NoError(t, err)

	body, err := req.Body()
	require.NoError(t, err)
	assert.Equal(t, []byte("a=1"), body)

	_, err = req.Body()
	assert.ErrorIs(t, err, ErrBodyUsed)
	_, err = req.Clone()
	assert.ErrorIs(t, err, ErrBodyUsed)

	cloneBody, err := clone.Body()
	require.NoError(t, err)
	assert.Equal(t, []byte("a=1"), cloneBody)

	assert.Equal(t, "GET", NewRequest("", "https://example.com/", nil, nil).Method)
}

func TestNamespaceID(t *testing.T) {
	assert.Equal(t, "pp-cloud-media-v1.0.10", NamespaceID("pp-cloud-media", "1.0.10"))
	assert.Equal(t, "pp-cloud-media-v1.0.10", NamespaceID("pp-cloud-media", "v1.0.10"))

	a := Generation{Name: "app", Version: "1", Manifest: []string{"/", "/a"}}
	b := Generation{Name: "app", Version: "2", Manifest: []string{"/", "/a"}}
	c := Generation{Name: "app", Version: "2", Manifest: []string{"/a", "/"}}
	assert.True(t, a.SameManifest(b))
	assert.False(t, a.SameManifest(c))
	assert.Equal(t, "app-v1", a.Namespace())
}

func TestWorkerState_String(t *testing.T) {
	assert.Equal(t, "activated", StateActivated.String())
	text, err := StateRedundant.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "redundant", string(text))
	assert.Equal(t, "state(42)", WorkerState(42).String())
}
