package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"go-offline-cache/internal/config"
	"go-offline-cache/internal/interfaces"
	"go-offline-cache/internal/models"
	"go-offline-cache/internal/utils"
)

// ErrBodyTooLarge is returned when a response body exceeds the configured limit
var ErrBodyTooLarge = errors.New("response body too large")

// hopHeaders are connection-level headers never forwarded
var hopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// Ensure HTTPFetcher implements interfaces.Fetcher
var _ interfaces.Fetcher = (*HTTPFetcher)(nil)

// HTTPFetcher performs network fetches on behalf of the cache manager
type HTTPFetcher struct {
	client       *http.Client
	origin       *url.URL
	upstream     *url.URL
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewHTTPFetcher creates a fetcher for pages served from origin. When upstream is
// set, same-origin requests are sent there instead, keeping path and query.
func NewHTTPFetcher(site *config.SiteConfig, fetchCfg *config.FetchConfig, logger *zap.Logger) (*HTTPFetcher, error) {
	origin, err := url.Parse(site.Origin)
	if err != nil {
		return nil, fmt.Errorf("invalid site origin: %w", err)
	}

	var upstream *url.URL
	if site.Upstream != "" {
		upstream, err = url.Parse(site.Upstream)
		if err != nil {
			return nil, fmt.Errorf("invalid site upstream: %w", err)
		}
	}

	timeout := fetchCfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		origin:       origin,
		upstream:     upstream,
		maxBodyBytes: fetchCfg.MaxBodyBytes,
		logger:       logger,
	}, nil
}

// Fetch sends the request and reads the whole response. Transport failures are
// returned as errors; HTTP error statuses are ordinary responses. The request
// body is consumed.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *models.Request) (*models.Response, error) {
	target, err := url.Parse(req.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid request url: %w", err)
	}
	sameOrigin := f.isSameOrigin(target)

	body, err := req.Body()
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, f.rewrite(target, sameOrigin).String(), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header = req.Header.Clone()
	for _, h := range hopHeaders {
		httpReq.Header.Del(h)
	}
	if sameOrigin && f.upstream != nil {
		// The upstream serves the site under its public host name
		httpReq.Host = f.origin.Host
	}

	start := time.Now()
	resp, err := f.client.Do(httpReq)
	if err != nil {
		f.logger.Debug("Network fetch failed", zap.String("url", req.URL), zap.Error(err))
		return nil, fmt.Errorf("fetch %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	data, err := f.readBody(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL, err)
	}

	header := resp.Header.Clone()
	for _, h := range hopHeaders {
		header.Del(h)
	}

	typ := models.ResponseTypeCORS
	if sameOrigin {
		typ = models.ResponseTypeBasic
	}

	f.logger.Debug("Network fetch",
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	return models.NewResponse(req.URL, resp.StatusCode, typ, header, data), nil
}

func (f *HTTPFetcher) readBody(body io.Reader) ([]byte, error) {
	if f.maxBodyBytes <= 0 {
		return io.ReadAll(body)
	}
	data, err := io.ReadAll(io.LimitReader(body, f.maxBodyBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > f.maxBodyBytes {
		return nil, ErrBodyTooLarge
	}
	return data, nil
}

func (f *HTTPFetcher) isSameOrigin(u *url.URL) bool {
	return utils.SameOrigin(f.origin, u)
}

func (f *HTTPFetcher) rewrite(target *url.URL, sameOrigin bool) *url.URL {
	if !sameOrigin || f.upstream == nil {
		return target
	}
	out := *target
	out.Scheme = f.upstream.Scheme
	out.Host = f.upstream.Host
	if base := f.upstream.Path; base != "" && base != "/" {
		out.Path = singleJoin(base, target.Path)
		out.RawPath = ""
	}
	out.Fragment = ""
	return &out
}

func singleJoin(a, b string) string {
	switch {
	case len(a) > 0 && a[len(a)-1] == '/' && len(b) > 0 && b[0] == '/':
		return a + b[1:]
	case (len(a) == 0 || a[len(a)-1] != '/') && (len(b) == 0 || b[0] != '/'):
		return a + "/" + b
	}
	return a + b
}
