package gofile

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/proxy"
)

// Transport is the HTTP layer shared by the content API client and the file
// downloader. It carries the session so download requests can attach the
// account-token cookie the CDN expects.
type Transport struct {
	client    *http.Client
	session   *Session
	userAgent string
	headers   map[string]string
}

// TransportOption configures a Transport.
type TransportOption func(*Transport)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) TransportOption {
	return func(t *Transport) {
		t.client.Timeout = timeout
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) TransportOption {
	return func(t *Transport) {
		t.userAgent = ua
	}
}

// WithHeader adds a custom header to every request.
func WithHeader(key, value string) TransportOption {
	return func(t *Transport) {
		t.headers[key] = value
	}
}

// WithProxy sets an HTTP or HTTPS proxy.
func WithProxy(proxyURL string) TransportOption {
	return func(t *Transport) {
		if proxyURL == "" {
			return
		}

		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return
		}

		t.getTransport().Proxy = http.ProxyURL(parsed)
	}
}

// WithSOCKS5Proxy sets a SOCKS5 proxy.
func WithSOCKS5Proxy(proxyAddr string, auth *proxy.Auth) TransportOption {
	return func(t *Transport) {
		if proxyAddr == "" {
			return
		}

		if strings.HasPrefix(proxyAddr, "socks5://") {
			parsed, err := url.Parse(proxyAddr)
			if err != nil {
				return
			}
			proxyAddr = parsed.Host
			if parsed.User != nil {
				password, _ := parsed.User.Password()
				auth = &proxy.Auth{
					User:     parsed.User.Username(),
					Password: password,
				}
			}
		}

		dialer, err := proxy.SOCKS5("tcp", proxyAddr, auth, proxy.Direct)
		if err != nil {
			return
		}

		t.getTransport().DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
			return dialer.Dial(network, addr)
		}
	}
}

// WithInsecureSkipVerify disables TLS certificate verification.
func WithInsecureSkipVerify(skip bool) TransportOption {
	return func(t *Transport) {
		if !skip {
			return
		}
		tr := t.getTransport()
		if tr.TLSClientConfig == nil {
			tr.TLSClientConfig = &tls.Config{}
		}
		tr.TLSClientConfig.InsecureSkipVerify = true
	}
}

// WithHTTP3 switches file transfers to HTTP/3 over QUIC. The content API
// itself stays on HTTP/1.1-2; only download links go through this transport.
func WithHTTP3(enable bool) TransportOption {
	return func(t *Transport) {
		if !enable {
			return
		}
		t.client.Transport = &http3.Transport{
			TLSClientConfig: &tls.Config{},
		}
	}
}

// getTransport returns the underlying *http.Transport, creating one if the
// client has none (or a non-HTTP/1 transport) set.
func (t *Transport) getTransport() *http.Transport {
	if tr, ok := t.client.Transport.(*http.Transport); ok {
		return tr
	}
	tr := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
	t.client.Transport = tr
	return tr
}

// NewTransport creates a Transport bound to the given session.
func NewTransport(session *Session, opts ...TransportOption) *Transport {
	t := &Transport{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		session:   session,
		userAgent: "gofiledl/0.1",
		headers:   make(map[string]string),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Do executes the request with the transport's common headers applied.
func (t *Transport) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", t.userAgent)
	req.Header.Set("Accept", "*/*")

	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	return t.client.Do(req)
}

// OpenRange opens a download link starting at the given byte offset. It
// returns the body stream and the total file size, or 0 when the server did
// not report a usable Content-Length. Bytes before the offset are never
// re-fetched.
func (t *Transport) OpenRange(ctx context.Context, link string, offset int64) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating download request: %w", err)
	}

	if token := t.session.Token(); token != "" {
		req.Header.Set("Cookie", "accountToken="+token)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	// Compressed bodies would make Content-Length and resume offsets lie
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := t.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("executing download request: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("download request failed: %s", resp.Status)
	}

	// A 200 to a non-zero Range means the server ignored the header and is
	// sending the file from the start; resuming on top of the partial file
	// would corrupt it.
	if resp.StatusCode == http.StatusOK && offset > 0 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("server ignored range request at offset %d", offset)
	}

	var total int64
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	return resp.Body, total, nil
}
