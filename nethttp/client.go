// Package nethttp implements HTTP transport with net/http.
package nethttp

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecomlab/shoplt/report"
	"github.com/vearutop/dynhist-go"
)

// Flags control HTTP transport setup.
type Flags struct {
	// URL is a base URL of target, request paths are appended to it.
	URL string

	HeaderMap   map[string]string
	Timeout     time.Duration
	NoKeepalive bool
	HTTP2       bool
	HTTP3       bool
	Breaker     bool

	// Concurrency is a number of idle connections kept per host.
	Concurrency int
}

// Request describes a single HTTP request.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// Elapsed is a time to send request and read whole response.
	Elapsed time.Duration
}

// Client sends HTTP requests and collects transport stats.
type Client struct {
	start time.Time

	dnsHist  *dynhist.Collector
	connHist *dynhist.Collector
	tlsHist  *dynhist.Collector

	upstreamHist        *dynhist.Collector
	upstreamHistPrecise *dynhist.Collector

	mu       sync.Mutex
	respCode map[int]int
	respBody map[int][]byte

	bytesWritten int64
	bytesRead    int64
	cbRejected   int64

	f       Flags
	baseURL string

	transport *http.Transport

	// tr is an HTTP/2 or HTTP/3 transport, nil for default.
	tr      http.RoundTripper
	wrapped http.RoundTripper
	trOnce  sync.Once

	cb func(tr http.RoundTripper) http.RoundTripper

	// PrepareRoundTripper is applied to every transport created by client.
	PrepareRoundTripper func(tr http.RoundTripper) http.RoundTripper
}

// NewClient creates HTTP client, URL without scheme defaults to http.
func NewClient(f Flags) (*Client, error) {
	if !strings.Contains(f.URL, "://") {
		f.URL = "http://" + f.URL
	}

	u, err := url.Parse(f.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("missing host in URL %q", f.URL)
	}

	c := Client{}

	if f.Concurrency <= 0 {
		f.Concurrency = 50
	}

	headers := make(map[string]string, len(f.HeaderMap)+1)
	for k, v := range f.HeaderMap {
		headers[k] = v
	}

	if _, ok := headers["User-Agent"]; !ok {
		headers["User-Agent"] = "shoplt"
	}

	f.HeaderMap = headers

	c.f = f
	c.baseURL = strings.TrimSuffix(u.String(), "/")
	c.start = time.Now()

	c.dnsHist = &dynhist.Collector{BucketsLimit: 10, WeightFunc: dynhist.LatencyWidth}
	c.connHist = &dynhist.Collector{BucketsLimit: 10, WeightFunc: dynhist.LatencyWidth}
	c.tlsHist = &dynhist.Collector{BucketsLimit: 10, WeightFunc: dynhist.LatencyWidth}
	c.upstreamHist = &dynhist.Collector{BucketsLimit: 10, WeightFunc: dynhist.LatencyWidth}
	c.upstreamHistPrecise = &dynhist.Collector{BucketsLimit: 100, WeightFunc: dynhist.LatencyWidth}
	c.respCode = make(map[int]int, 5)
	c.respBody = make(map[int][]byte, 5)

	c.transport = c.makeTransport()
	c.transport.MaxIdleConnsPerHost = f.Concurrency

	switch {
	case f.HTTP3:
		c.tr = makeTransport3()
	case f.HTTP2:
		if c.tr, err = c.makeTransport2(); err != nil {
			return nil, fmt.Errorf("failed to configure http2: %w", err)
		}
	}

	if f.Breaker {
		c.cb = CircuitBreakerMiddleware(DefaultBreakerSettings("shoplt"), &c.cbRejected)
	}

	return &c, nil
}

// BaseURL returns normalized target URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type countingConn struct {
	c *Client
	net.Conn
}

// Read reads data from the connection.
func (cc countingConn) Read(b []byte) (n int, err error) {
	n, err = cc.Conn.Read(b)
	atomic.AddInt64(&cc.c.bytesRead, int64(n))

	return n, err
}

// Write writes data to the connection.
func (cc countingConn) Write(b []byte) (n int, err error) {
	n, err = cc.Conn.Write(b)
	atomic.AddInt64(&cc.c.bytesWritten, int64(n))

	return n, err
}

func (c *Client) makeTransport() *http.Transport {
	d := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	t := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := d.DialContext(ctx, network, addr)
		if err != nil {
			return conn, err
		}

		return countingConn{
			c:    c,
			Conn: conn,
		}, nil
	}

	return t
}

func (c *Client) wrap(tr http.RoundTripper) http.RoundTripper {
	if c.PrepareRoundTripper != nil {
		tr = c.PrepareRoundTripper(tr)
	}

	if c.cb != nil {
		tr = c.cb(tr)
	}

	return tr
}

// roundTripper returns transport for a request and a cleanup function.
func (c *Client) roundTripper() (http.RoundTripper, func()) {
	if c.f.NoKeepalive && c.tr == nil {
		t := c.makeTransport()
		t.DisableKeepAlives = true

		return c.wrap(t), t.CloseIdleConnections
	}

	c.trOnce.Do(func() {
		tr := c.tr
		if tr == nil {
			tr = c.transport
		}

		c.wrapped = c.wrap(tr)
	})

	return c.wrapped, func() {}
}

// Do sends request and reads response body.
//
// Non-2xx statuses are not errors, error is returned only when response could not be received.
func (c *Client) Do(ctx context.Context, r Request) (Response, error) {
	start := time.Now()

	if c.f.Timeout > 0 {
		var cancel func()

		ctx, cancel = context.WithTimeout(ctx, c.f.Timeout)
		defer cancel()
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, r.Method, c.baseURL+r.Path, body)
	if err != nil {
		return Response{}, err
	}

	for k, v := range c.f.HeaderMap {
		req.Header.Set(k, v)
	}

	for k, v := range r.Header {
		req.Header[k] = v
	}

	var dnsStart, connStart, tlsStart time.Time

	trace := &httptrace.ClientTrace{
		DNSStart: func(_ httptrace.DNSStartInfo) {
			dnsStart = time.Now()
		},
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			c.dnsHist.Add(report.Ms(time.Since(dnsStart)))
		},

		ConnectStart: func(_, _ string) {
			connStart = time.Now()
		},
		ConnectDone: func(_, _ string, _ error) {
			c.connHist.Add(report.Ms(time.Since(connStart)))
		},

		TLSHandshakeStart: func() {
			tlsStart = time.Now()
		},
		TLSHandshakeDone: func(tls.ConnectionState, error) {
			c.tlsHist.Add(report.Ms(time.Since(tlsStart)))
		},
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	tr, cleanup := c.roundTripper()
	defer cleanup()

	resp, err := tr.RoundTrip(req)
	if err != nil {
		return Response{Elapsed: time.Since(start)}, err
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	res := Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
		Elapsed:    time.Since(start),
	}

	if err != nil {
		return res, fmt.Errorf("failed to read response body: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.respCode[resp.StatusCode]++

	if envoyUpstreamMS := resp.Header.Get("X-Envoy-Upstream-Service-Time"); envoyUpstreamMS != "" {
		if ms, err := strconv.Atoi(envoyUpstreamMS); err == nil {
			c.upstreamHist.Add(float64(ms))
			c.upstreamHistPrecise.Add(float64(ms))
		}
	}

	if c.respCode[resp.StatusCode] == 1 {
		if enc := resp.Header.Get("Content-Encoding"); enc != "" {
			c.respBody[resp.StatusCode] = []byte("<" + enc + "-encoded-content>")
		} else {
			c.respBody[resp.StatusCode] = report.PeekBody(respBody, 1000)
		}
	}

	return res, nil
}

// CloseIdleConnections closes idle keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.transport.CloseIdleConnections()
}

// RequestCounts returns distribution by status code.
func (c *Client) RequestCounts() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := make(map[string]int, len(c.respCode))
	for code, cnt := range c.respCode {
		res[strconv.Itoa(code)] = cnt
	}

	return res
}

// Metrics return additional stats.
func (c *Client) Metrics() map[string]map[string]float64 {
	elapsed := time.Since(c.start).Seconds()

	res := map[string]map[string]float64{
		"Bandwidth, MB/s": {
			"Read":  float64(atomic.LoadInt64(&c.bytesRead)) / (1024 * 1024 * elapsed),
			"Write": float64(atomic.LoadInt64(&c.bytesWritten)) / (1024 * 1024 * elapsed),
		},
	}

	if c.f.Breaker {
		res["Circuit breaker"] = map[string]float64{
			"Rejected": float64(atomic.LoadInt64(&c.cbRejected)),
		}
	}

	return res
}

// Print prints transport stats.
func (c *Client) Print(w io.Writer) {
	_, _ = fmt.Fprintln(w)

	if c.upstreamHist.Count > 0 {
		_, _ = fmt.Fprintln(w, "Envoy upstream latency percentiles:")
		_, _ = fmt.Fprintf(w, "99%%: %.0fms\n", c.upstreamHistPrecise.Percentile(99))
		_, _ = fmt.Fprintf(w, "95%%: %.0fms\n", c.upstreamHistPrecise.Percentile(95))
		_, _ = fmt.Fprintf(w, "90%%: %.0fms\n", c.upstreamHistPrecise.Percentile(90))
		_, _ = fmt.Fprintf(w, "50%%: %.0fms\n\n", c.upstreamHistPrecise.Percentile(50))

		_, _ = fmt.Fprintln(w, "Envoy upstream latency distribution in ms:")
		_, _ = fmt.Fprintln(w, c.upstreamHist.String())
	}

	if c.dnsHist.Count > 0 {
		_, _ = fmt.Fprintln(w, "DNS latency distribution in ms:")
		_, _ = fmt.Fprintln(w, c.dnsHist.String())
	}

	if c.tlsHist.Count > 0 {
		_, _ = fmt.Fprintln(w, "TLS handshake latency distribution in ms:")
		_, _ = fmt.Fprintln(w, c.tlsHist.String())
	}

	if c.connHist.Count > 0 {
		_, _ = fmt.Fprintln(w, "Connection latency distribution in ms:")
		_, _ = fmt.Fprintln(w, c.connHist.String())
	}

	_, _ = fmt.Fprintln(w, "Responses by status code")

	c.mu.Lock()
	codes := make([]int, 0, len(c.respCode))

	for code := range c.respCode {
		codes = append(codes, code)
	}

	sort.Ints(codes)

	counts := ""
	resps := ""

	for _, code := range codes {
		counts += fmt.Sprintf("[%d] %d\n", code, c.respCode[code])
		resps += fmt.Sprintf("[%d]\n%s\n", code, string(c.respBody[code]))
	}
	c.mu.Unlock()

	_, _ = fmt.Fprintln(w, counts)

	_, _ = fmt.Fprintln(w, "Bytes read", report.ByteSize(atomic.LoadInt64(&c.bytesRead)))
	_, _ = fmt.Fprintln(w, "Bytes written", report.ByteSize(atomic.LoadInt64(&c.bytesWritten)))

	if c.f.Breaker {
		_, _ = fmt.Fprintln(w, "Rejected by circuit breaker", atomic.LoadInt64(&c.cbRejected))
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, resps)
}
