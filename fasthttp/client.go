// Package fasthttp implements HTTP transport with fasthttp.
package fasthttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ecomlab/shoplt/nethttp"
	"github.com/ecomlab/shoplt/report"
	"github.com/valyala/fasthttp"
)

// Client sends HTTP requests.
type Client struct {
	bytesWritten int64
	bytesRead    int64

	start time.Time

	mu       sync.Mutex
	respCode map[int]int
	respBody map[int][]byte

	baseURL string
	f       nethttp.Flags
	client  *fasthttp.Client
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

	return res
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

// NewClient creates fasthttp client, HTTP3 and circuit breaker options are not supported.
func NewClient(f nethttp.Flags) (*Client, error) {
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

	c.start = time.Now()
	c.respCode = make(map[int]int, 5)
	c.respBody = make(map[int][]byte, 5)
	c.f = f
	c.baseURL = strings.TrimSuffix(u.String(), "/")

	c.client = &fasthttp.Client{
		MaxConnsPerHost: f.Concurrency,
	}
	c.client.Dial = func(addr string) (net.Conn, error) {
		conn, err := fasthttp.Dial(addr)
		if err != nil {
			return conn, err
		}

		return countingConn{
			c:    &c,
			Conn: conn,
		}, nil
	}

	if _, ok := f.HeaderMap["User-Agent"]; !ok {
		c.client.Name = "shoplt"
	}

	return &c, nil
}

// Print reports transport stats.
func (c *Client) Print(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()

	codes := make([]int, 0, len(c.respCode))
	for code := range c.respCode {
		codes = append(codes, code)
	}

	if len(codes) == 0 {
		return
	}

	sort.Ints(codes)

	counts := ""
	resps := ""

	for _, code := range codes {
		counts += fmt.Sprintf("[%d] %d\n", code, c.respCode[code])
		resps += fmt.Sprintf("[%d]\n%s\n", code, string(c.respBody[code]))
	}

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Responses by status code")
	_, _ = fmt.Fprintln(w, counts)

	_, _ = fmt.Fprintln(w, "Bytes read", report.ByteSize(atomic.LoadInt64(&c.bytesRead)))
	_, _ = fmt.Fprintln(w, "Bytes written", report.ByteSize(atomic.LoadInt64(&c.bytesWritten)))

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, resps)
}

// Do sends a single http request, context deadline is respected, cancellation is not.
func (c *Client) Do(ctx context.Context, r nethttp.Request) (nethttp.Response, error) {
	if err := ctx.Err(); err != nil {
		return nethttp.Response{}, err
	}

	start := time.Now()

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()

	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	if r.Body != nil {
		req.SetBody(r.Body)
	}

	req.Header.SetMethod(r.Method)
	req.SetRequestURI(c.baseURL + r.Path)

	for k, v := range c.f.HeaderMap {
		req.Header.Set(k, v)
	}

	for k, vv := range r.Header {
		for _, v := range vv {
			req.Header.Set(k, v)
		}
	}

	if c.f.NoKeepalive {
		req.SetConnectionClose()
	}

	deadline, hasDeadline := ctx.Deadline()
	if c.f.Timeout > 0 && (!hasDeadline || time.Until(deadline) > c.f.Timeout) {
		deadline, hasDeadline = start.Add(c.f.Timeout), true
	}

	var err error
	if hasDeadline {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.Do(req, resp)
	}

	if err != nil {
		return nethttp.Response{Elapsed: time.Since(start)}, err
	}

	res := nethttp.Response{
		StatusCode: resp.StatusCode(),
		Header:     make(http.Header),
		// Body is owned by pooled response, so it is copied.
		Body:    append([]byte(nil), resp.Body()...),
		Elapsed: time.Since(start),
	}

	resp.Header.VisitAll(func(k, v []byte) {
		res.Header.Add(string(k), string(v))
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	c.respCode[res.StatusCode]++

	if c.respCode[res.StatusCode] == 1 {
		if enc := resp.Header.Peek("Content-Encoding"); len(enc) > 0 {
			c.respBody[res.StatusCode] = []byte("<" + string(enc) + "-encoded-content>")
		} else {
			c.respBody[res.StatusCode] = report.PeekBody(res.Body, 1000)
		}
	}

	return res, nil
}
