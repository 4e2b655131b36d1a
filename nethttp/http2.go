package nethttp

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"

	"golang.org/x/net/http2"
)

// makeTransport2 creates HTTP/2 transport, plain http targets are served with prior knowledge (h2c).
func (c *Client) makeTransport2() (http.RoundTripper, error) {
	if strings.HasPrefix(c.baseURL, "https://") {
		t := c.makeTransport()

		if err := http2.ConfigureTransport(t); err != nil {
			return nil, err
		}

		return t, nil
	}

	d := &net.Dialer{}

	return &http2.Transport{
		AllowHTTP:          true,
		DisableCompression: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return conn, err
			}

			return countingConn{c: c, Conn: conn}, nil
		},
	}, nil
}
