package shop_test

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/ecomlab/shoplt/auth"
	"github.com/ecomlab/shoplt/loadgen"
	"github.com/ecomlab/shoplt/s3"
	"github.com/ecomlab/shoplt/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fastConfig = `
primary:
  weight: 1
  minWait: 0s
  maxWait: 0s
health:
  weight: 1
  minWait: 0s
  maxWait: 0s
`

func writeConfig(t *testing.T, data string) string {
	t.Helper()

	fn := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(data), 0o600))

	return fn
}

func TestRun(t *testing.T) {
	for _, fast := range []bool{false, true} {
		t.Run(map[bool]string{false: "nethttp", true: "fasthttp"}[fast], func(t *testing.T) {
			g := newGateway(t, map[string]http.HandlerFunc{
				"GET /product-service/api/products":    reply(http.StatusOK, `{"collection":[{"productId":1}]}`),
				"GET /product-service/api/products/1":  reply(http.StatusOK, `{"productId":1}`),
				"GET /product-service/api/categories":  reply(http.StatusOK, `[]`),
				"GET /user-service/api/users":          reply(http.StatusOK, `[]`),
				"POST /user-service/api/users":         reply(http.StatusConflict, ``),
				"POST /product-service/api/products":   reply(http.StatusInternalServerError, ``),
				"GET /user-service/actuator/health":    reply(http.StatusOK, `{"status":"UP"}`),
				"GET /product-service/actuator/health": reply(http.StatusOK, `{"status":"UP"}`),
				"GET /order-service/actuator/health":   reply(http.StatusOK, `{"status":"UP"}`),
			})

			out := bytes.NewBuffer(nil)
			prefix := filepath.Join(t.TempDir(), "report")

			lf := loadgen.Flags{
				Host:      g.URL,
				Users:     2,
				SpawnRate: 100,
				Number:    40,
				CSVPrefix: prefix,
				Output:    out,
			}

			f := shop.Flags{
				ConfigFile:       writeConfig(t, fastConfig),
				Auth:             auth.Flags{Secret: "secret", Subject: "testuser"},
				Headers:          []string{"X-Load-Test: 1"},
				Fast:             fast,
				PrometheusListen: "127.0.0.1:0",
			}

			require.NoError(t, shop.Run(context.Background(), lf, f))

			assert.Contains(t, out.String(), "Total requests:")
			assert.Contains(t, out.String(), "Failed requests: 0")
			assert.Contains(t, out.String(), "Aggregated")

			for _, fn := range []string{prefix + "_stats.csv", prefix + "_failures.csv"} {
				_, err := os.Stat(fn)
				assert.NoError(t, err, fn)
			}

			req := g.last(t)
			assert.Equal(t, "1", req.header.Get("X-Load-Test"))
			assert.Regexp(t, `^Bearer [\w-]+\.[\w-]+\.[\w-]+$`, req.header.Get("Authorization"))
		})
	}
}

func TestRun_staticToken(t *testing.T) {
	g := newGateway(t, map[string]http.HandlerFunc{
		"GET /user-service/actuator/health": reply(http.StatusOK, `{}`),
	})

	lf := loadgen.Flags{Host: g.URL, Users: 1, Number: 3, Output: bytes.NewBuffer(nil)}
	f := shop.Flags{
		ConfigFile: writeConfig(t, `
primary: {weight: 0}
health: {weight: 1, minWait: 0s, maxWait: 0s}
healthTasks: {userService: 1, productService: 0, orderService: 0}
`),
		Auth: auth.Flags{Token: "static"},
	}

	require.NoError(t, shop.Run(context.Background(), lf, f))
	assert.Equal(t, "Bearer static", g.last(t).header.Get("Authorization"))
}

func TestRun_invalid(t *testing.T) {
	lf := loadgen.Flags{Host: "http://127.0.0.1:1", Number: 1, Output: bytes.NewBuffer(nil)}
	secret := auth.Flags{Secret: "secret"}

	err := shop.Run(context.Background(), lf, shop.Flags{
		Auth: secret,
		S3:   s3.Flags{Bucket: "reports"},
	})
	assert.ErrorIs(t, err, shop.ErrUploadNeedsCSV)

	err = shop.Run(context.Background(), lf, shop.Flags{
		Auth:       secret,
		ConfigFile: writeConfig(t, "primary: {weight: -1}"),
	})
	assert.ErrorIs(t, err, shop.ErrInvalidConfig)

	err = shop.Run(context.Background(), lf, shop.Flags{
		Auth:       secret,
		ConfigFile: filepath.Join(t.TempDir(), "missing.yaml"),
	})
	assert.Error(t, err)

	err = shop.Run(context.Background(), lf, shop.Flags{})
	assert.ErrorIs(t, err, auth.ErrNoSecret)

	err = shop.Run(context.Background(), lf, shop.Flags{Auth: secret, Headers: []string{"broken"}})
	assert.Error(t, err)

	err = shop.Run(context.Background(), loadgen.Flags{Host: "http://", Number: 1}, shop.Flags{Auth: secret})
	assert.Error(t, err)
}

func TestParseHeaders(t *testing.T) {
	h, err := shop.ParseHeaders([]string{"x-trace: abc", "Accept:  text/plain ", "X-Empty:"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"X-Trace": "abc",
		"Accept":  "text/plain",
		"X-Empty": "",
	}, h)

	_, err = shop.ParseHeaders([]string{"no colon"})
	assert.Error(t, err)

	_, err = shop.ParseHeaders([]string{": value"})
	assert.Error(t, err)
}
