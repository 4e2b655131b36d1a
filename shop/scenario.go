// Package shop defines simulated users of e-commerce gateway.
package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ecomlab/shoplt/loadgen"
	"github.com/ecomlab/shoplt/nethttp"
)

// Endpoints relative to gateway host.
const (
	ProductsPath      = "/product-service/api/products"
	CategoriesPath    = "/product-service/api/categories"
	UsersPath         = "/user-service/api/users"
	CartsPath         = "/order-service/api/carts"
	OrdersPath        = "/order-service/api/orders"
	UserHealthPath    = "/user-service/actuator/health"
	ProductHealthPath = "/product-service/actuator/health"
	OrderHealthPath   = "/order-service/actuator/health"
)

// Stat names.
const (
	SetupProductsName = "[Setup] Get Products"
	ProductsName      = "/products"
	ProductByIDName   = "/products/{id}"
	CategoriesName    = "/categories"
	UsersName         = "/users"
	CartsName         = "/carts"
	OrdersName        = "/orders"
	OrderByIDName     = "/orders/{id}"
	UserHealthName    = "Health: user-service"
	ProductHealthName = "Health: product-service"
	OrderHealthName   = "Health: order-service"
)

// ErrUnexpectedStatus is a failure reason of a response with status that is not expected.
var ErrUnexpectedStatus = errors.New("unexpected status")

// Transport sends a single HTTP request.
type Transport interface {
	Do(ctx context.Context, r nethttp.Request) (nethttp.Response, error)
}

// Scenario creates user profiles sharing transport and reporter.
type Scenario struct {
	Config    Config
	Transport Transport
	Reporter  loadgen.Reporter

	// Token is a bearer token of all requests.
	Token string

	// Now is time.Now by default.
	Now func() time.Time
}

func (sc *Scenario) now() time.Time {
	if sc.Now != nil {
		return sc.Now()
	}

	return time.Now()
}

// Profiles returns primary, health check and checkout profiles.
func (sc *Scenario) Profiles() []loadgen.Profile {
	return []loadgen.Profile{
		{
			Name:    "PrimaryUser",
			Weight:  sc.Config.Primary.Weight,
			NewUser: func(int) loadgen.User { return sc.NewPrimaryUser() },
		},
		{
			Name:    "HealthCheckUser",
			Weight:  sc.Config.Health.Weight,
			NewUser: func(int) loadgen.User { return sc.NewHealthUser() },
		},
		{
			Name:    "CheckoutUser",
			Weight:  sc.Config.Checkout.Weight,
			NewUser: func(int) loadgen.User { return sc.NewCheckoutUser() },
		},
	}
}

func statusIn(codes ...int) func(code int) bool {
	return func(code int) bool {
		for _, c := range codes {
			if c == code {
				return true
			}
		}

		return false
	}
}

// do sends request and reports its outcome under name.
//
// It returns response and true if request succeeded according to ok.
// Requests interrupted by context cancellation are not reported.
func (sc *Scenario) do(ctx context.Context, name string, req nethttp.Request, ok func(code int) bool) (nethttp.Response, bool) {
	resp, err := sc.Transport.Do(ctx, req)
	if err != nil && ctx.Err() != nil {
		return resp, false
	}

	res := loadgen.Result{
		Method:  req.Method,
		Name:    name,
		Elapsed: resp.Elapsed,
		Size:    int64(len(resp.Body)),
		Err:     err,
	}

	if err == nil && !ok(resp.StatusCode) {
		res.Err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if sc.Reporter != nil {
		sc.Reporter.Report(res)
	}

	return resp, res.Err == nil
}

func (sc *Scenario) postJSON(ctx context.Context, s *Session, name, path string, payload any, ok func(int) bool) (nethttp.Response, bool, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nethttp.Response{}, false, fmt.Errorf("failed to encode %s payload: %w", name, err)
	}

	resp, success := sc.do(ctx, name, nethttp.Request{
		Method: http.MethodPost,
		Path:   path,
		Header: s.Header,
		Body:   body,
	}, ok)

	return resp, success, nil
}

func (sc *Scenario) get(ctx context.Context, s *Session, name, path string, ok func(int) bool) (nethttp.Response, bool) {
	return sc.do(ctx, name, nethttp.Request{
		Method: http.MethodGet,
		Path:   path,
		Header: s.Header,
	}, ok)
}

// pickID returns random known id or random id in [1, 10] if none is known.
func (s *Session) pickID(ids []int64) int64 {
	if len(ids) == 0 {
		return int64(s.faker.Number(1, 10))
	}

	return ids[s.faker.Number(0, len(ids)-1)]
}
