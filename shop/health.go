package shop

import (
	"context"
	"net/http"

	"github.com/ecomlab/shoplt/loadgen"
)

// HealthUser checks health endpoints of services.
type HealthUser struct {
	sc      *Scenario
	session *Session
}

// NewHealthUser creates health check user, its requests carry only authorization header.
func (sc *Scenario) NewHealthUser() *HealthUser {
	return &HealthUser{
		sc:      sc,
		session: newSession(sc.Token, false),
	}
}

// WaitTime implements loadgen.User.
func (u *HealthUser) WaitTime() loadgen.WaitTimeFunc {
	return loadgen.Between(u.sc.Config.Health.MinWait, u.sc.Config.Health.MaxWait)
}

// Tasks implements loadgen.User.
func (u *HealthUser) Tasks() []loadgen.Task {
	w := u.sc.Config.HealthTasks

	return []loadgen.Task{
		{Name: "user service health", Weight: w.UserService, Do: u.check(UserHealthName, UserHealthPath)},
		{Name: "product service health", Weight: w.ProductService, Do: u.check(ProductHealthName, ProductHealthPath)},
		{Name: "order service health", Weight: w.OrderService, Do: u.check(OrderHealthName, OrderHealthPath)},
	}
}

// check succeeds strictly on 200.
func (u *HealthUser) check(name, path string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		u.sc.get(ctx, u.session, name, path, statusIn(http.StatusOK))

		return nil
	}
}
