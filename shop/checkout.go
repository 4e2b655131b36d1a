package shop

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ecomlab/shoplt/loadgen"
)

// CheckoutUser creates carts and orders.
type CheckoutUser struct {
	sc *Scenario

	Session  *Session
	CartID   int64
	OrderIDs []int64
}

// NewCheckoutUser creates checkout user with a fresh session.
func (sc *Scenario) NewCheckoutUser() *CheckoutUser {
	return &CheckoutUser{
		sc:      sc,
		Session: newSession(sc.Token, true),
	}
}

// WaitTime implements loadgen.User.
func (u *CheckoutUser) WaitTime() loadgen.WaitTimeFunc {
	return loadgen.Between(u.sc.Config.Checkout.MinWait, u.sc.Config.Checkout.MaxWait)
}

// Tasks implements loadgen.User.
func (u *CheckoutUser) Tasks() []loadgen.Task {
	w := u.sc.Config.CheckoutTasks

	return []loadgen.Task{
		{Name: "checkout", Weight: w.Checkout, Do: u.Checkout},
		{Name: "list orders", Weight: w.ListOrders, Do: u.ListOrders},
		{Name: "get order", Weight: w.GetOrder, Do: u.GetOrder},
	}
}

// Checkout creates user if needed, then cart and order, flow stops at the first step without id.
func (u *CheckoutUser) Checkout(ctx context.Context) error {
	s := u.Session

	if s.UserID == 0 {
		created, err := u.sc.createUser(ctx, s)
		if err != nil || !created {
			return err
		}
	}

	resp, ok, err := u.sc.postJSON(ctx, s, CartsName, CartsPath, CartPayload{UserID: s.UserID},
		statusIn(http.StatusOK, http.StatusCreated))
	if err != nil || !ok {
		return err
	}

	var cart struct {
		CartID ID `json:"cartId"`
	}

	if err := json.Unmarshal(resp.Body, &cart); err != nil || cart.CartID == 0 {
		loadgen.Logger.Debugw("could not parse created cart", "session", s.ID, "error", err)

		return nil
	}

	u.CartID = int64(cart.CartID)

	resp, ok, err = u.sc.postJSON(ctx, s, OrdersName, OrdersPath, s.newOrderPayload(u.CartID, u.sc.now()),
		statusIn(http.StatusOK, http.StatusCreated))
	if err != nil || !ok {
		return err
	}

	var order struct {
		OrderID ID `json:"orderId"`
	}

	if err := json.Unmarshal(resp.Body, &order); err != nil || order.OrderID == 0 {
		loadgen.Logger.Debugw("could not parse created order", "session", s.ID, "error", err)

		return nil
	}

	u.OrderIDs = append(u.OrderIDs, int64(order.OrderID))

	return nil
}

// ListOrders succeeds on 200.
func (u *CheckoutUser) ListOrders(ctx context.Context) error {
	u.sc.get(ctx, u.Session, OrdersName, OrdersPath, statusIn(http.StatusOK))

	return nil
}

// GetOrder fetches random created order, 404 is a success.
func (u *CheckoutUser) GetOrder(ctx context.Context) error {
	id := u.Session.pickID(u.OrderIDs)

	u.sc.get(ctx, u.Session, OrderByIDName, OrdersPath+"/"+strconv.FormatInt(id, 10),
		statusIn(http.StatusOK, http.StatusNotFound))

	return nil
}
