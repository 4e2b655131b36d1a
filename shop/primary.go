package shop

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ecomlab/shoplt/loadgen"
)

// PrimaryUser browses catalog and creates users and products.
type PrimaryUser struct {
	sc *Scenario

	Session *Session
}

// NewPrimaryUser creates primary user with a fresh session.
func (sc *Scenario) NewPrimaryUser() *PrimaryUser {
	return &PrimaryUser{
		sc:      sc,
		Session: newSession(sc.Token, true),
	}
}

// OnStart loads known product ids, it never fails.
func (u *PrimaryUser) OnStart(ctx context.Context) error {
	u.Session.ProductIDs = u.sc.loadProducts(ctx, u.Session)

	return nil
}

func (sc *Scenario) defaultProductIDs() []int64 {
	return append([]int64(nil), sc.Config.DefaultProductIDs...)
}

// loadProducts fetches product catalog, any failure yields default ids.
func (sc *Scenario) loadProducts(ctx context.Context, s *Session) []int64 {
	resp, ok := sc.get(ctx, s, SetupProductsName, ProductsPath, statusIn(http.StatusOK))
	if !ok {
		if ctx.Err() == nil {
			loadgen.Logger.Warnw("could not load products, using defaults",
				"session", s.ID, "status", resp.StatusCode)
		}

		return sc.defaultProductIDs()
	}

	ids, err := ParseProductIDs(resp.Body)
	if err != nil {
		loadgen.Logger.Warnw("could not parse products, using defaults",
			"session", s.ID, "error", err)

		return sc.defaultProductIDs()
	}

	loadgen.Logger.Debugw("loaded product ids", "session", s.ID, "count", len(ids))

	return ids
}

// WaitTime implements loadgen.User.
func (u *PrimaryUser) WaitTime() loadgen.WaitTimeFunc {
	return loadgen.Between(u.sc.Config.Primary.MinWait, u.sc.Config.Primary.MaxWait)
}

// Tasks implements loadgen.User.
func (u *PrimaryUser) Tasks() []loadgen.Task {
	w := u.sc.Config.PrimaryTasks

	return []loadgen.Task{
		{Name: "list products", Weight: w.ListProducts, Do: u.ListProducts},
		{Name: "get product", Weight: w.GetProduct, Do: u.GetProduct},
		{Name: "list categories", Weight: w.ListCategories, Do: u.ListCategories},
		{Name: "list users", Weight: w.ListUsers, Do: u.ListUsers},
		{Name: "create user", Weight: w.CreateUser, Do: u.CreateUser},
		{Name: "create product", Weight: w.CreateProduct, Do: u.CreateProduct},
	}
}

// ListProducts succeeds on 200.
func (u *PrimaryUser) ListProducts(ctx context.Context) error {
	u.sc.get(ctx, u.Session, ProductsName, ProductsPath, statusIn(http.StatusOK))

	return nil
}

// GetProduct fetches random known product, 404 is a success.
func (u *PrimaryUser) GetProduct(ctx context.Context) error {
	id := u.Session.pickID(u.Session.ProductIDs)

	u.sc.get(ctx, u.Session, ProductByIDName, ProductsPath+"/"+strconv.FormatInt(id, 10),
		statusIn(http.StatusOK, http.StatusNotFound))

	return nil
}

// ListCategories succeeds on 200.
func (u *PrimaryUser) ListCategories(ctx context.Context) error {
	u.sc.get(ctx, u.Session, CategoriesName, CategoriesPath, statusIn(http.StatusOK))

	return nil
}

// ListUsers succeeds on 200.
func (u *PrimaryUser) ListUsers(ctx context.Context) error {
	u.sc.get(ctx, u.Session, UsersName, UsersPath, statusIn(http.StatusOK))

	return nil
}

// CreateUser posts unique user, 409 is a success.
func (u *PrimaryUser) CreateUser(ctx context.Context) error {
	_, err := u.sc.createUser(ctx, u.Session)

	return err
}

// createUser posts unique user and retains its id, it returns true if id is known after request.
func (sc *Scenario) createUser(ctx context.Context, s *Session) (bool, error) {
	resp, ok, err := sc.postJSON(ctx, s, UsersName, UsersPath, NewUserPayload(UniqueID(), sc.Config),
		statusIn(http.StatusOK, http.StatusCreated, http.StatusConflict))
	if err != nil || !ok || resp.StatusCode == http.StatusConflict {
		return false, err
	}

	var created struct {
		UserID ID `json:"userId"`
	}

	if err := json.Unmarshal(resp.Body, &created); err != nil {
		loadgen.Logger.Debugw("could not parse created user", "session", s.ID, "error", err)

		return false, nil
	}

	if created.UserID == 0 {
		return false, nil
	}

	s.UserID = int64(created.UserID)

	return true, nil
}

// CreateProduct posts unique product, 500 caused by duplicate SKU is a success.
func (u *PrimaryUser) CreateProduct(ctx context.Context) error {
	s := u.Session

	resp, ok, err := u.sc.postJSON(ctx, s, ProductsName, ProductsPath, s.newProductPayload(UniqueID(), u.sc.Config),
		statusIn(http.StatusOK, http.StatusCreated, http.StatusInternalServerError))
	if err != nil || !ok || resp.StatusCode == http.StatusInternalServerError {
		return err
	}

	var created struct {
		ProductID ID `json:"productId"`
	}

	if err := json.Unmarshal(resp.Body, &created); err != nil {
		loadgen.Logger.Debugw("could not parse created product", "session", s.ID, "error", err)

		return nil
	}

	if created.ProductID != 0 {
		s.ProductIDs = append(s.ProductIDs, int64(created.ProductID))
	}

	return nil
}
