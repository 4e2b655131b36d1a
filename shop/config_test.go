package shop_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ecomlab/shoplt/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := shop.DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, shop.ProfileConfig{Weight: 3, MinWait: time.Second, MaxWait: 3 * time.Second}, cfg.Primary)
	assert.Equal(t, shop.ProfileConfig{Weight: 1, MinWait: 2 * time.Second, MaxWait: 5 * time.Second}, cfg.Health)
	assert.Equal(t, 0, cfg.Checkout.Weight)
	assert.Equal(t, shop.PrimaryTasks{
		ListProducts: 5, GetProduct: 3, ListCategories: 3, ListUsers: 2, CreateUser: 1, CreateProduct: 1,
	}, cfg.PrimaryTasks)
	assert.Equal(t, shop.HealthTasks{UserService: 1, ProductService: 1, OrderService: 1}, cfg.HealthTasks)
	assert.Equal(t, []int64{1, 2, 3}, cfg.DefaultProductIDs)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := shop.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, shop.DefaultConfig(), cfg)

	name := filepath.Join(t.TempDir(), "shop.yaml")
	require.NoError(t, os.WriteFile(name, []byte(`
checkout:
  weight: 2
primaryTasks:
  createProduct: 0
health:
  minWait: 100ms
  maxWait: 200ms
defaultProductIds: [7]
`), 0o600))

	cfg, err = shop.LoadConfig(name)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Checkout.Weight)
	assert.Equal(t, time.Second, cfg.Checkout.MinWait)
	assert.Equal(t, 0, cfg.PrimaryTasks.CreateProduct)
	assert.Equal(t, 5, cfg.PrimaryTasks.ListProducts)
	assert.Equal(t, 100*time.Millisecond, cfg.Health.MinWait)
	assert.Equal(t, 1, cfg.Health.Weight)
	assert.Equal(t, []int64{7}, cfg.DefaultProductIDs)

	_, err = shop.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestParseConfig_invalid(t *testing.T) {
	for _, doc := range []string{
		"primary: {weight: -1}",
		"health: {minWait: 3s, maxWait: 1s}",
		"primary: {weight: 0}\nhealth: {weight: 0}",
		"healthTasks: {userService: 0, productService: 0, orderService: 0}",
		"checkoutTasks: {getOrder: -1}",
		"unknownField: 1",
	} {
		_, err := shop.ParseConfig([]byte(doc))
		assert.Error(t, err, doc)
	}

	_, err := shop.ParseConfig([]byte("primary: {weight: -1}"))
	assert.ErrorIs(t, err, shop.ErrInvalidConfig)

	cfg, err := shop.ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, shop.DefaultConfig(), cfg)
}
