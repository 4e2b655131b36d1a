package shop

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps scenario configuration validation errors.
var ErrInvalidConfig = errors.New("shop: invalid configuration")

// ProfileConfig controls population share and think time of a user profile.
type ProfileConfig struct {
	// Weight is a population weight, zero disables profile.
	Weight  int           `yaml:"weight"`
	MinWait time.Duration `yaml:"minWait"`
	MaxWait time.Duration `yaml:"maxWait"`
}

func (p ProfileConfig) validate(name string) error {
	if p.Weight < 0 {
		return fmt.Errorf("%w: %s.weight must not be negative", ErrInvalidConfig, name)
	}

	if p.MinWait < 0 || p.MaxWait < p.MinWait {
		return fmt.Errorf("%w: %s wait must satisfy 0 <= minWait <= maxWait", ErrInvalidConfig, name)
	}

	return nil
}

// PrimaryTasks are task weights of primary users.
type PrimaryTasks struct {
	ListProducts   int `yaml:"listProducts"`
	GetProduct     int `yaml:"getProduct"`
	ListCategories int `yaml:"listCategories"`
	ListUsers      int `yaml:"listUsers"`
	CreateUser     int `yaml:"createUser"`
	CreateProduct  int `yaml:"createProduct"`
}

// HealthTasks are task weights of health check users.
type HealthTasks struct {
	UserService    int `yaml:"userService"`
	ProductService int `yaml:"productService"`
	OrderService   int `yaml:"orderService"`
}

// CheckoutTasks are task weights of checkout users.
type CheckoutTasks struct {
	Checkout   int `yaml:"checkout"`
	ListOrders int `yaml:"listOrders"`
	GetOrder   int `yaml:"getOrder"`
}

// Config describes scenario, fields that are absent in YAML keep default values.
type Config struct {
	Primary      ProfileConfig `yaml:"primary"`
	PrimaryTasks PrimaryTasks  `yaml:"primaryTasks"`

	Health      ProfileConfig `yaml:"health"`
	HealthTasks HealthTasks   `yaml:"healthTasks"`

	Checkout      ProfileConfig `yaml:"checkout"`
	CheckoutTasks CheckoutTasks `yaml:"checkoutTasks"`

	// DefaultProductIDs are used when product catalog can not be loaded.
	DefaultProductIDs []int64 `yaml:"defaultProductIds"`

	Password        string `yaml:"password"`
	UserImageURL    string `yaml:"userImageUrl"`
	ProductImageURL string `yaml:"productImageUrl"`
}

// DefaultConfig returns stock scenario.
func DefaultConfig() Config {
	return Config{
		Primary: ProfileConfig{Weight: 3, MinWait: time.Second, MaxWait: 3 * time.Second},
		PrimaryTasks: PrimaryTasks{
			ListProducts:   5,
			GetProduct:     3,
			ListCategories: 3,
			ListUsers:      2,
			CreateUser:     1,
			CreateProduct:  1,
		},

		Health:      ProfileConfig{Weight: 1, MinWait: 2 * time.Second, MaxWait: 5 * time.Second},
		HealthTasks: HealthTasks{UserService: 1, ProductService: 1, OrderService: 1},

		Checkout:      ProfileConfig{Weight: 0, MinWait: time.Second, MaxWait: 3 * time.Second},
		CheckoutTasks: CheckoutTasks{Checkout: 1, ListOrders: 2, GetOrder: 1},

		DefaultProductIDs: []int64{1, 2, 3},

		Password:        "LoadTest123!",
		UserImageURL:    "https://example.com/avatar.jpg",
		ProductImageURL: "https://example.com/product.jpg",
	}
}

// LoadConfig reads YAML file on top of DefaultConfig, empty path yields defaults.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // File name is provided by user.
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of DefaultConfig and validates result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func sumWeights(name string, weights ...int) (int, error) {
	total := 0

	for _, w := range weights {
		if w < 0 {
			return 0, fmt.Errorf("%w: %s task weights must not be negative", ErrInvalidConfig, name)
		}

		total += w
	}

	return total, nil
}

// Validate checks weights and wait bounds.
func (c Config) Validate() error {
	profiles := []struct {
		name    string
		p       ProfileConfig
		weights []int
	}{
		{"primary", c.Primary, []int{
			c.PrimaryTasks.ListProducts, c.PrimaryTasks.GetProduct, c.PrimaryTasks.ListCategories,
			c.PrimaryTasks.ListUsers, c.PrimaryTasks.CreateUser, c.PrimaryTasks.CreateProduct,
		}},
		{"health", c.Health, []int{c.HealthTasks.UserService, c.HealthTasks.ProductService, c.HealthTasks.OrderService}},
		{"checkout", c.Checkout, []int{c.CheckoutTasks.Checkout, c.CheckoutTasks.ListOrders, c.CheckoutTasks.GetOrder}},
	}

	spawnable := 0

	for _, pr := range profiles {
		if err := pr.p.validate(pr.name); err != nil {
			return err
		}

		total, err := sumWeights(pr.name, pr.weights...)
		if err != nil {
			return err
		}

		if pr.p.Weight == 0 {
			continue
		}

		if total == 0 {
			return fmt.Errorf("%w: %s profile has no tasks with positive weight", ErrInvalidConfig, pr.name)
		}

		spawnable++
	}

	if spawnable == 0 {
		return fmt.Errorf("%w: at least one profile must have positive weight", ErrInvalidConfig)
	}

	return nil
}
