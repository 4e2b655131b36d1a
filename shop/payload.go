package shop

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Credential is a login part of user payload.
type Credential struct {
	Username                string `json:"username"`
	Password                string `json:"password"`
	RoleBasedAuthority      string `json:"roleBasedAuthority"`
	IsEnabled               bool   `json:"isEnabled"`
	IsAccountNonExpired     bool   `json:"isAccountNonExpired"`
	IsAccountNonLocked      bool   `json:"isAccountNonLocked"`
	IsCredentialsNonExpired bool   `json:"isCredentialsNonExpired"`
}

// UserPayload is a body of user creation request.
type UserPayload struct {
	FirstName  string     `json:"firstName"`
	LastName   string     `json:"lastName"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone"`
	ImageURL   string     `json:"imageUrl"`
	Credential Credential `json:"credential"`
}

// Category references product category.
type Category struct {
	CategoryID int `json:"categoryId"`
}

// ProductPayload is a body of product creation request.
type ProductPayload struct {
	ProductTitle string   `json:"productTitle"`
	ImageURL     string   `json:"imageUrl"`
	SKU          string   `json:"sku"`
	PriceUnit    float64  `json:"priceUnit"`
	Quantity     int      `json:"quantity"`
	Category     Category `json:"category"`
}

// CartPayload is a body of cart creation request.
type CartPayload struct {
	UserID int64 `json:"userId"`
}

// CartRef references a cart.
type CartRef struct {
	CartID int64 `json:"cartId"`
}

// OrderPayload is a body of order creation request.
type OrderPayload struct {
	OrderDate string  `json:"orderDate"`
	OrderDesc string  `json:"orderDesc"`
	OrderFee  float64 `json:"orderFee"`
	Cart      CartRef `json:"cart"`
}

// NewUserPayload builds unique user, uid must be at least 7 characters long.
func NewUserPayload(uid string, cfg Config) UserPayload {
	return UserPayload{
		FirstName: "LoadTest" + uid,
		LastName:  "User",
		Email:     "loadtest" + uid + "@example.com",
		Phone:     "+1555" + uid[:7],
		ImageURL:  cfg.UserImageURL,
		Credential: Credential{
			Username:                "loadtest" + uid,
			Password:                cfg.Password,
			RoleBasedAuthority:      "ROLE_USER",
			IsEnabled:               true,
			IsAccountNonExpired:     true,
			IsAccountNonLocked:      true,
			IsCredentialsNonExpired: true,
		},
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// newProductPayload builds unique product with random price, quantity and category.
func (s *Session) newProductPayload(uid string, cfg Config) ProductPayload {
	return ProductPayload{
		ProductTitle: "LoadTestProduct" + uid,
		ImageURL:     cfg.ProductImageURL,
		SKU:          "LOAD" + strings.ToUpper(uid),
		PriceUnit:    round2(s.faker.Float64Range(10, 100)),
		Quantity:     s.faker.Number(10, 100),
		Category:     Category{CategoryID: s.faker.Number(1, 3)},
	}
}

func (s *Session) newOrderPayload(cartID int64, now time.Time) OrderPayload {
	return OrderPayload{
		OrderDate: OrderDate(now),
		OrderDesc: "Load test order " + s.ID + ": " + s.faker.ProductName(),
		OrderFee:  round2(s.faker.Float64Range(10, 100)),
		Cart:      CartRef{CartID: cartID},
	}
}

// OrderDate formats time as dd-MM-yyyy__HH:mm:ss:SSSSSS with microseconds.
func OrderDate(t time.Time) string {
	return t.Format("02-01-2006__15:04:05") + fmt.Sprintf(":%06d", t.Nanosecond()/1000)
}
