package shop

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

// UniqueID returns 8 lowercase hex characters.
func UniqueID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Session is a state of a single simulated user.
type Session struct {
	ID     string
	Header http.Header

	// UserID is an id of a user created by this session, zero if none.
	UserID int64

	// ProductIDs are known product ids to fetch.
	ProductIDs []int64

	faker *gofakeit.Faker
}

func newSession(token string, jsonContent bool) *Session {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)

	if jsonContent {
		h.Set("Content-Type", "application/json")
	}

	return &Session{
		ID:     UniqueID(),
		Header: h,
		faker:  gofakeit.New(0),
	}
}

// ID is an entity identifier that may be encoded as JSON number or numeric string.
type ID int64

// UnmarshalJSON implements json.Unmarshaler, null yields zero.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	if bytes.Equal(data, []byte("null")) {
		*id = 0

		return nil
	}

	if len(data) > 1 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}

		if s == "" {
			*id = 0

			return nil
		}

		data = []byte(s)
	}

	n := json.Number(data)

	if i, err := n.Int64(); err == nil {
		*id = ID(i)

		return nil
	}

	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid id %s: %w", strconv.Quote(string(data)), err)
	}

	*id = ID(f)

	return nil
}

type productItem struct {
	ProductID ID `json:"productId"`
}

var (
	errNotJSON        = errors.New("invalid JSON")
	errNullCollection = errors.New("null collection")
)

// ParseProductIDs extracts non-zero product ids from listing wrapped in collection field or from bare list.
//
// Valid JSON of other shape, including object without collection, yields empty list.
func ParseProductIDs(body []byte) ([]int64, error) {
	body = bytes.TrimSpace(body)

	if !json.Valid(body) {
		return nil, errNotJSON
	}

	var items []productItem

	switch body[0] {
	case '[':
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
	case '{':
		var wrapped map[string]json.RawMessage

		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, err
		}

		collection, ok := wrapped["collection"]
		if !ok {
			return []int64{}, nil
		}

		if bytes.Equal(bytes.TrimSpace(collection), []byte("null")) {
			return nil, errNullCollection
		}

		if err := json.Unmarshal(collection, &items); err != nil {
			return nil, err
		}
	default:
		return []int64{}, nil
	}

	ids := make([]int64, 0, len(items))

	for _, it := range items {
		if it.ProductID != 0 {
			ids = append(ids, int64(it.ProductID))
		}
	}

	return ids, nil
}
