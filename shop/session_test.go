package shop_test

import (
	"regexp"
	"sync"
	"testing"

	"github.com/ecomlab/shoplt/shop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueID(t *testing.T) {
	re := regexp.MustCompile(`^[0-9a-f]{8}$`)

	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)

	for g := 0; g < 10; g++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := 0; i < 100; i++ {
				id := shop.UniqueID()

				mu.Lock()
				seen[id] = true
				mu.Unlock()

				assert.Regexp(t, re, id)
			}
		}()
	}

	wg.Wait()

	assert.Len(t, seen, 1000)
}

func TestParseProductIDs(t *testing.T) {
	wrapped, err := shop.ParseProductIDs([]byte(`{"collection":[{"productId":1},{"productId":null},{"productId":5,"productTitle":"x"},{"productId":0}]}`))
	require.NoError(t, err)

	bare, err := shop.ParseProductIDs([]byte(` [{"productId":1},{"productTitle":"no id"},{"productId":"5"}]`))
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 5}, wrapped)
	assert.Equal(t, wrapped, bare)

	ids, err := shop.ParseProductIDs([]byte(`{"items":[{"productId":1}]}`))
	require.NoError(t, err)
	assert.Empty(t, ids)
	assert.NotNil(t, ids)

	ids, err = shop.ParseProductIDs([]byte(`"ok"`))
	require.NoError(t, err)
	assert.Empty(t, ids)

	for _, body := range []string{``, `not json`, `{"collection":null}`, `{"collection":{"productId":1}}`, `[{"productId":"abc"}]`} {
		_, err := shop.ParseProductIDs([]byte(body))
		assert.Error(t, err, body)
	}
}
