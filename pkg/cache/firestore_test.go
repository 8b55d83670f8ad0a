package cache_test

import (
	"testing"

	"github.com/illmade-knight/go-intseq/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNewFirestoreStore(t *testing.T) {
	t.Run("nil client", func(t *testing.T) {
		_, err := cache.NewFirestoreStore[string, int](&cache.FirestoreConfig{CollectionName: "c"}, nil, zerolog.Nop())
		assert.ErrorContains(t, err, "client cannot be nil")
	})
}
