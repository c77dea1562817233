package cache

import (
	"github.com/dgraph-io/ristretto"
	ristrettoCache "github.com/eko/gocache/store/ristretto/v4"
)

var S *ristrettoCache.RistrettoStore

func NewStore() error {
	inner, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e6,
		MaxCost:     1 << 28,
		BufferItems: 64,
	})
	if err != nil {
		return err
	}

	S = ristrettoCache.NewRistretto(inner)
	return nil
}
