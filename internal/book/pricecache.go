package book

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/holiman/uint256"
)

// PriceCache memoizes bin prices. A price is immutable for a given
// (binStep, id) pair, so entries never invalidate; the cache only bounds
// memory on pools that roam across many bins.
type PriceCache struct {
	entries *lru.Cache[uint64, *uint256.Int]
}

func NewPriceCache(size int) (*PriceCache, error) {
	entries, err := lru.New[uint64, *uint256.Int](size)
	if err != nil {
		return nil, err
	}
	return &PriceCache{entries: entries}, nil
}

// PriceFromID returns a private copy of the cached price, computing and
// caching it on a miss.
func (c *PriceCache) PriceFromID(id uint32, binStep uint16) (*uint256.Int, error) {
	key := uint64(binStep)<<32 | uint64(id)
	if p, ok := c.entries.Get(key); ok {
		return new(uint256.Int).Set(p), nil
	}
	p, err := PriceFromID(id, binStep)
	if err != nil {
		return nil, err
	}
	c.entries.Add(key, p)
	return new(uint256.Int).Set(p), nil
}
