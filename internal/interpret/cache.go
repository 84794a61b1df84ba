package interpret

import (
	"crypto/sha256"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"

	"threadshelf/internal/model"
)

const DefaultCacheSize = 64

// Cache memoizes Interpret per conversation. Entries are keyed by id and a
// digest of the content, so a conversation re-uploaded under the same id
// never serves a stale result.
type Cache struct {
	entries *lru.Cache[string, Result]
}

func NewCache(size int) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, Result](size)
	if err != nil {
		// Only returned for non-positive sizes.
		panic(err)
	}
	return &Cache{entries: c}
}

func (c *Cache) Get(conv model.Conversation) Result {
	key := cacheKey(conv)
	if r, ok := c.entries.Get(key); ok {
		return r
	}
	r := Interpret(conv.Content)
	c.entries.Add(key, r)
	return r
}

func (c *Cache) Len() int { return c.entries.Len() }

func cacheKey(conv model.Conversation) string {
	sum := sha256.Sum256([]byte(conv.Content))
	return conv.ID + ":" + hex.EncodeToString(sum[:])
}
