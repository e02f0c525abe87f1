package service

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// LinkCache is a short-TTL cache of provider link lists keyed by
// (user, chat). It exists only to absorb bursty task-screen re-renders; it
// is advisory and never consulted for reward decisions.
type LinkCache struct {
	lru *expirable.LRU[string, []string]
}

func NewLinkCache(size int, ttl time.Duration) *LinkCache {
	return &LinkCache{lru: expirable.NewLRU[string, []string](size, nil, ttl)}
}

func (c *LinkCache) Get(userID, chatID int64) ([]string, bool) {
	return c.lru.Get(cacheKey(userID, chatID))
}

func (c *LinkCache) Put(userID, chatID int64, links []string) {
	c.lru.Add(cacheKey(userID, chatID), links)
}

func cacheKey(userID, chatID int64) string {
	return fmt.Sprintf("%d:%d", userID, chatID)
}
