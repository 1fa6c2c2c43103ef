package memset

import (
	"regexp"

	"github.com/dgraph-io/ristretto"
)

var likePatterns *ristretto.Cache

func init() {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 10000,
		MaxCost:     1000,
		BufferItems: 64,
	})
	if err != nil {
		panic(err)
	}
	likePatterns = cache
}

// likePattern compiles a case-insensitive pattern, caching compiled patterns
func likePattern(pattern string) (*regexp.Regexp, bool) {
	if cached, ok := likePatterns.Get(pattern); ok {
		return cached.(*regexp.Regexp), true
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, false
	}
	likePatterns.Set(pattern, re, 1)
	return re, true
}
