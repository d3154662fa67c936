package calc

import (
	"github.com/dgraph-io/ristretto"
)

// TokenCache memoises the token slices of lines already lexed. Lexing does not
// depend on the context, so entries never go stale. Only successful results
// are kept.
type TokenCache struct {
	cache *ristretto.Cache
}

// NewTokenCache returns nil, a valid disabled cache, when size is not positive.
func NewTokenCache(size int) (*TokenCache, error) {
	if size <= 0 {
		return nil, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: int64(size * 10),
		MaxCost:     int64(size),
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &TokenCache{cache: cache}, nil
}

// Tokens returns the tokens of line, lexing it on a miss.
func (tc *TokenCache) Tokens(line string) ([]Token, error) {
	if tc == nil {
		return Collect(line)
	}
	if v, ok := tc.cache.Get(line); ok {
		if tokens, ok := v.([]Token); ok {
			return tokens, nil
		}
	}
	tokens, err := Collect(line)
	if err != nil {
		return nil, err
	}
	tc.cache.Set(line, tokens, 1)
	return tokens, nil
}

// Wait blocks until pending writes are visible to Tokens.
func (tc *TokenCache) Wait() {
	if tc != nil {
		tc.cache.Wait()
	}
}

func (tc *TokenCache) Close() {
	if tc != nil {
		tc.cache.Close()
	}
}
