package calc

import (
	"github.com/oarkflow/log"
)

type Options func(*Session)

func WithLogger(logger *log.Logger) Options {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithTokenCache lets several sessions share lexed lines. A nil cache lexes
// every line.
func WithTokenCache(cache *TokenCache) Options {
	return func(s *Session) {
		s.cache = cache
	}
}

// WithRuntimeConfig replaces the global runtime config for this session only.
func WithRuntimeConfig(cfg RuntimeConfig) Options {
	return func(s *Session) {
		s.config = cfg
	}
}
