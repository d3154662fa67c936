package calc

import (
	"sync"
)

type RuntimeConfig struct {
	MaxExpressionDepth int
	MaxLineLength      int
	LogEvaluation      bool
}

var (
	runtimeConfigMu sync.RWMutex
	runtimeConfig   = RuntimeConfig{
		MaxExpressionDepth: 256,
		MaxLineLength:      4096,
		LogEvaluation:      false,
	}
)

type RuntimeConfigOverride struct {
	MaxExpressionDepth *int
	MaxLineLength      *int
	LogEvaluation      *bool
}

func SetRuntimeConfig(cfg RuntimeConfig) {
	runtimeConfigMu.Lock()
	defer runtimeConfigMu.Unlock()
	runtimeConfig = cfg
}

func GetRuntimeConfig() RuntimeConfig {
	runtimeConfigMu.RLock()
	defer runtimeConfigMu.RUnlock()
	return runtimeConfig
}

// Apply returns cfg with every non nil field of ov copied over.
func (cfg RuntimeConfig) Apply(ov RuntimeConfigOverride) RuntimeConfig {
	if ov.MaxExpressionDepth != nil {
		cfg.MaxExpressionDepth = *ov.MaxExpressionDepth
	}
	if ov.MaxLineLength != nil {
		cfg.MaxLineLength = *ov.MaxLineLength
	}
	if ov.LogEvaluation != nil {
		cfg.LogEvaluation = *ov.LogEvaluation
	}
	return cfg
}

func checkLine(line string, cfg RuntimeConfig) error {
	if cfg.MaxLineLength > 0 && len(line) > cfg.MaxLineLength {
		return newError(ErrCodeInputTooLong, "line of %d bytes exceeds the %d bytes limit", len(line), cfg.MaxLineLength)
	}
	return nil
}
