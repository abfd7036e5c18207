package repository

import (
	"techatlas/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChainConfig describes which stores are reachable. A nil DB or REST client
// leaves that tier out of every chain; the memory tier is always present.
type ChainConfig struct {
	DB             *gorm.DB
	REST           *resty.Client
	MemoryCapacity int
	// MockKinds overrides the registry's degraded-write kinds when non-nil.
	MockKinds map[string]bool
	Logger    *zap.Logger
}

// NewChain builds the primary, secondary and memory stores for info and
// composes them into a FallbackStore.
func NewChain[T any, PT RecordPtr[T]](info models.KindInfo, cfg ChainConfig) *FallbackStore[T, PT] {
	var stores []ContentStore[T]
	if cfg.DB != nil {
		stores = append(stores, NewGormStore[T, PT](cfg.DB, info))
	}
	if cfg.REST != nil {
		stores = append(stores, NewRESTStore[T, PT](cfg.REST, info))
	}
	stores = append(stores, NewMemoryStore[T, PT](info, cfg.MemoryCapacity))

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []FallbackOption{WithLogger(logger)}
	if cfg.MockKinds != nil {
		opts = append(opts, WithMockOnFailure(cfg.MockKinds[string(info.Kind)] || cfg.MockKinds[info.Singular]))
	}
	return NewFallbackStore[T, PT](info, stores, opts...)
}
