package legacy

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-records/pkg/config"
)

// Open builds the store selected by cfg.Driver.
func Open(cfg config.LegacyConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case config.LegacyDriverMemory:
		return NewMemoryStore(), nil
	case "", config.LegacyDriverFile:
		return NewFileStore(cfg.FilePath)
	case config.LegacyDriverRedis:
		client, err := NewRedisClient(cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.KeyPrefix), nil
	default:
		return nil, fmt.Errorf("unknown legacy driver %q", cfg.Driver)
	}
}
