package catalog

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/core"
)

// Catalog resolves content and answers permission checks.
// Only the issuer holds one; the edge must never acquire this dependency.
type Catalog interface {
	core.ContentResolver
	core.PermissionOracle
	Close() error
}

// Build constructs a catalog backend from its config block.
func Build(cfg config.BackendConfig) (Catalog, error) {
	switch cfg.Type {
	case "sqlite":
		var conf SQLiteConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewSQLiteCatalog(conf)
	case "memory":
		return NewMemoryCatalog(), nil
	default:
		return nil, fmt.Errorf("unknown catalog type %q", cfg.Type)
	}
}

func decode(cfg config.BackendConfig, dest any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   dest,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for catalog type '%s': %w", cfg.Type, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return fmt.Errorf("failed to decode config for catalog type '%s': %w", cfg.Type, err)
	}
	return nil
}
