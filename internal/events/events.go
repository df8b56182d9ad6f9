package events

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/ethiapath/bagcamp/internal/config"
	"github.com/ethiapath/bagcamp/internal/core"
)

// Build constructs a download recorder backend from its config block.
func Build(cfg config.BackendConfig) (core.DownloadRecorder, error) {
	switch cfg.Type {
	case "sqlite":
		var conf SQLiteConfig
		if err := decode(cfg, &conf); err != nil {
			return nil, err
		}
		return NewSQLiteRecorder(conf)
	case "memory":
		return NewMemoryRecorder(), nil
	case "noop", "":
		return NewNoopRecorder(), nil
	default:
		return nil, fmt.Errorf("unknown events type %q", cfg.Type)
	}
}

func decode(cfg config.BackendConfig, dest any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata: nil,
		Result:   dest,
	})
	if err != nil {
		return fmt.Errorf("failed to create decoder for events type '%s': %w", cfg.Type, err)
	}
	if err := decoder.Decode(cfg.Config); err != nil {
		return fmt.Errorf("failed to decode config for events type '%s': %w", cfg.Type, err)
	}
	return nil
}
