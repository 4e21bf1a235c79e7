package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/peerdrive/peerdrive/pkg/store"
	"github.com/peerdrive/peerdrive/pkg/store/badger"
	"github.com/peerdrive/peerdrive/pkg/store/memory"
)

// BadgerOptions decodes the badger-specific option map.
func (c *StoreConfig) BadgerOptions() (BadgerOptions, error) {
	var opts BadgerOptions
	if err := mapstructure.Decode(c.Badger, &opts); err != nil {
		return opts, fmt.Errorf("invalid badger config: %w", err)
	}
	return opts, nil
}

// CreateOpener creates the storage opener selected by the configuration.
func CreateOpener(cfg StoreConfig) (store.Opener, error) {
	switch cfg.Backend {
	case "memory", "":
		return memory.NewOpener(), nil
	case "badger":
		opts, err := cfg.BadgerOptions()
		if err != nil {
			return nil, err
		}
		if opts.Path == "" {
			return nil, fmt.Errorf("badger backend requires path to be set")
		}
		opener, err := badger.Open(badger.Options{
			Dir:        opts.Path,
			SyncWrites: opts.SyncWrites,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open badger database: %w", err)
		}
		return opener, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %q", cfg.Backend)
	}
}
