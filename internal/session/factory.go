package session

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"filevault/internal/config"
	"filevault/internal/repository"
)

// NewStore builds the backend selected by cfg.Store. The returned close
// function releases backend resources and is always non-nil.
func NewStore(cfg config.SessionConfig, repos *repository.Repositories, log zerolog.Logger) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store {
	case "badger":
		var opts BadgerOptions
		if err := mapstructure.WeakDecode(cfg.Badger, &opts); err != nil {
			return nil, noop, fmt.Errorf("decode badger session options: %w", err)
		}
		store, err := NewBadgerStore(opts)
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("path", opts.Path).Bool("in_memory", opts.InMemory).Msg("badger session store initialized")
		return store, store.Close, nil
	case "database":
		log.Info().Msg("database session store initialized")
		return NewDatabaseStore(repos.Sessions), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown session store: %q", cfg.Store)
	}
}
