package commands

import (
	"context"

	"github.com/skylink-net/skylinkctl/internal/config"
	"github.com/skylink-net/skylinkctl/internal/rotation"
	"github.com/skylink-net/skylinkctl/internal/rotation/notifications"
	"github.com/skylink-net/skylinkctl/internal/rotation/storage"
	"github.com/skylink-net/skylinkctl/internal/uri"
)

// notifyQueueSize bounds the async notification queue.
const notifyQueueSize = 16

// loadDefinition loads and validates the configuration file.
func loadDefinition(cfg *config.Config) (*config.Definition, error) {
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg.Definition, nil
}

// openStorage returns the default rotation metadata store.
func openStorage() storage.Storage {
	return storage.NewFileStorage(storage.DefaultStorageDir())
}

// buildNotifier constructs a notification manager with every configured
// destination registered. The manager is returned unstarted; callers
// using the async queue must Start and Stop it themselves.
func buildNotifier(ctx context.Context, cfg *config.Config, def *config.Definition) (*notifications.Manager, error) {
	manager := notifications.NewManager(notifyQueueSize, cfg.Logger)

	providers, err := def.Notifications.BuildProviders(ctx, cfg.Logger)
	if err != nil {
		return nil, err
	}
	for _, provider := range providers {
		manager.RegisterProvider(provider)
	}
	return manager, nil
}

// resolveDeployment loads the stored deployment record for the
// configured service.
func resolveDeployment(store storage.Storage, def *config.Definition) (*storage.Deployment, error) {
	return store.GetDeployment(def.Service.Name)
}

// rotationLogbook returns the logbook at the configured or default path.
func rotationLogbook(def *config.Definition) *rotation.Logbook {
	path := def.Rotation.LogPath
	if path == "" {
		path = rotation.DefaultLogPath(storage.DefaultStorageDir())
	}
	return rotation.NewLogbook(path)
}

// protocolFromArgs picks the protocol from a positional argument,
// falling back to the configured one.
func protocolFromArgs(args []string, def *config.Definition) (uri.Protocol, error) {
	name := def.Protocol
	if len(args) > 0 {
		name = args[0]
	}
	return uri.ParseProtocol(name)
}
