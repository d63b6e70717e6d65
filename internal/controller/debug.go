package controller

import (
	"context"

	"github.com/flipperdevices/flipper-debug-go/internal/models"
	"github.com/flipperdevices/flipper-debug-go/internal/service"
)

// SetIgnoreUnsupportedVersion toggles the firmware version check and, once
// stored, asks the user to restart.
func (c *Controller) SetIgnoreUnsupportedVersion(ignored bool) {
	c.update("ignore-unsupported-version", func(s models.Settings) models.Settings {
		s.IgnoreUnsupportedVersion = ignored
		return s
	}, c.askRestartApp)
}

// SetAlwaysUpdate toggles offering firmware updates regardless of version.
func (c *Controller) SetAlwaysUpdate(alwaysUpdate bool) {
	c.update("always-update", func(s models.Settings) models.Settings {
		s.AlwaysUpdate = alwaysUpdate
		return s
	}, nil)
}

// SetIgnoreSubGhzProvisioning toggles skipping Sub-GHz provisioning when the
// region is unknown.
func (c *Controller) SetIgnoreSubGhzProvisioning(ignore bool) {
	c.update("ignore-subghz-provisioning", func(s models.Settings) models.Settings {
		s.IgnoreSubGhzProvisioningOnZeroRegion = ignore
		return s
	}, nil)
}

// SetSkipAutoSync toggles automatic synchronization in debug builds.
func (c *Controller) SetSkipAutoSync(skip bool) {
	c.update("skip-auto-sync", func(s models.Settings) models.Settings {
		s.SkipAutoSyncInDebug = skip
		return s
	}, nil)
}

// SetApplicationCatalogEnabled toggles the application catalog.
func (c *Controller) SetApplicationCatalogEnabled(enabled bool) {
	c.update("application-catalog", func(s models.Settings) models.Settings {
		s.ApplicationCatalog = enabled
		return s
	}, nil)
}

// SetOption dispatches to the setter of opt.
func (c *Controller) SetOption(opt models.Option, v bool) error {
	switch opt {
	case models.OptIgnoreUnsupportedVersion:
		c.SetIgnoreUnsupportedVersion(v)
	case models.OptAlwaysUpdate:
		c.SetAlwaysUpdate(v)
	case models.OptIgnoreSubGhzProvisioning:
		c.SetIgnoreSubGhzProvisioning(v)
	case models.OptSkipAutoSyncInDebug:
		c.SetSkipAutoSync(v)
	case models.OptApplicationCatalog:
		c.SetApplicationCatalogEnabled(v)
	default:
		_, err := models.ParseOption(string(opt))
		return err
	}
	return nil
}

// Replace swaps in a whole settings document, as a backup restore does, and
// waits for the store to commit it. If the version check flag flips the user
// is asked to restart, the same as SetIgnoreUnsupportedVersion.
func (c *Controller) Replace(ctx context.Context, next models.Settings) (models.Settings, error) {
	var before models.Settings
	st, err := c.store.Update(ctx, func(cur models.Settings) models.Settings {
		before = cur
		return next
	})
	if err != nil {
		return models.Settings{}, err
	}
	if before.IgnoreUnsupportedVersion != st.IgnoreUnsupportedVersion && c.ui != nil && c.notifier != nil {
		if err := c.askRestartApp(ctx); err != nil {
			return st, err
		}
	}
	return st, nil
}

// TriggerSynchronization starts a forced synchronization.
func (c *Controller) TriggerSynchronization() {
	c.sync.Start(true)
}

// RestartRemoteService restarts the device RPC session if one is open.
func (c *Controller) RestartRemoteService() {
	c.scope.Launch("restart-rpc", func(ctx context.Context) error {
		var err error
		c.services.WithService(func(svc service.Service) {
			err = svc.RestartRPC(ctx)
		})
		return err
	})
}

// NavigateToStressTest opens the stress test screen.
func (c *Controller) NavigateToStressTest(nav Navigator) {
	nav.Navigate(c.stressTest.Route())
}

// NavigateToMfKey32 opens the MFKey32 flow.
func (c *Controller) NavigateToMfKey32(nav Navigator) {
	nav.Navigate(c.mfKey32.StartDestination())
}
