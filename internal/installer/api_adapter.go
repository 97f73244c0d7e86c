package installer

import (
	"context"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// Adapter adapts an Installer to implement api.InstallerHandler
type Adapter struct {
	installer *Installer
}

var _ api.InstallerHandler = (*Adapter)(nil)

// NewAPIAdapter creates a new installer adapter
func NewAPIAdapter(installer *Installer) *Adapter {
	return &Adapter{installer: installer}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterInstaller(a)
}

func (a *Adapter) Install(ctx context.Context, descriptor *api.PluginDescriptor) (*api.Installation, error) {
	return a.installer.Install(ctx, descriptor)
}
