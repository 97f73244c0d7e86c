package deployer

import (
	"context"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// Adapter adapts a Deployer to implement api.DeployerHandler
type Adapter struct {
	deployer *Deployer
}

var _ api.DeployerHandler = (*Adapter)(nil)

// NewAPIAdapter creates a new deployer adapter
func NewAPIAdapter(deployer *Deployer) *Adapter {
	return &Adapter{deployer: deployer}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterDeployer(a)
}

func (a *Adapter) Deploy(ctx context.Context, slug string, credential string) (*api.DeploymentRecord, error) {
	return a.deployer.Deploy(ctx, slug, credential)
}

func (a *Adapter) GetDeployment(ctx context.Context, slug string) (*api.DeploymentRecord, error) {
	return a.deployer.GetDeployment(ctx, slug)
}
