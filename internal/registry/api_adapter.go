package registry

import (
	"context"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// Adapter adapts a Client to implement api.RegistryHandler
type Adapter struct {
	client *Client
}

var _ api.RegistryHandler = (*Adapter)(nil)

// NewAPIAdapter creates a new registry adapter
func NewAPIAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterRegistry(a)
}

func (a *Adapter) GetPlugin(ctx context.Context, slug string) (*api.PluginDescriptor, error) {
	return a.client.GetPlugin(ctx, slug)
}

func (a *Adapter) Search(ctx context.Context, query string, filters map[string]string) ([]api.PluginSummary, error) {
	return a.client.Search(ctx, query, filters)
}

func (a *Adapter) GetValidation(ctx context.Context, slug string) (*api.ValidationResult, error) {
	return a.client.GetValidation(ctx, slug)
}

func (a *Adapter) PublishValidation(ctx context.Context, result *api.ValidationResult) error {
	return a.client.PublishValidation(ctx, result)
}

func (a *Adapter) ProbeSource(ctx context.Context, descriptor *api.PluginDescriptor) bool {
	return a.client.ProbeSource(ctx, descriptor)
}
