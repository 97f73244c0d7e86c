package router

import (
	"context"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// Adapter adapts a Router to implement api.RouterHandler
type Adapter struct {
	router *Router
}

var _ api.RouterHandler = (*Adapter)(nil)

// NewAPIAdapter creates a new router adapter
func NewAPIAdapter(router *Router) *Adapter {
	return &Adapter{router: router}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterRouter(a)
	logging.Debug(subsystem, "Router adapter registered with API")
}

// Execute runs one operation through the router.
func (a *Adapter) Execute(ctx context.Context, req api.Request) *api.Response {
	return a.router.Execute(ctx, req)
}
