package validator

import (
	"context"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
)

// Adapter adapts a Validator to implement api.ValidatorHandler
type Adapter struct {
	validator *Validator
}

var _ api.ValidatorHandler = (*Adapter)(nil)

// NewAPIAdapter creates a new validator adapter
func NewAPIAdapter(validator *Validator) *Adapter {
	return &Adapter{validator: validator}
}

// Register registers the adapter with the API
func (a *Adapter) Register() {
	api.RegisterValidator(a)
}

func (a *Adapter) Validate(ctx context.Context, slug string) (*api.ValidationResult, error) {
	return a.validator.Validate(ctx, slug)
}
