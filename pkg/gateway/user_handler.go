package gateway

import (
	"context"

	"github.com/opsintent/intentcore/pkg/models"
)

// UserInputHandler delegates free-text requests straight to the
// IntentRouter (C5), per spec §4.7's default path.
type UserInputHandler struct {
	router IntentRouter
}

// NewUserInputHandler returns a UserInputHandler over router.
func NewUserInputHandler(router IntentRouter) *UserInputHandler {
	return &UserInputHandler{router: router}
}

// Handle runs the full three-tier cascade on text.
func (h *UserInputHandler) Handle(ctx context.Context, text string) (models.RoutingDecision, error) {
	return h.router.Route(ctx, text, models.RequestContext{}), nil
}
