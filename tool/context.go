package tool

import (
	"context"
	"sync"

	"github.com/wispworks/wisp/provider"
)

// HandlerContext is the capability bundle a handler receives. Identity
// fields resolve lazily: nothing hits the content store until a handler
// actually asks, and the answer is cached for the rest of the call.
type HandlerContext struct {
	tenantID string
	userID   string

	profileOnce sync.Once
	profile     provider.Profile
	profileErr  error

	store   provider.ContentStore
	forward func(topic string, data map[string]any)
}

// NewHandlerContext builds the capability bundle for one dispatch. forward
// emits a tool event through the session's forwarder; it may be nil for
// sessions without a UI.
func NewHandlerContext(tenantID, userID string, store provider.ContentStore, forward func(topic string, data map[string]any)) *HandlerContext {
	if forward == nil {
		forward = func(string, map[string]any) {}
	}
	return &HandlerContext{
		tenantID: tenantID,
		userID:   userID,
		store:    store,
		forward:  forward,
	}
}

// TenantID returns the session's tenant scope.
func (h *HandlerContext) TenantID() string { return h.tenantID }

// UserID returns the session's bound user id, if any.
func (h *HandlerContext) UserID() string { return h.userID }

// UserName resolves the bound user's display name from the content store.
func (h *HandlerContext) UserName(ctx context.Context) (string, error) {
	p, err := h.loadProfile(ctx)
	return p.Name, err
}

// UserEmail resolves the bound user's email from the content store.
func (h *HandlerContext) UserEmail(ctx context.Context) (string, error) {
	p, err := h.loadProfile(ctx)
	return p.Email, err
}

// Forward emits a UI event under the tool-event namespace.
func (h *HandlerContext) Forward(topic string, data map[string]any) {
	h.forward(topic, data)
}

func (h *HandlerContext) loadProfile(ctx context.Context) (provider.Profile, error) {
	h.profileOnce.Do(func() {
		if h.store == nil || h.userID == "" {
			return
		}
		h.profile, h.profileErr = h.store.Profile(ctx, h.tenantID, h.userID)
	})
	return h.profile, h.profileErr
}
