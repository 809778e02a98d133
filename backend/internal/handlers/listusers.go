package handlers

import (
	"context"
	"encoding/json"

	"github.com/basewarphq/bwobs/backend/internal/userstore"
	"github.com/basewarphq/bwobs/bwfn"
	"github.com/basewarphq/bwobs/bwuow"
)

const listUsersLimit = 6

// ListUsers returns the first users as {"users":[...]}.
type ListUsers struct {
	rt     *bwfn.Runtime[Env]
	store  userstore.Store
	faults FaultInjector
}

// NewListUsers builds the ListUsers invocation handler.
func NewListUsers(rt *bwfn.Runtime[Env], store userstore.Store, faults FaultInjector) bwfn.Handler {
	h := &ListUsers{rt: rt, store: store, faults: faults}
	return h.Handle
}

// Handle runs one invocation.
func (h *ListUsers) Handle(ctx context.Context, event json.RawMessage) (bwuow.Envelope, error) {
	return h.rt.Run(ctx, bwuow.Operation{
		Name:          SpanName,
		Input:         event,
		Attributes:    requestAttributes(event),
		ResultField:   "users",
		LogAttributes: map[string]any{"log.type": "custom"},
		Do: func(ctx context.Context) (any, error) {
			users, err := h.store.FetchUsers(ctx, listUsersLimit)
			if err != nil {
				return nil, err
			}
			if err := h.faults.Fault(); err != nil {
				return nil, err
			}
			return users, nil
		},
	})
}
