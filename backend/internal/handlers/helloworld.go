package handlers

import (
	"context"
	"encoding/json"

	"github.com/basewarphq/bwobs/backend/internal/userstore"
	"github.com/basewarphq/bwobs/bwfn"
	"github.com/basewarphq/bwobs/bwuow"
	"github.com/iancoleman/strcase"
)

const helloWorldLimit = 5

type helloWorldBody struct {
	Message string           `json:"message"`
	Users   []userstore.User `json:"users"`
}

// HelloWorld greets and returns the first users as {"message":...,"users":[...]}.
type HelloWorld struct {
	rt      *bwfn.Runtime[Env]
	store   userstore.Store
	faults  FaultInjector
	message string
}

// NewHelloWorld builds the HelloWorld invocation handler.
func NewHelloWorld(rt *bwfn.Runtime[Env], store userstore.Store, faults FaultInjector) bwfn.Handler {
	h := &HelloWorld{
		rt:      rt,
		store:   store,
		faults:  faults,
		message: strcase.ToLowerCamel("hello world"),
	}
	return h.Handle
}

// Handle runs one invocation. The greeting is logged at DEBUG when the invocation starts.
func (h *HelloWorld) Handle(ctx context.Context, event json.RawMessage) (bwuow.Envelope, error) {
	return h.rt.Run(ctx, bwuow.Operation{
		Name:          SpanName,
		Input:         event,
		Attributes:    requestAttributes(event),
		StartSeverity: bwuow.SeverityDebug,
		StartBody:     h.message,
		Do: func(ctx context.Context) (any, error) {
			// fault first: a failed invocation never reaches the store
			if err := h.faults.Fault(); err != nil {
				return nil, err
			}
			users, err := h.store.FetchUsers(ctx, helloWorldLimit)
			if err != nil {
				return nil, err
			}
			return helloWorldBody{Message: h.message, Users: users}, nil
		},
	})
}
