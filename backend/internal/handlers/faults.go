package handlers

import (
	"math/rand/v2"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrInjected is returned by an injector that decides to fail.
var ErrInjected = errors.New("testing error")

// FaultInjector decides whether an invocation fails on purpose.
type FaultInjector interface {
	Fault() error
}

type faultFunc func() error

func (f faultFunc) Fault() error { return f() }

// Never never fails.
func Never() FaultInjector {
	return faultFunc(func() error { return nil })
}

// Always fails every call with err.
func Always(err error) FaultInjector {
	return faultFunc(func() error { return err })
}

// Rate fails with ErrInjected with probability p, drawing from src.
func Rate(p float64, src *rand.Rand) FaultInjector {
	var mu sync.Mutex
	return faultFunc(func() error {
		mu.Lock()
		draw := src.Float64()
		mu.Unlock()
		if draw < p {
			return ErrInjected
		}
		return nil
	})
}

// NewFaultInjector builds the injector configured by BW_FAULT_RATE.
func NewFaultInjector(env Env) FaultInjector {
	if env.FaultRate <= 0 {
		return Never()
	}
	return Rate(env.FaultRate, rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))) //nolint:gosec
}
