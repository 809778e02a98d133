package bwlog

import (
	"context"

	"github.com/basewarphq/bwobs/bwuow"
)

// Multi fans every record out to each sink in order.
type Multi []bwuow.LogSink

func (m Multi) Emit(ctx context.Context, rec bwuow.LogRecord) {
	for _, sink := range m {
		sink.Emit(ctx, rec)
	}
}
