package main

import (
	"fmt"
	"io"

	"github.com/basewarphq/bwobs/bwuow"
)

type PolicyCmd struct {
	OnError   string `name:"on-error" default:"map-to-500" help:"map-to-500 or rethrow."`
	SpanClose string `name:"span-close" default:"before-return" help:"before-return or in-cleanup-overriding-return."`
	EmitLogs  string `name:"emit-logs" default:"onStart,onSuccess,onError" help:"Comma separated log points."`
}

func (c *PolicyCmd) Run(out io.Writer) error {
	var p bwuow.Policy
	if err := p.OnError.UnmarshalText([]byte(c.OnError)); err != nil {
		return err
	}
	if err := p.SpanCloseTiming.UnmarshalText([]byte(c.SpanClose)); err != nil {
		return err
	}
	if err := p.EmitLogs.UnmarshalText([]byte(c.EmitLogs)); err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	fmt.Fprintf(out, "BW_ON_ERROR=%s\n", p.OnError)
	fmt.Fprintf(out, "BW_SPAN_CLOSE=%s\n", p.SpanCloseTiming)
	fmt.Fprintf(out, "BW_EMIT_LOGS=%s\n", p.EmitLogs)
	return nil
}
