package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/basewarphq/bwobs/bwfn"
	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

type InvokeCmd struct {
	URL       string        `default:"http://localhost:8080/" help:"Invoke URL of the function."`
	Event     string        `short:"e" help:"Event JSON. Defaults to {}." xor:"event"`
	File      string        `short:"f" type:"existingfile" help:"Read the event from a file." xor:"event"`
	RequestID string        `name:"request-id" help:"Request ID sent in the Lambda Web Adapter context header."`
	Timeout   time.Duration `default:"30s" help:"Request timeout."`
}

func (c *InvokeCmd) Run(out io.Writer) error {
	event, err := c.event()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(event))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.RequestID != "" {
		lc, err := json.Marshal(bwfn.LWAContext{RequestID: c.RequestID})
		if err != nil {
			return errors.Wrap(err, "failed to encode lambda context")
		}
		req.Header.Set("x-amzn-lambda-context", string(lc))
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "invoke failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	fmt.Fprintf(out, "status %d\n%s\n", resp.StatusCode, body)
	if resp.StatusCode == http.StatusBadGateway {
		return errors.Newf("function error: %s", gjson.GetBytes(body, "errorMessage").String())
	}
	return nil
}

func (c *InvokeCmd) event() ([]byte, error) {
	var event []byte
	switch {
	case c.File != "":
		b, err := os.ReadFile(c.File)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read event file")
		}
		event = b
	case c.Event != "":
		event = []byte(c.Event)
	default:
		return []byte("{}"), nil
	}

	if !gjson.ValidBytes(event) {
		return nil, errors.New("event is not valid JSON")
	}
	return event, nil
}
