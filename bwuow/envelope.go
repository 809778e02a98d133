package bwuow

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/tidwall/gjson"
)

// Envelope is the value handed back to the function runtime.
// The body is always a JSON encoded object.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

const (
	// fallbackErrorMessage is used when a failure carries no message.
	fallbackErrorMessage = "error"

	genericBody = `{"message":"ok"}`
)

// GenericEnvelope is the fixed envelope returned under [CloseInCleanupOverridingReturn].
func GenericEnvelope() Envelope {
	return Envelope{StatusCode: http.StatusOK, Body: genericBody}
}

// ErrorEnvelope builds a 500 envelope with body {"error": <message>}.
func ErrorEnvelope(err error) Envelope {
	body, _ := json.Marshal(struct {
		Error string `json:"error"`
	}{Error: errorMessage(err)})
	return Envelope{StatusCode: http.StatusInternalServerError, Body: string(body)}
}

// successBody encodes the result. With a field name the result is nested under that
// field, without one the result itself must encode to a JSON object.
func successBody(field string, result any) ([]byte, error) {
	if field != "" {
		body, err := json.Marshal(map[string]any{field: result})
		if err != nil {
			return nil, errors.Wrapf(err, "encoding result field %q", field)
		}
		return body, nil
	}

	body, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(err, "encoding result")
	}
	if !gjson.ParseBytes(body).IsObject() {
		return nil, errors.Newf("result of type %T does not encode to a JSON object", result)
	}
	return body, nil
}

// summarize derives the attributes logged on success from the encoded body.
func summarize(field string, result any, body []byte) map[string]any {
	summary := map[string]any{
		LogAttrResultType: typeName(result),
	}

	value := gjson.ParseBytes(body)
	if field != "" {
		value = gjson.GetBytes(body, gjson.Escape(field))
	}
	if value.IsArray() {
		summary[LogAttrResultCount] = value.Get("#").Int()
	}
	return summary
}

func errorMessage(err error) string {
	if err == nil {
		return fallbackErrorMessage
	}
	var failed *OperationFailedError
	if errors.As(err, &failed) {
		return failed.Message()
	}
	if msg, ok := errorText(err); ok && msg != "" {
		return msg
	}
	return fallbackErrorMessage
}
