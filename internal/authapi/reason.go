package authapi

import (
	"encoding/json"
	"strings"
)

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message json.RawMessage `json:"message"`
}

// validationIssue is one entry of a list-valued "detail", the shape FastAPI
// uses for request validation failures.
type validationIssue struct {
	Msg string `json:"msg"`
}

// ReasonFromBody extracts a readable reason from an error response body.
// "detail" wins over "message"; empty strings count as absent. Anything that
// is not a JSON object yields "".
func ReasonFromBody(body []byte) string {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	if reason := detailText(payload.Detail); reason != "" {
		return reason
	}
	return stringValue(payload.Message)
}

func detailText(raw json.RawMessage) string {
	if s := stringValue(raw); s != "" {
		return s
	}

	var issues []validationIssue
	if err := json.Unmarshal(raw, &issues); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(issues))
	for _, issue := range issues {
		if issue.Msg != "" {
			msgs = append(msgs, issue.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}

func stringValue(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
