package rest

import "encoding/json"

// The backend is inconsistent about response shapes: some endpoints return a
// bare JSON array, others wrap it as {data: [...], meta: {...}}. These
// helpers accept either shape so a drifted endpoint degrades instead of
// breaking the caller.

type envelope struct {
	Meta *struct {
		Total *int `json:"total"`
	} `json:"meta"`
	Data json.RawMessage `json:"data"`
}

// DecodeList unmarshals a bare array or an enveloped {data: []} body into out
// (a pointer to a slice).
func DecodeList(body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return json.Unmarshal(body, out)
}

// Total extracts a collection size: meta.total when present, otherwise the
// length of the data array (bare or enveloped). Malformed bodies count as 0.
func Total(body []byte) int {
	var env envelope
	if err := json.Unmarshal(body, &env); err == nil {
		if env.Meta != nil && env.Meta.Total != nil {
			return *env.Meta.Total
		}
		if env.Data != nil {
			var items []json.RawMessage
			if err := json.Unmarshal(env.Data, &items); err == nil {
				return len(items)
			}
			return 0
		}
	}
	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err == nil {
		return len(items)
	}
	return 0
}
