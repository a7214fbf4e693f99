package model

import (
	"encoding/json"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/tidwall/gjson"
)

type (
	EnvelopeType string

	Envelope interface {
		nostr.Envelope
	}

	// ReqEnvelope is ["REQ", subscription_id, filter, filter, ...].
	// It carries model filters instead of the upstream ones so that the
	// relay-side matching semantics apply.
	ReqEnvelope struct {
		SubscriptionID string
		Filters
	}
)

const (
	EnvelopeTypeEvent  EnvelopeType = "EVENT"
	EnvelopeTypeReq    EnvelopeType = "REQ"
	EnvelopeTypeNotice EnvelopeType = "NOTICE"
	EnvelopeTypeEOSE   EnvelopeType = "EOSE"
	EnvelopeTypeOK     EnvelopeType = "OK"
	EnvelopeTypeClose  EnvelopeType = "CLOSE"
)

func (*ReqEnvelope) Label() string {
	return string(EnvelopeTypeReq)
}

func (v *ReqEnvelope) UnmarshalJSON(data []byte) error {
	r := gjson.ParseBytes(data)
	arr := r.Array()
	if len(arr) < 3 {
		return fmt.Errorf("failed to decode REQ envelope: missing filters")
	}
	v.SubscriptionID = arr[1].Str
	v.Filters = make(Filters, len(arr)-2)
	f := 0
	for i := 2; i < len(arr); i++ {
		if err := json.Unmarshal([]byte(arr[i].Raw), &v.Filters[f]); err != nil {
			return fmt.Errorf("%w -- on filter %d", err, f)
		}
		f++
	}

	return nil
}

func (v *ReqEnvelope) MarshalJSON() ([]byte, error) {
	data := []any{EnvelopeTypeReq, v.SubscriptionID}

	if len(v.Filters) > 0 {
		filterData, err := marshalFilters(v.Filters)
		if err != nil {
			return nil, err
		}
		data = append(data, filterData...)
	}

	return json.Marshal(data)
}

func (v *ReqEnvelope) String() string {
	data, _ := json.Marshal(v)

	return string(data)
}

func marshalFilters(filters Filters) ([]any, error) {
	messages := make([]any, 0, len(filters))
	for _, filter := range filters {
		filterData, err := json.Marshal(filter)
		if err != nil {
			return nil, err
		}
		messages = append(messages, json.RawMessage(filterData))
	}

	return messages, nil
}
