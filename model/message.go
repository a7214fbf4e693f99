// SPDX-License-Identifier: MIT

package model

import (
	"bytes"

	"github.com/cockroachdb/errors"
	"github.com/nbd-wtf/go-nostr"
)

// ParseMessage decodes a single wire frame into its envelope. REQ frames get
// the relay-side filter type; every other known label passes through to the
// upstream parser. An unknown or undecodable frame is a typed error, the
// dispatcher never guesses intent.
func ParseMessage(message []byte) (e nostr.Envelope, err error) {
	firstComma := bytes.IndexByte(message, ',')
	if firstComma == -1 {
		return nil, ErrUnknownMessage
	}

	if bytes.Contains(message[:firstComma], []byte(EnvelopeTypeReq)) {
		var reqEnvelope ReqEnvelope

		if err = reqEnvelope.UnmarshalJSON(message); err != nil {
			return nil, errors.Wrap(err, "unmarshal req envelope")
		}

		e = &reqEnvelope
	} else {
		e = nostr.ParseMessage(message)
	}

	if e == nil {
		err = ErrParseMessage
	}

	return e, err
}
