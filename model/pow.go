// SPDX-License-Identifier: MIT

package model

import (
	"strconv"

	"github.com/nbd-wtf/go-nostr/nip13"
)

// Difficulty is the number of leading zero bits in the 256-bit event id,
// big-endian.
func Difficulty(eventID string) int {
	return nip13.Difficulty(eventID)
}

// ValidateProofOfWork checks the event against the difficulty target committed
// by its nonce tag. Events without a nonce tag require no work and pass.
// A nonce tag whose third element does not parse as a non-negative integer
// fails validation.
func (e *Event) ValidateProofOfWork() bool {
	tag := e.GetTag(TagNonce)
	if tag == nil {
		return true
	}
	if len(tag) < 3 {
		return false
	}

	target, err := strconv.ParseUint(tag[2], 10, 32)
	if err != nil {
		return false
	}

	return Difficulty(e.ID) >= int(target)
}
