// SPDX-License-Identifier: Apache-2.0

package walk

import "errors"

var (
	// ErrInvalidSpec reports malformed circuit parameters.
	ErrInvalidSpec = errors.New("invalid circuit spec")
	// ErrUnknownBackend reports a backend selector with no matching backend.
	ErrUnknownBackend = errors.New("unknown backend")
	// ErrBackendUnavailable reports a failed execution. Retrying is up to the caller.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrDecode reports backend output that breaks the decoder's invariants.
	ErrDecode = errors.New("decode error")
	// ErrDegenerateInput reports an entropy over fewer than two outcomes.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrOutOfRange reports a probability or entropy outside [0, 1].
	ErrOutOfRange = errors.New("value out of range")
)
