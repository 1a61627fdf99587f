// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package core

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

var (
	entropy     = ulid.Monotonic(rand.Reader, 0)
	entropyLock sync.Mutex
)

// NewULID generates a ULID for the current time. Engines and script request
// ids use it, so it is safe to call from any goroutine.
func NewULID() ulid.ULID {
	return NewULIDAt(time.Now())
}

// NewULIDAt generates a ULID stamped with t. Ids made within the same
// millisecond still sort in creation order.
func NewULIDAt(t time.Time) ulid.ULID {
	entropyLock.Lock()
	defer entropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy)
}

// ULIDTime returns the time encoded in id, at millisecond precision.
func ULIDTime(id ulid.ULID) time.Time {
	return ulid.Time(id.Time())
}

// ParseULID parses a ULID string.
func ParseULID(s string) (ulid.ULID, error) {
	id, err := ulid.ParseStrict(s)
	if err != nil {
		return ulid.ULID{}, oops.In("core").Code("INVALID_ARGUMENT").With("ulid", s).Wrapf(err, "invalid ULID %q", s)
	}
	return id, nil
}
