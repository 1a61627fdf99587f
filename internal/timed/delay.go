// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package timed

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
	"time"

	"github.com/samber/oops"
)

// Delay is the inclusive range an entry's next interval is drawn from.
type Delay struct {
	Min time.Duration
	Max time.Duration
}

// Fixed returns a delay that always picks d.
func Fixed(d time.Duration) Delay {
	return Delay{Min: d, Max: d}
}

// Range returns a delay drawn uniformly from [minDelay, maxDelay].
func Range(minDelay, maxDelay time.Duration) Delay {
	return Delay{Min: minDelay, Max: maxDelay}
}

// Validate rejects negative delays and ranges whose minimum exceeds the maximum.
func (d Delay) Validate() error {
	if d.Min < 0 || d.Max < 0 {
		return ErrInvalidDelay(d, "delay must not be negative")
	}
	if d.Min > d.Max {
		return ErrInvalidDelay(d, "min is bigger than max delay")
	}
	return nil
}

// IsFixed reports whether the range collapses to one value.
func (d Delay) IsFixed() bool { return d.Min == d.Max }

func (d Delay) String() string {
	if d.IsFixed() {
		return d.Min.String()
	}
	return fmt.Sprintf("[%s, %s]", d.Min, d.Max)
}

// pick draws one interval from d using rng.
func (d Delay) pick(rng *mathrand.Rand) time.Duration {
	if d.IsFixed() {
		return d.Min
	}
	span := uint64(d.Max - d.Min)
	return d.Min + time.Duration(rng.Uint64N(span+1))
}

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0, oops.In("timed").Wrapf(err, "read random seed")
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// NewRand returns a deterministic generator for seed.
func NewRand(seed uint64) *mathrand.Rand {
	return mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
