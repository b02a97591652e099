// Package clock supplies operation timestamps. The rest of the system treats
// the current time as an untrusted input bounded by the skew tolerance, so it
// is injected rather than read ambiently.
package clock

import "time"

type Clock interface {
	Now() int64
}

// System reads the wall clock in UTC seconds.
type System struct{}

func (System) Now() int64 {
	return time.Now().UTC().Unix()
}

// Fixed always reports the same instant.
type Fixed int64

func (f Fixed) Now() int64 {
	return int64(f)
}
