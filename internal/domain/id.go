package domain

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"
)

// NewID generates a locally unique numeric identifier of n digits: a YYMMDD
// date prefix followed by the tail of the millisecond timestamp, padded with
// random digits when needed. The first digit is never zero so the value
// survives a string round-trip. n must be at least 8.
func NewID(n int) (int64, error) {
	if n < 8 || n > 18 {
		return 0, fmt.Errorf("id length must be between 8 and 18, got %d", n)
	}

	now := time.Now()
	datePrefix := now.Format("060102")
	tailLen := n - len(datePrefix)

	ts := strconv.FormatInt(now.UnixMilli(), 10)
	tail := ts
	if len(ts) >= tailLen {
		tail = ts[len(ts)-tailLen:]
	}

	numeric := datePrefix + tail
	for len(numeric) < n {
		numeric += strconv.Itoa(rand.Intn(10))
	}
	numeric = numeric[:n]

	if numeric[0] == '0' {
		numeric = strconv.Itoa(1+rand.Intn(9)) + numeric[1:]
	}

	return strconv.ParseInt(numeric, 10, 64)
}

// MustNewID is NewID with the default 12-digit length, panicking on the
// impossible length error.
func MustNewID() int64 {
	id, err := NewID(12)
	if err != nil {
		panic(err)
	}
	return id
}
