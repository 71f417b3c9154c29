package session

import (
	"math/rand/v2"
	"strconv"
	"time"
)

const idSuffixLen = 5

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID generates a session id: millisecond timestamp in base 36 plus a
// short random suffix. The time prefix makes generation order and
// lexicographic order agree, which the newest-first listing relies on.
func NewID() string {
	return NewIDAt(time.Now())
}

// NewIDAt generates an id for an explicit instant.
func NewIDAt(now time.Time) string {
	buf := make([]byte, 0, 16)
	buf = strconv.AppendInt(buf, now.UnixMilli(), 36)
	for i := 0; i < idSuffixLen; i++ {
		buf = append(buf, base36[rand.IntN(len(base36))])
	}
	return string(buf)
}

// NewTitle derives a human-readable session title from the local time.
func NewTitle(now time.Time) string {
	return now.Format("Session (Jan 2 03:04 PM)")
}
