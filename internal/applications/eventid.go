package applications

import (
	"crypto/rand"
	"encoding/binary"
	"sync"
	"time"
)

// Event IDs are ULIDs: 26 Crockford base32 characters, a 48-bit millisecond
// timestamp followed by 80 bits of which the first 16 are a per-millisecond
// sequence and the rest random. IDs from one generator sort by creation.

const crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

type eventIDs struct {
	mu      sync.Mutex
	now     func() time.Time
	lastTS  uint64
	lastSeq uint16
}

func newEventIDs(now func() time.Time) *eventIDs {
	if now == nil {
		now = time.Now
	}
	return &eventIDs{now: now}
}

func (g *eventIDs) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ts := uint64(g.now().UnixMilli())
	if ts <= g.lastTS {
		// Clock stood still or stepped back; stay on the last millisecond.
		ts = g.lastTS
		g.lastSeq++
	} else {
		g.lastTS = ts
		g.lastSeq = 0
	}

	var b [16]byte
	b[0] = byte(ts >> 40)
	b[1] = byte(ts >> 32)
	b[2] = byte(ts >> 24)
	b[3] = byte(ts >> 16)
	b[4] = byte(ts >> 8)
	b[5] = byte(ts)
	rand.Read(b[8:])
	binary.BigEndian.PutUint16(b[6:8], g.lastSeq)

	return encodeULID(b)
}

// encodeULID writes 128 bits as 26 base32 characters, left-padding the
// value with two zero bits.
func encodeULID(b [16]byte) string {
	var out [26]byte
	for i := range out {
		var v byte
		for j := 0; j < 5; j++ {
			bit := i*5 + j - 2
			v <<= 1
			if bit >= 0 && b[bit/8]&(0x80>>(bit%8)) != 0 {
				v |= 1
			}
		}
		out[i] = crockford[v]
	}
	return string(out[:])
}
