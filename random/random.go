package random

import (
	crand "crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
	"time"
)

const upperCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	mu  sync.Mutex
	src *mrand.Rand
)

func init() {
	var b [8]byte
	seed := time.Now().UnixNano()
	if _, err := crand.Read(b[:]); err == nil {
		seed = int64(binary.LittleEndian.Uint64(b[:]))
	}
	src = mrand.New(mrand.NewSource(seed))
}

// Upper returns digits and upper-case letters only, suitable for codes read
// aloud or printed on receipts.
func Upper(length int) string {
	return fromCharset(upperCharset, length)
}

func fromCharset(set string, length int) string {
	mu.Lock()
	defer mu.Unlock()

	b := make([]byte, length)
	for i := range b {
		b[i] = set[src.Intn(len(set))]
	}
	return string(b)
}
