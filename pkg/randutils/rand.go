package randutils

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	mrand "math/rand"
	"sync"
)

func NewCryptoSeededSource() mrand.Source {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.BigEndian, &seed)
	return mrand.NewSource(seed)
}

// Rand is a math/rand generator safe for concurrent use.
type Rand struct {
	r    *mrand.Rand
	lock *sync.Mutex
}

func New(src mrand.Source) *Rand {
	return &Rand{
		r:    mrand.New(src),
		lock: &sync.Mutex{},
	}
}

func (r *Rand) Uint32() uint32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.r.Uint32()
}

var globalRand = New(NewCryptoSeededSource())

// Uint32 draws from a crypto seeded generator shared by the whole process.
func Uint32() uint32 {
	return globalRand.Uint32()
}
