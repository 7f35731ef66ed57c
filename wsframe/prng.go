// File: wsframe/prng.go
//
// Masking-key PRNG. RFC 6455 masking is not cryptographic protection, just
// "unpredictable"; a crypto RNG per frame would syscall on every send, so
// this uses a userspace xoshiro128+ generator seeded once from strong OS
// entropy, the same one-shot-seed-then-syscall-free-draw shape spec.md §9
// calls for. Seeding itself is grounded on the teacher's own handshake-key
// generation idiom (crypto/rand.Read in lowlevel/client/facade.go),
// cascading to /dev/urandom and finally a time/PID/stack-address mix if
// crypto/rand is unavailable (no cycle-counter reading is mixed in).
//
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package wsframe

import (
	"crypto/rand"
	"encoding/binary"
	"os"
	"time"
	"unsafe"
)

// maskPRNG is a xoshiro128+ generator: four 32-bit words of state, a
// rotate-shift-rotate step, and an additive output — fast, non-crypto,
// adequate for "unpredictable" masking keys at effectively zero per-frame
// cost.
type maskPRNG struct {
	s0, s1, s2, s3 uint32
}

// newMaskPRNG seeds a generator from strong OS entropy with a fallback
// cascade: getrandom-equivalent (crypto/rand) → /dev/urandom → a
// time/PID/stack-address mix (see mixFallbackSeed; no cycle counter is
// read). The state is never allowed
// to be all-zero, which is the one invalid xoshiro128+ seed.
func newMaskPRNG() *maskPRNG {
	var seed [16]byte
	if _, err := rand.Read(seed[:]); err != nil {
		if f, ferr := os.Open("/dev/urandom"); ferr == nil {
			_, _ = f.Read(seed[:])
			f.Close()
		} else {
			mixFallbackSeed(seed[:])
		}
	}
	p := &maskPRNG{
		s0: binary.LittleEndian.Uint32(seed[0:4]),
		s1: binary.LittleEndian.Uint32(seed[4:8]),
		s2: binary.LittleEndian.Uint32(seed[8:12]),
		s3: binary.LittleEndian.Uint32(seed[12:16]),
	}
	if p.s0|p.s1|p.s2|p.s3 == 0 {
		p.s0 = 0x9E3779B9
	}
	return p
}

// mixFallbackSeed fills seed from time, PID, and a local address as a
// last-resort entropy source when neither crypto/rand nor /dev/urandom is
// available.
func mixFallbackSeed(seed []byte) {
	now := uint64(time.Now().UnixNano())
	pid := uint64(os.Getpid())
	var local int
	addr := uint64(uintptr(unsafe.Pointer(&local)))
	mix := now ^ (pid << 32) ^ addr
	binary.LittleEndian.PutUint64(seed[0:8], mix)
	binary.LittleEndian.PutUint64(seed[8:16], mix*0x2545F4914F6CDD1D+1)
}

// Next returns the next 32-bit output and advances the generator.
func (p *maskPRNG) Next() uint32 {
	result := p.s0 + p.s3

	t := p.s1 << 9

	p.s2 ^= p.s0
	p.s3 ^= p.s1
	p.s1 ^= p.s2
	p.s0 ^= p.s3
	p.s2 ^= t
	p.s3 = rotl(p.s3, 11)

	return result
}

func rotl(x uint32, k uint) uint32 {
	return (x << k) | (x >> (32 - k))
}

// NextMaskKey draws a 32-bit masking key as its 4 constituent bytes.
func (p *maskPRNG) NextMaskKey() [4]byte {
	var key [4]byte
	binary.LittleEndian.PutUint32(key[:], p.Next())
	return key
}

// Zero overwrites the PRNG state with zeros, per spec.md §5/§9's shutdown
// discipline for the masking-key generator.
func (p *maskPRNG) Zero() {
	p.s0, p.s1, p.s2, p.s3 = 0, 0, 0, 0
}
