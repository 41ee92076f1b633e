// Package credentials generates the per-rotation secret material embedded
// in connection descriptors. All four values are regenerated together on
// every rotation, regardless of which protocol is active, so the set
// stays uniform for the lifetime of the process.
package credentials

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/skylink-net/skylinkctl/internal/logging"
)

// passwordPrefix labels the hash-derived Trojan password fragment.
const passwordPrefix = "Trojan-"

// passwordFragmentLen is the number of hex characters kept from the hash.
const passwordFragmentLen = 8

// Set holds one credential per protocol variant. Values are replaced
// wholesale on every rotation tick and never persisted.
type Set struct {
	// Password is the Trojan password token, derived from the clock.
	Password string

	// VLESSID is the VLESS-over-websocket client identity.
	VLESSID string

	// GRPCID is the VLESS-over-gRPC client identity.
	GRPCID string

	// VMessID is the VMess client identity.
	VMessID string
}

// Generator produces credential sets. The clock is injectable for tests.
type Generator struct {
	logger *logging.Logger
	now    func() time.Time
}

// NewGenerator creates a credential generator using the wall clock.
func NewGenerator(logger *logging.Logger) *Generator {
	return &Generator{
		logger: logger,
		now:    time.Now,
	}
}

// NewGeneratorWithClock creates a generator with a custom clock.
func NewGeneratorWithClock(logger *logging.Logger, now func() time.Time) *Generator {
	return &Generator{
		logger: logger,
		now:    now,
	}
}

// Generate produces a fresh credential set. Generation never fails: the
// identity values fall back to kernel entropy, then to a clock-derived
// hash, if the primary UUID source errors.
func (g *Generator) Generate() Set {
	set := Set{
		Password: g.password(),
		VLESSID:  g.identity(),
		GRPCID:   g.identity(),
		VMessID:  g.identity(),
	}
	g.logger.Debug("Generated credential set: password=%s vless=%s grpc=%s vmess=%s",
		logging.Secret(set.Password), logging.Secret(set.VLESSID),
		logging.Secret(set.GRPCID), logging.Secret(set.VMessID))
	return set
}

// password derives the Trojan token from the current unix timestamp:
// a SHA-256 digest truncated to a short hex fragment, with a label prefix.
func (g *Generator) password() string {
	sum := sha256.Sum256([]byte(strconv.FormatInt(g.now().Unix(), 10)))
	return passwordPrefix + hex.EncodeToString(sum[:])[:passwordFragmentLen]
}

// identity returns a random v4 UUID string.
func (g *Generator) identity() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}

	var raw [16]byte
	if !readKernelEntropy(raw[:]) {
		// Last resort: a clock-derived digest. Still unique per call
		// because the nanosecond clock is monotonic within a process.
		sum := sha256.Sum256([]byte(strconv.FormatInt(g.now().UnixNano(), 10)))
		copy(raw[:], sum[:16])
		g.logger.Warn("Kernel entropy unavailable, derived identity from clock")
	}

	// Stamp version 4 / RFC 4122 variant bits so the fallback output
	// is indistinguishable from the primary path.
	raw[6] = raw[6]&0x0f | 0x40
	raw[8] = raw[8]&0x3f | 0x80
	return uuid.UUID(raw).String()
}

// readKernelEntropy fills b from the kernel entropy source. It tries
// crypto/rand first and the urandom device directly as a backstop.
func readKernelEntropy(b []byte) bool {
	if _, err := io.ReadFull(rand.Reader, b); err == nil {
		return true
	}

	f, err := os.Open("/dev/urandom")
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	_, err = io.ReadFull(f, b)
	return err == nil
}
