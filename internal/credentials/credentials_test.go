package credentials

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skylink-net/skylinkctl/internal/logging"
)

func testLogger() *logging.Logger {
	return logging.New(false, true)
}

func TestGenerator_PasswordFormat(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	gen := NewGeneratorWithClock(testLogger(), func() time.Time { return fixed })

	set := gen.Generate()
	require.True(t, strings.HasPrefix(set.Password, "Trojan-"))
	fragment := strings.TrimPrefix(set.Password, "Trojan-")
	assert.Len(t, fragment, 8)
	assert.Regexp(t, "^[0-9a-f]{8}$", fragment)
}

func TestGenerator_PasswordDeterministicPerSecond(t *testing.T) {
	t.Parallel()

	fixed := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	gen := NewGeneratorWithClock(testLogger(), func() time.Time { return fixed })

	// Same timestamp yields the same hash-derived token.
	assert.Equal(t, gen.Generate().Password, gen.Generate().Password)

	later := NewGeneratorWithClock(testLogger(), func() time.Time { return fixed.Add(time.Second) })
	assert.NotEqual(t, gen.Generate().Password, later.Generate().Password)
}

func TestGenerator_IdentitiesAreValidUUIDs(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(testLogger())
	set := gen.Generate()

	for _, id := range []string{set.VLESSID, set.GRPCID, set.VMessID} {
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(4), parsed.Version())
	}
}

func TestGenerator_SetsAreDisjointAcrossTicks(t *testing.T) {
	t.Parallel()

	clock := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	gen := NewGeneratorWithClock(testLogger(), func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	prev := gen.Generate()
	for i := 0; i < 10; i++ {
		next := gen.Generate()
		assert.NotEqual(t, prev.Password, next.Password)
		assert.NotEqual(t, prev.VLESSID, next.VLESSID)
		assert.NotEqual(t, prev.GRPCID, next.GRPCID)
		assert.NotEqual(t, prev.VMessID, next.VMessID)
		prev = next
	}
}

func TestGenerator_IdentitiesIndependent(t *testing.T) {
	t.Parallel()

	set := NewGenerator(testLogger()).Generate()
	assert.NotEqual(t, set.VLESSID, set.GRPCID)
	assert.NotEqual(t, set.VLESSID, set.VMessID)
	assert.NotEqual(t, set.GRPCID, set.VMessID)
}

func TestReadKernelEntropy(t *testing.T) {
	t.Parallel()

	var b [16]byte
	require.True(t, readKernelEntropy(b[:]))

	var zero [16]byte
	assert.NotEqual(t, zero, b)
}
