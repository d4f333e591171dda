package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var sink [][]byte

func TestReadMemoryStats(t *testing.T) {
	before := ReadMemoryStats()
	assert.Positive(t, before.SysBytes)
	assert.Positive(t, before.Goroutines)

	const chunk = 1 << 20
	for range 4 {
		sink = append(sink, make([]byte, chunk))
	}
	t.Cleanup(func() { sink = nil })

	after := ReadMemoryStats()
	assert.GreaterOrEqual(t, after.AllocatedSince(before), uint64(4*chunk))

	assert.Zero(t, before.AllocatedSince(after))
	assert.Contains(t, after.String(), "MB")
}

func TestToMB(t *testing.T) {
	assert.InDelta(t, 1.5, ToMB(3*mib/2), 1e-9)
}
