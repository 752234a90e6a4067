package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNumberScan(t *testing.T) {
	scan := NewNumberScan("C", 2)
	for _, n := range []string{"C0001", "C0042", "C0007", "Cxx", "Q0099", "legacy-1", "C"} {
		scan.Observe(n)
	}

	assert.Equal(t, 7, scan.Scanned)
	assert.Equal(t, 3, scan.Parsed)
	assert.Equal(t, int64(42), scan.MaxFound)
	assert.Equal(t, 2, scan.Malformed)
	assert.Equal(t, 2, scan.ForeignPrefix)
	assert.Equal(t, 4, scan.Skipped())
	assert.Equal(t, []string{"Cxx", "Q0099"}, scan.Samples)
}

func TestNumberScanEmpty(t *testing.T) {
	scan := NewNumberScan("C", 10)
	assert.Equal(t, int64(0), scan.MaxFound)
	assert.Equal(t, 0, scan.Scanned)
	assert.Empty(t, scan.Samples)
}
