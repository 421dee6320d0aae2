package storageprofile

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "bandwidthTable": [
    {"requestSize": 4096, "readBandwidth": 100, "writeBandwidth": 80},
    {"requestSize": 65536, "readBandwidth": 400, "writeBandwidth": 320},
    {"requestSize": 1048576, "readBandwidth": 500, "writeBandwidth": 450}
  ]
}`

func TestReadInterpolatesBetweenEntries(t *testing.T) {
	p, err := Read(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	mid := (4096.0 + 65536.0) / 2
	got := p.ReadBandwidth(mid)
	require.InDelta(t, (100.0+400.0)/2, got, 1e-6)
}

func TestReadClampsAtBoundaries(t *testing.T) {
	p, err := Read(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	require.Equal(t, 100.0, p.ReadBandwidth(1))
	require.Equal(t, 500.0, p.ReadBandwidth(1e9))
	require.Equal(t, 80.0, p.WriteBandwidth(1))
	require.Equal(t, 450.0, p.WriteBandwidth(1e9))
}

func TestWriteReadRoundTrip(t *testing.T) {
	p, err := Read(strings.NewReader(sampleDoc))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, p))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, p.Table, got.Table)
}

func TestReadRejectsEmptyTable(t *testing.T) {
	_, err := Read(strings.NewReader(`{"bandwidthTable": []}`))
	require.Error(t, err)
}
