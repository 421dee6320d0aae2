package curvecache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
)

func TestWriteReadRoundTrip(t *testing.T) {
	arrival, err := curves.NewCurve(0, []curves.Segment{
		{Slope: 1},
		{X: 1.875, Y: 1.875, Slope: 0.2},
		{X: 35, Y: 8.5, Slope: 0.1},
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, arrival))

	got, err := Read(&buf)
	require.NoError(t, err)
	require.Equal(t, arrival.Segments, got.Segments)
}

func TestReadRejectsMalformedLine(t *testing.T) {
	_, err := Read(bytes.NewBufferString("1,2\n"))
	require.Error(t, err)
}

func TestReadRejectsEmptyFile(t *testing.T) {
	_, err := Read(bytes.NewBufferString(""))
	require.Error(t, err)
}
