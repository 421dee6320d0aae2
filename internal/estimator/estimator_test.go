package estimator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmyzhu/WorkloadCompactor/internal/storageprofile"
)

func TestNetworkDataHeavyDirectionScalesWithSize(t *testing.T) {
	n := Network{DataHeavyIsRead: true, NonDataConstant: 1, NonDataFactor: 0.01, DataConstant: 2, DataFactor: 1.1}

	require.Equal(t, 2+1.1*1000, n.EstimateWork(1000, true))
	require.Equal(t, 1+0.01*1000, n.EstimateWork(1000, false))
}

func TestStorageWorkIsRequestSizeOverInterpolatedBandwidth(t *testing.T) {
	doc := `{"bandwidthTable": [
		{"requestSize": 4096, "readBandwidth": 100, "writeBandwidth": 80},
		{"requestSize": 65536, "readBandwidth": 400, "writeBandwidth": 320}
	]}`
	p, err := storageprofile.Read(strings.NewReader(doc))
	require.NoError(t, err)

	s := Storage{Profile: p}
	require.Equal(t, 4096.0/100, s.EstimateWork(4096, true))
	require.Equal(t, 4096.0/80, s.EstimateWork(4096, false))
}
