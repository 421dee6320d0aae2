// Package estimator converts a request's size and direction into "work" --
// the unit the Storage Scheduler's token buckets and occupancy accounting
// operate on -- grounded on original_source/src/Estimator/Estimator.hpp and
// its two concrete estimators (NetworkEstimator.cpp, StorageSSDEstimator.cpp),
// which SPEC_FULL.md §4.7 folds into the scheduler's work-estimation step.
package estimator

import "github.com/timmyzhu/WorkloadCompactor/internal/storageprofile"

// WorkEstimator turns a request size (bytes) and direction into an amount of
// work to charge against a tenant's token buckets.
type WorkEstimator interface {
	EstimateWork(requestSize int64, isRead bool) float64
}

// Network estimates network-traffic work as an affine function of request
// size, with separate (constant, factor) pairs for the data-heavy direction
// (the direction that actually carries the payload) and the non-data-heavy
// direction (which is small regardless of request size) -- ported from
// NetworkInEstimator/NetworkOutEstimator, unified into one type parameterized
// by which direction is data-heavy.
type Network struct {
	// DataHeavyIsRead is true for traffic flowing server->VM (NetworkOut, data
	// heavy on reads), false for VM->server (NetworkIn, data heavy on writes).
	DataHeavyIsRead bool

	NonDataConstant float64
	NonDataFactor   float64
	DataConstant    float64
	DataFactor      float64
}

func (n Network) EstimateWork(requestSize int64, isRead bool) float64 {
	if isRead == n.DataHeavyIsRead {
		return n.DataConstant + n.DataFactor*float64(requestSize)
	}
	return n.NonDataConstant + n.NonDataFactor*float64(requestSize)
}

// Storage estimates SSD storage work as the time (in seconds) a request of
// the given size is expected to occupy the device, via
// internal/storageprofile's bandwidth-table interpolation -- ported from
// StorageSSDEstimator::estimateWork, which divides request size by the
// profile-interpolated bandwidth for that size and direction.
type Storage struct {
	Profile *storageprofile.Profile
}

func (s Storage) EstimateWork(requestSize int64, isRead bool) float64 {
	var bw float64
	if isRead {
		bw = s.Profile.ReadBandwidth(float64(requestSize))
	} else {
		bw = s.Profile.WriteBandwidth(float64(requestSize))
	}
	if bw <= 0 {
		return 0
	}
	return float64(requestSize) / bw
}
