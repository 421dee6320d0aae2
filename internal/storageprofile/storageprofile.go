// Package storageprofile reads the storage-device bandwidth profile file
// format from spec.md §6 and interpolates it, grounded on
// original_source/src/Estimator/StorageSSDEstimator.cpp's piecewise-linear
// bytes/sec lookup over (requestSize, readBandwidth, writeBandwidth)
// triples.
package storageprofile

import (
	"encoding/json"
	"io"
	"sort"

	"github.com/cockroachdb/errors"
)

// Entry is one row of the bandwidth table, sorted by RequestSize on load.
type Entry struct {
	RequestSize    float64 `json:"requestSize"`
	ReadBandwidth  float64 `json:"readBandwidth"`
	WriteBandwidth float64 `json:"writeBandwidth"`
}

// Profile is a sorted bandwidth table ready for interpolated lookup.
type Profile struct {
	Table []Entry
}

type profileDoc struct {
	BandwidthTable []Entry `json:"bandwidthTable"`
}

// Read parses the JSON storage profile document from r.
func Read(r io.Reader) (*Profile, error) {
	var doc profileDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Wrap(err, "storageprofile: decode")
	}
	if len(doc.BandwidthTable) == 0 {
		return nil, errors.New("storageprofile: empty bandwidth table")
	}
	table := append([]Entry(nil), doc.BandwidthTable...)
	sort.Slice(table, func(i, j int) bool { return table[i].RequestSize < table[j].RequestSize })
	return &Profile{Table: table}, nil
}

// Write serializes the profile back to its JSON file format.
func Write(w io.Writer, p *Profile) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(profileDoc{BandwidthTable: p.Table})
}

// ReadBandwidth returns the linearly interpolated read bandwidth (bytes/sec)
// for requestSize, clamped to the boundary entries outside the table's
// range.
func (p *Profile) ReadBandwidth(requestSize float64) float64 {
	return p.interpolate(requestSize, func(e Entry) float64 { return e.ReadBandwidth })
}

// WriteBandwidth returns the linearly interpolated write bandwidth
// (bytes/sec) for requestSize, clamped to the boundary entries outside the
// table's range.
func (p *Profile) WriteBandwidth(requestSize float64) float64 {
	return p.interpolate(requestSize, func(e Entry) float64 { return e.WriteBandwidth })
}

func (p *Profile) interpolate(requestSize float64, pick func(Entry) float64) float64 {
	t := p.Table
	if requestSize <= t[0].RequestSize {
		return pick(t[0])
	}
	last := t[len(t)-1]
	if requestSize >= last.RequestSize {
		return pick(last)
	}
	i := sort.Search(len(t), func(i int) bool { return t[i].RequestSize >= requestSize })
	lo, hi := t[i-1], t[i]
	frac := (requestSize - lo.RequestSize) / (hi.RequestSize - lo.RequestSize)
	return pick(lo) + frac*(pick(hi)-pick(lo))
}
