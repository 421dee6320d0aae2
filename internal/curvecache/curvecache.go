// Package curvecache reads and writes the persisted arrival-curve cache file
// format from spec.md §6: one segment per line, CSV of x, y, slope, at
// 15-digit precision, no header, no trailing blank line. The implicit
// initial (0, 0, +Inf) segment is never stored and is prepended on read.
// Grounded on cockroach's small single-purpose encoding packages (e.g.
// util/encoding) for the plain stdlib style; there is no domain-specific
// CSV library anywhere in the pack, so lines are read with bufio.Scanner and
// split on commas by hand -- encoding/csv is not used.
package curvecache

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/timmyzhu/WorkloadCompactor/internal/curves"
)

const precision = 15

// Write serializes arrival's finite segments (everything after the implicit
// burst segment) to w, one "x,y,slope" line per segment at 15 significant
// digits.
func Write(w io.Writer, arrival *curves.Curve) error {
	bw := bufio.NewWriter(w)
	for _, seg := range arrival.FiniteSegments() {
		line := fmt.Sprintf("%s,%s,%s\n",
			formatFloat(seg.X), formatFloat(seg.Y), formatFloat(seg.Slope))
		if _, err := bw.WriteString(line); err != nil {
			return errors.Wrap(err, "curvecache: write")
		}
	}
	return bw.Flush()
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "Inf"
	}
	return strconv.FormatFloat(f, 'g', precision, 64)
}

// Read parses the cache file format from r and returns the reconstructed
// curve, with the implicit (0, 0, +Inf) segment prepended.
func Read(r io.Reader) (*curves.Curve, error) {
	scanner := bufio.NewScanner(r)
	var rest []curves.Segment
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, errors.Newf("curvecache: malformed line %q", line)
		}
		x, err := parseFloat(fields[0])
		if err != nil {
			return nil, errors.Wrapf(err, "curvecache: x field in %q", line)
		}
		y, err := parseFloat(fields[1])
		if err != nil {
			return nil, errors.Wrapf(err, "curvecache: y field in %q", line)
		}
		slope, err := parseFloat(fields[2])
		if err != nil {
			return nil, errors.Wrapf(err, "curvecache: slope field in %q", line)
		}
		rest = append(rest, curves.Segment{X: x, Y: y, Slope: slope})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "curvecache: read")
	}
	if len(rest) == 0 {
		return nil, errors.New("curvecache: empty cache file")
	}

	segs := make([]curves.Segment, 0, len(rest)+1)
	segs = append(segs, curves.Segment{X: 0, Y: 0, Slope: math.Inf(1)})
	segs = append(segs, rest...)
	c := &curves.Curve{Segments: segs}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "curvecache: invalid curve")
	}
	return c, nil
}

func parseFloat(s string) (float64, error) {
	if s == "Inf" || s == "+Inf" {
		return math.Inf(1), nil
	}
	return strconv.ParseFloat(s, 64)
}
