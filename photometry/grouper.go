// Package photometry splits a source's photometry into per-instrument
// partitions and writes each one as a CSV attachment.
package photometry

import (
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/skyportal/dump/catalog"
)

type Mode int

const (
	// ByInstrumentAndGroups keys partitions on the instrument and the exact
	// set of groups a point is shared with.
	ByInstrumentAndGroups Mode = iota
	// ByInstrument keys on the instrument only. Group membership is
	// collapsed to the public placeholder by the caller.
	ByInstrument
)

// Point is one exported photometry row.
type Point struct {
	MJD         float64
	Filter      string
	Mag         *float64
	MagErr      *float64
	MagSys      *string
	LimitingMag *float64
	RA          *float64
	Dec         *float64
	RAUnc       *float64
	DecUnc      *float64
	Origin      *string
}

func pointOf(p catalog.Photometry) Point {
	return Point{
		MJD:         p.MJD,
		Filter:      p.Filter,
		Mag:         p.Mag,
		MagErr:      p.MagErr,
		MagSys:      p.MagSys,
		LimitingMag: p.LimitingMag,
		RA:          p.RA,
		Dec:         p.Dec,
		RAUnc:       p.RAUnc,
		DecUnc:      p.DecUnc,
		Origin:      p.Origin,
	}
}

// Partition is the photometry of one source taken with one instrument
// (and shared with one group set, in ByInstrumentAndGroups mode).
type Partition struct {
	Mode           Mode
	InstrumentID   int
	InstrumentName string
	// GroupIDs is sorted ascending. Empty in ByInstrument mode.
	GroupIDs []int
	Points   []Point
	// Dropped counts duplicates removed from Points.
	Dropped int
}

func groupKey(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// FileName is the partition's attachment path inside the bundle.
func (p Partition) FileName(sourceID string) string {
	name := sourceID + "_" + p.InstrumentName
	if p.Mode == ByInstrumentAndGroups {
		name += "_" + groupKey(p.GroupIDs)
	}
	return "photometry/" + name + ".csv"
}

type partitionKey struct {
	instrument int
	groups     string
}

// Split partitions points by mode. Partitions come out in the order their
// first point was seen; each is sorted by mjd and deduplicated.
func Split(points []catalog.Photometry, mode Mode) []Partition {
	var parts []Partition
	index := make(map[partitionKey]int)

	for _, p := range points {
		key := partitionKey{instrument: p.InstrumentID}
		var gids []int
		if mode == ByInstrumentAndGroups {
			gids = make([]int, 0, len(p.Groups))
			for _, g := range p.Groups {
				gids = append(gids, g.ID)
			}
			sort.Ints(gids)
			key.groups = groupKey(gids)
		}

		i, ok := index[key]
		if !ok {
			i = len(parts)
			index[key] = i
			parts = append(parts, Partition{
				Mode:           mode,
				InstrumentID:   p.InstrumentID,
				InstrumentName: p.InstrumentName,
				GroupIDs:       gids,
			})
		}
		parts[i].Points = append(parts[i].Points, pointOf(p))
	}

	for i := range parts {
		SortByMJD(parts[i].Points)
		before := len(parts[i].Points)
		parts[i].Points = Dedup(parts[i].Points)
		parts[i].Dropped = before - len(parts[i].Points)
	}
	return parts
}

// SortByMJD sorts ascending by mjd, keeping the catalog order of points
// with the same mjd.
func SortByMJD(points []Point) {
	slices.SortStableFunc(points, func(a, b Point) int {
		switch {
		case a.MJD < b.MJD:
			return -1
		case a.MJD > b.MJD:
			return 1
		}
		return 0
	})
}

type dedupKey struct {
	mjd         float64
	mag         optFloat
	magErr      optFloat
	limitingMag optFloat
	filter      string
}

type optFloat struct {
	set bool
	v   float64
}

func opt(f *float64) optFloat {
	if f == nil {
		return optFloat{}
	}
	return optFloat{set: true, v: *f}
}

// Dedup drops every point that repeats an earlier one's mjd, mag, magerr,
// limiting_mag and filter. Applying it to its own output changes nothing.
func Dedup(points []Point) []Point {
	seen := make(map[dedupKey]struct{}, len(points))
	out := make([]Point, 0, len(points))
	for _, p := range points {
		k := dedupKey{
			mjd:         p.MJD,
			mag:         opt(p.Mag),
			magErr:      opt(p.MagErr),
			limitingMag: opt(p.LimitingMag),
			filter:      p.Filter,
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, p)
	}
	return out
}
