package localization

import (
	"regexp"
	"strings"

	"github.com/skyportal/dump/catalog"
)

// Kind is what a localization name looks like.
type Kind int

const (
	// Other names are resolved from the catalog's rasterized map only.
	Other Kind = iota
	// Circular names are "ra_dec_radius", e.g. "10.5_-3.2_0.5".
	Circular
	// SkymapFile names carry a sky map file extension, e.g. "bayestar.fits.gz".
	SkymapFile
)

func (k Kind) String() string {
	switch k {
	case Circular:
		return "circular"
	case SkymapFile:
		return "skymap_file"
	}
	return "other"
}

var circularName = regexp.MustCompile(`^-?\d+\.?\d*_-?\d+\.?\d*_-?\d+\.?\d*$`)

var skymapExtensions = []string{".fit", ".fits", ".gz"}

func ClassifyName(name string) Kind {
	if circularName.MatchString(name) {
		return Circular
	}
	for _, ext := range skymapExtensions {
		if strings.Contains(name, ext) {
			return SkymapFile
		}
	}
	return Other
}

// The matchers below read free-text VOEvent payloads with substring
// checks, not an XML parser. A notice value matches when it is contained
// in the corresponding part of the name, so a notice RA of "1.5" matches a
// name RA of "11.5". Both match the first candidate in notice order.

const (
	positionMarker = `<Position2D unit="deg">`
	skymapMarker   = `<Param name="skymap_fits"`
)

// between returns the text after the first start and before the next end.
func between(s, start, end string) (string, bool) {
	_, rest, ok := strings.Cut(s, start)
	if !ok {
		return "", false
	}
	inner, _, ok := strings.Cut(rest, end)
	if !ok {
		return "", false
	}
	return inner, true
}

// MatchCircular finds the first position notice whose C1, C2 and
// Error2Radius values are contained in the name's ra, dec and radius.
func MatchCircular(name string, notices []string) (string, bool) {
	parts := strings.Split(name, "_")
	if len(parts) != 3 {
		return "", false
	}
	ra, dec, radius := parts[0], parts[1], parts[2]

	for _, n := range notices {
		if !strings.Contains(n, positionMarker) {
			continue
		}
		nra, ok1 := between(n, "<C1>", "</C1>")
		ndec, ok2 := between(n, "<C2>", "</C2>")
		nradius, ok3 := between(n, "<Error2Radius>", "</Error2Radius>")
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		if strings.Contains(ra, nra) && strings.Contains(dec, ndec) && strings.Contains(radius, nradius) {
			return n, true
		}
	}
	return "", false
}

// MatchSkymapFile finds the first notice whose skymap_fits parameter text
// contains name.
func MatchSkymapFile(name string, notices []string) (string, bool) {
	for _, n := range notices {
		if !strings.Contains(n, skymapMarker) {
			continue
		}
		param, ok := between(n, skymapMarker, "</Param>")
		if !ok {
			continue
		}
		if strings.Contains(param, name) {
			return n, true
		}
	}
	return "", false
}

// noticeContents keeps the notices that carry content, in order.
func noticeContents(notices []catalog.GcnNotice) []string {
	var out []string
	for _, n := range notices {
		if n.Content != nil {
			out = append(out, *n.Content)
		}
	}
	return out
}
