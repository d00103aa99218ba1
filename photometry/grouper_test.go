package photometry

import (
	"bytes"
	"context"
	"testing"

	"github.com/skyportal/dump/blob/memory"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/log"
	"github.com/skyportal/dump/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func phot(instrument int, name string, mjd float64, mag float64, groups ...int) catalog.Photometry {
	p := catalog.Photometry{
		MJD:            mjd,
		Filter:         "ztfg",
		Mag:            f(mag),
		MagErr:         f(0.1),
		LimitingMag:    f(20.5),
		InstrumentID:   instrument,
		InstrumentName: name,
	}
	for _, g := range groups {
		p.Groups = append(p.Groups, catalog.Group{ID: g})
	}
	return p
}

// two instruments, two group sets, listed out of mjd order and with group
// ids in varying order
func syntheticSource() []catalog.Photometry {
	return []catalog.Photometry{
		phot(1, "ZTF", 59003, 18.1, 2, 1),
		phot(2, "SEDM", 59001, 17.9, 1),
		phot(1, "ZTF", 59001, 18.3, 1, 2),
		phot(1, "ZTF", 59002, 18.0, 3),
		phot(2, "SEDM", 59000, 17.5, 3),
		phot(1, "ZTF", 59000, 18.4, 3),
		phot(2, "SEDM", 59005, 17.2, 1),
		phot(2, "SEDM", 59004, 17.0, 3),
	}
}

func TestSplitFourPartitions(t *testing.T) {
	parts := Split(syntheticSource(), ByInstrumentAndGroups)
	require.Len(t, parts, 4)

	type key struct {
		instrument int
		groups     string
	}
	var keys []key
	for _, p := range parts {
		keys = append(keys, key{p.InstrumentID, groupKey(p.GroupIDs)})
		for i := 1; i < len(p.Points); i++ {
			assert.LessOrEqual(t, p.Points[i-1].MJD, p.Points[i].MJD)
		}
	}
	assert.Equal(t, []key{{1, "1,2"}, {2, "1"}, {1, "3"}, {2, "3"}}, keys, "first-seen order, order-independent group sets")

	assert.Equal(t, []float64{59001, 59003}, mjds(parts[0].Points))
	assert.Equal(t, "photometry/ZTF21abc_ZTF_1,2.csv", parts[0].FileName("ZTF21abc"))
}

func TestSplitByInstrument(t *testing.T) {
	parts := Split(syntheticSource(), ByInstrument)
	require.Len(t, parts, 2)

	assert.Equal(t, 1, parts[0].InstrumentID)
	assert.Equal(t, []float64{59000, 59001, 59002, 59003}, mjds(parts[0].Points))
	assert.Empty(t, parts[0].GroupIDs)
	assert.Equal(t, "photometry/ZTF21abc_SEDM.csv", parts[1].FileName("ZTF21abc"))
}

func TestSplitNoPoints(t *testing.T) {
	assert.Empty(t, Split(nil, ByInstrumentAndGroups))
	assert.Empty(t, Split([]catalog.Photometry{}, ByInstrument))
}

func TestSplitDropsDuplicates(t *testing.T) {
	points := []catalog.Photometry{
		phot(1, "ZTF", 59001, 18.0),
		phot(1, "ZTF", 59000, 18.0),
		phot(1, "ZTF", 59001, 18.0),
	}
	parts := Split(points, ByInstrument)
	require.Len(t, parts, 1)
	assert.Len(t, parts[0].Points, 2)
	assert.Equal(t, 1, parts[0].Dropped)
}

func TestDedupIdentity(t *testing.T) {
	base := Point{MJD: 59000, Filter: "ztfr", Mag: f(18), MagErr: f(0.1), LimitingMag: f(20)}

	sameButOrigin := base
	sameButOrigin.Origin = new(string)

	otherFilter := base
	otherFilter.Filter = "ztfg"

	nilMag := base
	nilMag.Mag = nil

	out := Dedup([]Point{base, sameButOrigin, otherFilter, nilMag, nilMag})
	assert.Equal(t, []Point{base, otherFilter, nilMag}, out)
}

func TestDedupIdempotent(t *testing.T) {
	for _, p := range Split(syntheticSource(), ByInstrument) {
		once := Dedup(p.Points)
		twice := Dedup(once)
		assert.Equal(t, once, twice)
	}

	dup := []Point{{MJD: 1, Mag: f(2)}, {MJD: 1, Mag: f(2)}, {MJD: 2}}
	once := Dedup(dup)
	assert.Len(t, once, 2)
	assert.Equal(t, once, Dedup(once))
}

func TestEncode(t *testing.T) {
	var buf bytes.Buffer
	magsys := "ab"
	require.NoError(t, Encode(&buf, []Point{
		{MJD: 59000.5, Filter: "ztfg", Mag: f(18.25), MagErr: f(0.05), MagSys: &magsys, LimitingMag: f(20.1)},
		{MJD: 59001, Filter: "ztfr", LimitingMag: f(19.8)},
	}))

	assert.Equal(t, "mjd,filter,mag,magerr,magsys,limiting_mag,ra,dec,ra_unc,dec_unc,origin\n"+
		"59000.5,ztfg,18.25,0.05,ab,20.1,,,,,\n"+
		"59001,ztfr,,,,19.8,,,,,\n", buf.String())
}

func TestWriterWritesAttachmentsAndRefs(t *testing.T) {
	store := memory.New()
	w := NewWriter(store, telemetry.New(), log.Discard())

	parts := Split(syntheticSource(), ByInstrumentAndGroups)
	refs, err := w.Write(context.Background(), "ZTF21abc", parts)
	require.NoError(t, err)
	require.Len(t, refs, 4)

	assert.Equal(t, Ref{ObjID: "ZTF21abc", InstrumentID: 1, GroupIDs: []int{1, 2}, File: "photometry/ZTF21abc_ZTF_1,2.csv"}, refs[0])
	assert.Len(t, store.Keys(), 4)

	b, err := store.Get("photometry/ZTF21abc_SEDM_3.csv")
	require.NoError(t, err)
	lines := bytes.Split(bytes.TrimSpace(b), []byte("\n"))
	assert.Len(t, lines, 3, "header plus two rows")
	assert.True(t, bytes.HasPrefix(lines[1], []byte("59000,")))

	refs, err = w.Write(context.Background(), "empty", nil)
	require.NoError(t, err)
	assert.Empty(t, refs)
}

func mjds(points []Point) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.MJD
	}
	return out
}
