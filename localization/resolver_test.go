package localization

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/skyportal/dump/blob/memory"
	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/format"
	"github.com/skyportal/dump/log"
	"github.com/skyportal/dump/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const positionNotice = `<?xml version="1.0"?><voe:VOEvent><WhereWhen><ObsDataLocation><ObservationLocation>
<AstroCoords coord_system_id="UTC-FK5-GEO"><Position2D unit="deg"><Name1>RA</Name1><Name2>Dec</Name2>
<Value2><C1>10.5</C1><C2>-3.2</C2></Value2><Error2Radius>0.5</Error2Radius></Position2D></AstroCoords>
</ObservationLocation></ObsDataLocation></WhereWhen></voe:VOEvent>`

const skymapNotice = `<?xml version="1.0"?><voe:VOEvent><What>
<Group type="GW_SKYMAP" name="bayestar"><Param name="skymap_fits" dataType="string" value="https://gracedb.ligo.org/api/superevents/S190425z/files/bayestar.fits.gz" ucd="meta.ref.url"></Param></Group>
</What></voe:VOEvent>`

func content(s string) *string { return &s }

type fakeCatalog struct {
	event         catalog.GcnEvent
	eventStatus   int
	skymap        catalog.Skymap
	skymapStatus  int
	skymapFetches int
}

func (f *fakeCatalog) GcnEvent(context.Context, string) (int, catalog.GcnEvent, error) {
	return f.eventStatus, f.event, nil
}

func (f *fakeCatalog) Localization(context.Context, string, string) (int, catalog.Skymap, error) {
	f.skymapFetches++
	return f.skymapStatus, f.skymap, nil
}

func newFake(names []string, notices ...*string) *fakeCatalog {
	ev := catalog.GcnEvent{Dateobs: "2019-04-25T08:18:05", Tags: []string{"GW", "BNS"}}
	for _, n := range names {
		ev.Localizations = append(ev.Localizations, catalog.LocalizationInfo{Name: n})
	}
	for i, n := range notices {
		ev.Notices = append(ev.Notices, catalog.GcnNotice{ID: i, Content: n})
	}
	return &fakeCatalog{
		event:        ev,
		eventStatus:  http.StatusOK,
		skymap:       catalog.Skymap{Flat2D: make([]float64, 12)},
		skymapStatus: http.StatusOK,
	}
}

func newResolver(c Catalog) (*Resolver, *memory.Store) {
	store := memory.New()
	return NewResolver(c, store, telemetry.New(), log.Discard()), store
}

func TestClassifyName(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"10.5_-3.2_0.5", Circular},
		{"-10_3_1", Circular},
		{"10._3.25_0", Circular},
		{"bayestar.fits.gz", SkymapFile},
		{"LALInference.fits", SkymapFile},
		{"skymap.fit", SkymapFile},
		{"cWB.gz", SkymapFile},
		{"10.5_-3.2", Other},
		{"Fermi_GBM", Other},
		{"10.5_-3.2_0.5.fits", SkymapFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyName(tt.name))
		})
	}
}

func TestResolveCircularNotice(t *testing.T) {
	c := newFake([]string{"10.5_-3.2_0.5"}, nil, content(skymapNotice), content(positionNotice))
	r, store := newResolver(c)

	res, err := r.Resolve(context.Background(), "2019-04-25T08:18:05", "10.5_-3.2_0.5")
	require.NoError(t, err)

	assert.Equal(t, Circular, res.Branch)
	require.NotNil(t, res.Notice)
	assert.Nil(t, res.Skymap)
	assert.Equal(t, "memory://10.5_-3.2_0.5.txt", res.Notice.XML)
	assert.Zero(t, c.skymapFetches)

	b, err := store.Get("10.5_-3.2_0.5.txt")
	require.NoError(t, err)
	assert.Equal(t, positionNotice, string(b))
}

func TestResolveSkymapFileNotice(t *testing.T) {
	c := newFake([]string{"bayestar.fits.gz"}, content(positionNotice), content(skymapNotice))
	r, _ := newResolver(c)

	res, err := r.Resolve(context.Background(), "2019-04-25T08:18:05", "bayestar.fits.gz")
	require.NoError(t, err)

	assert.Equal(t, SkymapFile, res.Branch)
	require.NotNil(t, res.Notice)
	assert.Equal(t, "memory://bayestar.fits.gz.txt", res.Record().(format.NoticeEvent).XML)
	assert.Zero(t, c.skymapFetches)
}

func TestResolveFallsBackToSkymap(t *testing.T) {
	// position notice for a different circle
	c := newFake([]string{"20_-3.2_0.5"}, content(positionNotice))
	r, store := newResolver(c)

	res, err := r.Resolve(context.Background(), "2019-04-25T08:18:05", "20_-3.2_0.5")
	require.NoError(t, err)

	assert.Equal(t, Circular, res.Branch, "circular branch was tried first")
	assert.Nil(t, res.Notice)
	require.NotNil(t, res.Skymap)
	assert.Equal(t, "2019-04-25T08:18:05", res.Skymap.Dateobs)
	assert.Equal(t, "memory://20_-3.2_0.5.fits", res.Skymap.Skymap)
	assert.Equal(t, []string{"GW", "BNS"}, res.Skymap.Tags)
	assert.Equal(t, 1, c.skymapFetches)

	b, err := store.Get("20_-3.2_0.5.fits")
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("SIMPLE  =")))
	assert.Zero(t, len(b)%2880, "FITS files are made of 2880 byte blocks")
	assert.Contains(t, string(b), "PROB")
	assert.Contains(t, string(b), "RING")
	assert.Contains(t, string(b), "HEALPIX")
}

func TestResolveOtherNameSkipsNotices(t *testing.T) {
	c := newFake([]string{"Fermi_GBM"}, content(positionNotice), content(skymapNotice))
	r, _ := newResolver(c)

	res, err := r.Resolve(context.Background(), "2019-04-25T08:18:05", "Fermi_GBM")
	require.NoError(t, err)
	assert.Equal(t, Other, res.Branch)
	require.NotNil(t, res.Skymap)
	assert.IsType(t, format.SkymapEvent{}, res.Record())
}

func TestResolveUnknownLocalization(t *testing.T) {
	c := newFake([]string{"bayestar.fits.gz"})
	r, _ := newResolver(c)

	_, err := r.Resolve(context.Background(), "2019-04-25T08:18:05", "LALInference.fits.gz")
	assert.ErrorIs(t, err, ErrUnknownLocalization)
}

func TestResolveEventStatus(t *testing.T) {
	c := newFake(nil)
	c.eventStatus = http.StatusNotFound
	r, _ := newResolver(c)

	_, err := r.Resolve(context.Background(), "2019-04-25T08:18:05", "x")
	var se *catalog.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
}

func TestResolveSkymapStatus(t *testing.T) {
	c := newFake([]string{"Fermi_GBM"})
	c.skymapStatus = http.StatusForbidden
	r, _ := newResolver(c)

	_, err := r.Resolve(context.Background(), "2019-04-25T08:18:05", "Fermi_GBM")
	var se *catalog.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "localization", se.Endpoint)
}

// The matcher checks containment, not equality. These cases pin that
// behaviour rather than endorse it.
func TestMatchCircularSubstringFalsePositives(t *testing.T) {
	notice := `<Position2D unit="deg"><C1>1.5</C1><C2>3.2</C2><Error2Radius>0.5</Error2Radius></Position2D>`

	_, ok := MatchCircular("11.5_-3.2_10.5", []string{notice})
	assert.True(t, ok, "RA 1.5 is contained in 11.5, dec 3.2 in -3.2, radius 0.5 in 10.5")

	_, ok = MatchCircular("1.5_3.2_0.4", []string{notice})
	assert.False(t, ok)
}

func TestMatchCircularSkipsIncompleteNotices(t *testing.T) {
	broken := `<Position2D unit="deg"><C1>10.5</C1></Position2D>`
	_, ok := MatchCircular("10.5_-3.2_0.5", []string{broken})
	assert.False(t, ok)

	got, ok := MatchCircular("10.5_-3.2_0.5", []string{broken, positionNotice})
	assert.True(t, ok)
	assert.Equal(t, positionNotice, got)
}

func TestMatchSkymapFileFirstMatchWins(t *testing.T) {
	other := `<Param name="skymap_fits" value="https://example.org/other/bayestar.fits.gz"></Param> second`

	got, ok := MatchSkymapFile("bayestar.fits.gz", []string{other, skymapNotice})
	assert.True(t, ok)
	assert.Equal(t, other, got)

	_, ok = MatchSkymapFile("LALInference.fits.gz", []string{skymapNotice})
	assert.False(t, ok)
}

func TestNSide(t *testing.T) {
	for _, tt := range []struct{ npix, nside int }{{12, 1}, {48, 2}, {192, 4}, {12 * 64 * 64, 64}} {
		got, err := NSide(tt.npix)
		require.NoError(t, err)
		assert.Equal(t, tt.nside, got)
	}
	for _, npix := range []int{0, 11, 24, 36, 100} {
		_, err := NSide(npix)
		assert.Error(t, err, npix)
	}
}

func TestCheck(t *testing.T) {
	f := newFake([]string{"bayestar.fits.gz"})
	r, store := newResolver(f)
	ctx := context.Background()

	ev, err := r.Check(ctx, "2019-04-25T08:18:05", "bayestar.fits.gz")
	require.NoError(t, err)
	assert.Equal(t, []string{"GW", "BNS"}, ev.Tags)
	assert.Empty(t, store.Keys(), "checking writes nothing")
	assert.Zero(t, f.skymapFetches)

	_, err = r.Check(ctx, "2019-04-25T08:18:05", "LALInference.fits.gz")
	assert.ErrorIs(t, err, ErrUnknownLocalization)

	f.eventStatus = http.StatusNotFound
	_, err = r.Check(ctx, "2019-04-25T08:18:05", "bayestar.fits.gz")
	var se *catalog.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Status)
}
