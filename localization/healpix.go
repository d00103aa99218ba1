package localization

import (
	"fmt"
	"io"

	"github.com/astrogo/fitsio"
)

// NSide returns the HEALPix resolution of a full-sky map with npix pixels.
func NSide(npix int) (int, error) {
	if npix < 12 || npix%12 != 0 {
		return 0, fmt.Errorf("%d pixels is not a HEALPix map", npix)
	}
	n := npix / 12
	nside := 1
	for nside*nside < n {
		nside *= 2
	}
	if nside*nside != n {
		return 0, fmt.Errorf("%d pixels is not a HEALPix map", npix)
	}
	return nside, nil
}

// WriteSkymap writes prob as a HEALPix binary table with one PROB column
// in RING ordering, the layout healpy's write_map produces.
func WriteSkymap(w io.Writer, prob []float64) error {
	nside, err := NSide(len(prob))
	if err != nil {
		return err
	}

	f, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer f.Close()

	phdu, err := fitsio.NewPrimaryHDU(nil)
	if err != nil {
		return err
	}
	if err := f.Write(phdu); err != nil {
		return err
	}

	tbl, err := fitsio.NewTable("xtension", []fitsio.Column{
		{Name: "PROB", Format: "D"},
	}, fitsio.BINARY_TBL)
	if err != nil {
		return err
	}
	defer tbl.Close()

	if err := tbl.Header().Append(
		fitsio.Card{Name: "PIXTYPE", Value: "HEALPIX", Comment: "HEALPIX pixelisation"},
		fitsio.Card{Name: "ORDERING", Value: "RING", Comment: "Pixel ordering scheme"},
		fitsio.Card{Name: "COORDSYS", Value: "C", Comment: "Ecliptic, Galactic or Celestial (equatorial)"},
		fitsio.Card{Name: "NSIDE", Value: nside, Comment: "Resolution parameter of HEALPIX"},
		fitsio.Card{Name: "FIRSTPIX", Value: 0, Comment: "First pixel # (0 based)"},
		fitsio.Card{Name: "LASTPIX", Value: len(prob) - 1, Comment: "Last pixel # (0 based)"},
		fitsio.Card{Name: "INDXSCHM", Value: "IMPLICIT", Comment: "Indexing: IMPLICIT or EXPLICIT"},
		fitsio.Card{Name: "OBJECT", Value: "FULLSKY", Comment: "Sky coverage"},
	); err != nil {
		return err
	}

	for i := range prob {
		if err := tbl.Write(&prob[i]); err != nil {
			return fmt.Errorf("writing pixel %d: %w", i, err)
		}
	}
	return f.Write(tbl)
}
