package format

import (
	"errors"
	"fmt"

	"github.com/skyportal/dump/catalog"
	"github.com/skyportal/dump/refresolver"
)

// PublicGroup is the record standing for the public group in bundles that
// do not export real groups.
func PublicGroup() Group {
	return Group{Name: refresolver.PublicGroupName, ID: refresolver.PublicGroupID}
}

// Groups formats groups and builds their identity table. The public group
// resolves to the well known identity and is not emitted.
func Groups(groups []catalog.Group) ([]Group, *refresolver.Table) {
	table := refresolver.NewTable("group")
	out := make([]Group, 0, len(groups))
	for _, g := range refresolver.Dedup(groups, func(g catalog.Group) int { return g.ID }) {
		if g.Name == refresolver.PublicGroupName {
			table.Set(g.ID, refresolver.PublicGroupID)
			continue
		}
		rec := Group{Name: g.Name, ID: refresolver.Identity(g.Name)}
		table.Set(g.ID, rec.ID)
		out = append(out, rec)
	}
	return out, table
}

func Telescopes(telescopes []catalog.Telescope) ([]Telescope, *refresolver.Table) {
	table := refresolver.NewTable("telescope")
	out := make([]Telescope, 0, len(telescopes))
	for _, t := range refresolver.Dedup(telescopes, func(t catalog.Telescope) int { return t.ID }) {
		rec := Telescope{
			Name:          t.Name,
			Nickname:      t.Nickname,
			Lat:           t.Lat,
			Lon:           t.Lon,
			Elevation:     t.Elevation,
			Diameter:      t.Diameter,
			Robotic:       t.Robotic,
			FixedLocation: t.FixedLocation,
			SkycamLink:    t.SkycamLink,
			WeatherLink:   t.WeatherLink,
			ID:            refresolver.Identity(t.Nickname),
		}
		table.Set(t.ID, rec.ID)
		out = append(out, rec)
	}
	return out, table
}

// Instruments formats instruments against the telescope table. An
// instrument whose telescope cannot be resolved is left out of both the
// records and the returned table, so anything referring to it fails too.
// The returned error joins every such failure.
func Instruments(instruments []catalog.Instrument, telescopes *refresolver.Table) ([]Instrument, *refresolver.Table, error) {
	table := refresolver.NewTable("instrument")
	out := make([]Instrument, 0, len(instruments))
	var errs []error
	for _, i := range refresolver.Dedup(instruments, func(i catalog.Instrument) int { return i.ID }) {
		telescope, err := telescopes.Ref(i.TelescopeID)
		if err != nil {
			errs = append(errs, fmt.Errorf("instrument %q: %w", i.Name, err))
			continue
		}
		rec := Instrument{
			Name:                i.Name,
			Type:                i.Type,
			Band:                i.Band,
			TelescopeID:         telescope,
			Filters:             i.Filters,
			APIClassname:        i.APIClassname,
			APIClassnameObsplan: i.APIClassnameObsplan,
			TreasuremapID:       i.TreasuremapID,
			SensitivityData:     i.SensitivityData,
			ID:                  refresolver.Identity(i.Name),
		}
		table.Set(i.ID, rec.ID)
		out = append(out, rec)
	}
	return out, table, errors.Join(errs...)
}

func sourceRecord(s catalog.Source, groupIDs []string) Source {
	return Source{
		ID:       s.ID,
		RA:       s.RA,
		Dec:      s.Dec,
		Origin:   s.Origin,
		Alias:    s.Alias,
		GroupIDs: groupIDs,
		Redshift: s.Redshift,
	}
}

// ToSource remaps the source's groups through the group table.
func ToSource(s catalog.Source, groups *refresolver.Table) (Source, error) {
	refs, err := groups.Refs(s.GroupIDs())
	if err != nil {
		return Source{}, fmt.Errorf("source %s: %w", s.ID, err)
	}
	return sourceRecord(s, refs), nil
}

// ToPublicSource shares the source with the public group only.
func ToPublicSource(s catalog.Source) Source {
	return sourceRecord(s, []string{refresolver.PublicGroupRef()})
}

// ToPhotometryRef builds the record pointing at one photometry partition
// file. A nil groups table puts the public placeholder in group_ids.
func ToPhotometryRef(objID string, instrumentID int, groupIDs []int, file string, instruments, groups *refresolver.Table) (PhotometryRef, error) {
	instrument, err := instruments.Ref(instrumentID)
	if err != nil {
		return PhotometryRef{}, fmt.Errorf("photometry of %s: %w", objID, err)
	}

	refs := []string{refresolver.PublicGroupRef()}
	if groups != nil {
		refs, err = groups.Refs(groupIDs)
		if err != nil {
			return PhotometryRef{}, fmt.Errorf("photometry of %s: %w", objID, err)
		}
	}

	return PhotometryRef{
		ObjID:        objID,
		InstrumentID: instrument,
		GroupIDs:     refs,
		File:         file,
	}, nil
}

// ToAllocation remaps an allocation's instrument and group. A nil groups
// table puts the public placeholder in group_id.
func ToAllocation(a catalog.Allocation, instruments, groups *refresolver.Table) (Allocation, error) {
	instrument, err := instruments.Ref(a.InstrumentID)
	if err != nil {
		return Allocation{}, fmt.Errorf("allocation %d: %w", a.ID, err)
	}

	group := refresolver.PublicGroupRef()
	if groups != nil {
		group, err = groups.Ref(a.GroupID)
		if err != nil {
			return Allocation{}, fmt.Errorf("allocation %d: %w", a.ID, err)
		}
	}

	return Allocation{
		PI:             a.PI,
		ProposalID:     a.ProposalID,
		StartDate:      a.StartDate,
		EndDate:        a.EndDate,
		HoursAllocated: a.HoursAllocated,
		GroupID:        group,
		InstrumentID:   instrument,
	}, nil
}

func ToFollowupRequest(f catalog.FollowupRequest) FollowupRequest {
	return FollowupRequest{
		LastModifiedByID: f.LastModifiedByID,
		ObjID:            f.ObjID,
		Payload:          f.Payload,
		Status:           f.Status,
		AllocationID:     f.AllocationID,
		CreatedAt:        f.CreatedAt,
		ID:               f.ID,
		Modified:         f.Modified,
		RequesterID:      f.RequesterID,
	}
}
