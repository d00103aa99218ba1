// Package format projects raw catalog entities onto the export schema.
// Field order of every record is the order the importer documents; nil
// pointers are written as YAML null.
package format

import "github.com/skyportal/dump/catalog"

type Group struct {
	Name string `yaml:"name"`
	ID   string `yaml:"=id"`
}

type Telescope struct {
	Name          string   `yaml:"name"`
	Nickname      string   `yaml:"nickname"`
	Lat           *float64 `yaml:"lat"`
	Lon           *float64 `yaml:"lon"`
	Elevation     *float64 `yaml:"elevation"`
	Diameter      *float64 `yaml:"diameter"`
	Robotic       *bool    `yaml:"robotic"`
	FixedLocation *bool    `yaml:"fixed_location"`
	SkycamLink    *string  `yaml:"skycam_link"`
	WeatherLink   *string  `yaml:"weather_link"`
	ID            string   `yaml:"=id"`
}

type Instrument struct {
	Name                string                         `yaml:"name"`
	Type                *string                        `yaml:"type"`
	Band                *string                        `yaml:"band"`
	TelescopeID         string                         `yaml:"telescope_id"`
	Filters             []string                       `yaml:"filters"`
	APIClassname        *string                        `yaml:"api_classname"`
	APIClassnameObsplan *string                        `yaml:"api_classname_obsplan"`
	TreasuremapID       *int                           `yaml:"treasuremap_id"`
	SensitivityData     map[string]catalog.Sensitivity `yaml:"sensitivity_data"`
	ID                  string                         `yaml:"=id"`
}

type Source struct {
	ID       string   `yaml:"id"`
	RA       *float64 `yaml:"ra"`
	Dec      *float64 `yaml:"dec"`
	Origin   *string  `yaml:"origin"`
	Alias    []string `yaml:"alias"`
	GroupIDs []string `yaml:"group_ids"`
	Redshift *float64 `yaml:"redshift"`
}

type PhotometryRef struct {
	ObjID        string   `yaml:"obj_id"`
	InstrumentID string   `yaml:"instrument_id"`
	GroupIDs     []string `yaml:"group_ids"`
	File         string   `yaml:"file"`
}

type Allocation struct {
	PI             *string  `yaml:"pi"`
	ProposalID     *string  `yaml:"proposal_id"`
	StartDate      *string  `yaml:"start_date"`
	EndDate        *string  `yaml:"end_date"`
	HoursAllocated *float64 `yaml:"hours_allocated"`
	GroupID        string   `yaml:"group_id"`
	InstrumentID   string   `yaml:"instrument_id"`
}

// FollowupRequest keeps the catalog's numeric ids; the importer matches
// follow-ups by id rather than by identity.
type FollowupRequest struct {
	LastModifiedByID *int           `yaml:"last_modified_by_id,omitempty"`
	ObjID            string         `yaml:"obj_id"`
	Payload          map[string]any `yaml:"payload"`
	Status           *string        `yaml:"status,omitempty"`
	AllocationID     int            `yaml:"allocation_id"`
	CreatedAt        *string        `yaml:"created_at,omitempty"`
	ID               int            `yaml:"id"`
	Modified         *string        `yaml:"modified,omitempty"`
	RequesterID      *int           `yaml:"requester_id,omitempty"`
}

// SkymapEvent is the raster form of a sky event: the localization was
// written as a map file.
type SkymapEvent struct {
	Dateobs string   `yaml:"dateobs"`
	Skymap  string   `yaml:"skymap"`
	Tags    []string `yaml:"tags"`
}

// NoticeEvent is the notice form of a sky event: a matching notice was
// written as a text file.
type NoticeEvent struct {
	XML string `yaml:"xml"`
}
