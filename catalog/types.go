package catalog

// Raw catalog entities as returned inside the "data" envelope. Fields the
// catalog may omit or null are pointers.

type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Telescope struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Nickname      string   `json:"nickname"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	Elevation     *float64 `json:"elevation"`
	Diameter      *float64 `json:"diameter"`
	Robotic       *bool    `json:"robotic"`
	FixedLocation *bool    `json:"fixed_location"`
	SkycamLink    *string  `json:"skycam_link"`
	WeatherLink   *string  `json:"weather_link"`
}

// Sensitivity is one filter's entry in an instrument's sensitivity_data.
type Sensitivity struct {
	LimitingMagnitude *float64 `json:"limiting_magnitude" yaml:"limiting_magnitude"`
	Magsys            *string  `json:"magsys" yaml:"magsys"`
	ExposureTime      *float64 `json:"exposure_time" yaml:"exposure_time"`
	ZeroPoint         *float64 `json:"zeropoint,omitempty" yaml:"zeropoint,omitempty"`
}

type Instrument struct {
	ID                  int                    `json:"id"`
	Name                string                 `json:"name"`
	Type                *string                `json:"type"`
	Band                *string                `json:"band"`
	TelescopeID         int                    `json:"telescope_id"`
	Filters             []string               `json:"filters"`
	APIClassname        *string                `json:"api_classname"`
	APIClassnameObsplan *string                `json:"api_classname_obsplan"`
	TreasuremapID       *int                   `json:"treasuremap_id"`
	SensitivityData     map[string]Sensitivity `json:"sensitivity_data"`
}

type Source struct {
	ID       string   `json:"id"`
	RA       *float64 `json:"ra"`
	Dec      *float64 `json:"dec"`
	Origin   *string  `json:"origin"`
	Alias    []string `json:"alias"`
	Redshift *float64 `json:"redshift"`
	Groups   []Group  `json:"groups"`
}

func (s Source) GroupIDs() []int {
	ids := make([]int, 0, len(s.Groups))
	for _, g := range s.Groups {
		ids = append(ids, g.ID)
	}
	return ids
}

type Photometry struct {
	ID             int      `json:"id"`
	MJD            float64  `json:"mjd"`
	Filter         string   `json:"filter"`
	Mag            *float64 `json:"mag"`
	MagErr         *float64 `json:"magerr"`
	MagSys         *string  `json:"magsys"`
	LimitingMag    *float64 `json:"limiting_mag"`
	RA             *float64 `json:"ra"`
	Dec            *float64 `json:"dec"`
	RAUnc          *float64 `json:"ra_unc"`
	DecUnc         *float64 `json:"dec_unc"`
	Origin         *string  `json:"origin"`
	InstrumentID   int      `json:"instrument_id"`
	InstrumentName string   `json:"instrument_name"`
	Groups         []Group  `json:"groups"`
}

type Allocation struct {
	ID             int      `json:"id"`
	PI             *string  `json:"pi"`
	ProposalID     *string  `json:"proposal_id"`
	StartDate      *string  `json:"start_date"`
	EndDate        *string  `json:"end_date"`
	HoursAllocated *float64 `json:"hours_allocated"`
	GroupID        int      `json:"group_id"`
	InstrumentID   int      `json:"instrument_id"`
}

// FollowupRequest payloads are instrument specific forms, so they stay
// untyped.
type FollowupRequest struct {
	ID               int            `json:"id"`
	LastModifiedByID *int           `json:"last_modified_by_id"`
	ObjID            string         `json:"obj_id"`
	Payload          map[string]any `json:"payload"`
	Status           *string        `json:"status"`
	AllocationID     int            `json:"allocation_id"`
	CreatedAt        *string        `json:"created_at"`
	Modified         *string        `json:"modified"`
	RequesterID      *int           `json:"requester_id"`
}

type FollowupPage struct {
	Requests     []FollowupRequest `json:"followup_requests"`
	TotalMatches int               `json:"totalMatches"`
}

type LocalizationInfo struct {
	ID   int    `json:"id"`
	Name string `json:"localization_name"`
}

type GcnNotice struct {
	ID      int     `json:"id"`
	Content *string `json:"content"`
}

type GcnEvent struct {
	Dateobs       string             `json:"dateobs"`
	Tags          []string           `json:"tags"`
	Localizations []LocalizationInfo `json:"localizations"`
	Notices       []GcnNotice        `json:"gcn_notices"`
}

// HasLocalization reports whether name is one of the event's localizations.
func (e GcnEvent) HasLocalization(name string) bool {
	for _, l := range e.Localizations {
		if l.Name == name {
			return true
		}
	}
	return false
}

// Skymap is a flattened HEALPix probability map in RING order.
type Skymap struct {
	Flat2D []float64 `json:"flat_2d"`
}

type AnalysisService struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type AnalysisRequest struct {
	AnalysisParameters map[string]string `json:"analysis_parameters"`
	GroupIDs           []int             `json:"group_ids"`
	ShowCorner         bool              `json:"show_corner"`
	ShowParameters     bool              `json:"show_parameters"`
	ShowPlots          bool              `json:"show_plots"`
}

type ExternalObservationRequest struct {
	AllocationID int    `json:"allocation_id"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}
