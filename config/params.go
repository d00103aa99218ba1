package config

import (
	"fmt"
	"strings"
)

// Param names as they appear in diagnostics and config_used.yaml.
const (
	ParamURL                 = "url"
	ParamToken               = "token"
	ParamLocalizationDateobs = "localizationDateobs"
	ParamLocalizationName    = "localizationName"
	ParamStartDate           = "startDate"
	ParamEndDate             = "endDate"
	ParamLocalizationCumprob = "localizationCumprob"
	ParamNumberDetections    = "numberDetections"
	ParamInstrumentID        = "instrumentId"
	ParamAllocationID        = "allocationId"
	ParamSourceID            = "sourceId"
	ParamService             = "service"
)

// MissingParamsError lists every required parameter a run was started without.
type MissingParamsError struct {
	Params []string
}

func (e *MissingParamsError) Error() string {
	return fmt.Sprintf("the following parameters are missing: %s", strings.Join(e.Params, ", "))
}

// Require checks all of the named parameters and reports the absent ones
// together, in the order they were asked for.
func (c *Config) Require(params ...string) error {
	var missing []string
	for _, p := range params {
		if !c.has(p) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &MissingParamsError{Params: missing}
	}
	return nil
}

func (c *Config) has(param string) bool {
	q := c.Query
	switch param {
	case ParamURL:
		return c.SkyPortal.URL != ""
	case ParamToken:
		return c.SkyPortal.Token != ""
	case ParamLocalizationDateobs:
		return q.LocalizationDateobs != ""
	case ParamLocalizationName:
		return q.LocalizationName != ""
	case ParamStartDate:
		return q.StartDate != ""
	case ParamEndDate:
		return q.EndDate != ""
	case ParamLocalizationCumprob:
		return q.LocalizationCumprob != nil
	case ParamNumberDetections:
		return q.NumberDetections != nil
	case ParamInstrumentID:
		return q.InstrumentID != nil
	case ParamAllocationID:
		return q.AllocationID != nil
	case ParamSourceID:
		return q.SourceID != ""
	case ParamService:
		return q.Service != ""
	}
	return false
}

// MaskedToken keeps the last four characters of the token so a recorded
// run can be matched to its credential without leaking it.
func (c *Config) MaskedToken() string {
	t := c.SkyPortal.Token
	if len(t) <= 4 {
		return strings.Repeat("*", len(t))
	}
	return "****" + t[len(t)-4:]
}
