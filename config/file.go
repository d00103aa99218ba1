package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the optional config.yaml accepted by --config. Keys follow the
// names the catalog's own dump scripts used, so existing files keep working.
type File struct {
	URL                 *string  `yaml:"skyportal_url"`
	Token               *string  `yaml:"skyportal_token"`
	Whitelisted         *bool    `yaml:"whitelisted"`
	NumPerPage          *int     `yaml:"numPerPage"`
	LocalizationDateobs *string  `yaml:"localizationDateobs"`
	LocalizationName    *string  `yaml:"localizationName"`
	StartDate           *string  `yaml:"startDate"`
	EndDate             *string  `yaml:"endDate"`
	LocalizationCumprob *float64 `yaml:"localizationCumprob"`
	NumberDetections    *int     `yaml:"numberDetections"`
	InstrumentID        *int     `yaml:"instrumentId"`
	AllocationID        *int     `yaml:"allocationId"`
	SourceID            *string  `yaml:"sourceId"`
	Service             *string  `yaml:"service"`
	OutputFormat        *string  `yaml:"outputFormat"`
}

func ReadFile(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &f, nil
}

// Apply overwrites every field of c that f sets.
func (f *File) Apply(c *Config) {
	setString(&c.SkyPortal.URL, f.URL)
	setString(&c.SkyPortal.Token, f.Token)
	if f.Whitelisted != nil {
		c.SkyPortal.Whitelisted = *f.Whitelisted
	}
	if f.NumPerPage != nil {
		c.NumPerPage = *f.NumPerPage
	}

	q := &c.Query
	setString(&q.LocalizationDateobs, f.LocalizationDateobs)
	setString(&q.LocalizationName, f.LocalizationName)
	setString(&q.StartDate, f.StartDate)
	setString(&q.EndDate, f.EndDate)
	setString(&q.SourceID, f.SourceID)
	setString(&q.Service, f.Service)
	setString(&q.OutputFormat, f.OutputFormat)
	if f.LocalizationCumprob != nil {
		q.LocalizationCumprob = f.LocalizationCumprob
	}
	if f.NumberDetections != nil {
		q.NumberDetections = f.NumberDetections
	}
	if f.InstrumentID != nil {
		q.InstrumentID = f.InstrumentID
	}
	if f.AllocationID != nil {
		q.AllocationID = f.AllocationID
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
