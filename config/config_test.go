package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.NumPerPage)
	assert.Equal(t, 10, cfg.Pacing.Every)
	assert.Equal(t, time.Second, cfg.Pacing.Pause)
	assert.Equal(t, 60*time.Second, cfg.SkyPortal.Timeout)
	assert.Equal(t, "fs", cfg.Blob.Driver)
	assert.Equal(t, "off", cfg.Tracing)
	assert.False(t, cfg.SkyPortal.Whitelisted)
}

func TestLoadFromEnv(t *testing.T) {
	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"SKYDUMP_SKYPORTAL_URL":         "https://fritz.science",
		"SKYDUMP_SKYPORTAL_TOKEN":       "abcd-1234",
		"SKYDUMP_SKYPORTAL_WHITELISTED": "true",
		"SKYDUMP_BLOB_DRIVER":           "s3",
		"SKYDUMP_BLOB_S3_BUCKET":        "dumps",
	}))
	require.NoError(t, err)

	assert.Equal(t, "https://fritz.science", cfg.SkyPortal.URL)
	assert.Equal(t, "abcd-1234", cfg.SkyPortal.Token)
	assert.True(t, cfg.SkyPortal.Whitelisted)
	assert.Equal(t, "s3", cfg.Blob.Driver)
	assert.Equal(t, "dumps", cfg.Blob.S3.Bucket)
	assert.Equal(t, "us-east-1", cfg.Blob.S3.Region)
}

func TestFileApply(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
skyportal_url: http://localhost:5000
skyportal_token: tok
whitelisted: true
localizationDateobs: "2019-04-25T08:18:05"
localizationName: bayestar.fits.gz
localizationCumprob: 0.9
numberDetections: 3
numPerPage: 50
`), 0o644))

	f, err := ReadFile(path)
	require.NoError(t, err)

	cfg := &Config{NumPerPage: 100}
	f.Apply(cfg)

	assert.Equal(t, "http://localhost:5000", cfg.SkyPortal.URL)
	assert.Equal(t, "tok", cfg.SkyPortal.Token)
	assert.True(t, cfg.SkyPortal.Whitelisted)
	assert.Equal(t, 50, cfg.NumPerPage)
	assert.Equal(t, "2019-04-25T08:18:05", cfg.Query.LocalizationDateobs)
	assert.Equal(t, "bayestar.fits.gz", cfg.Query.LocalizationName)
	require.NotNil(t, cfg.Query.LocalizationCumprob)
	assert.InDelta(t, 0.9, *cfg.Query.LocalizationCumprob, 1e-9)
	require.NotNil(t, cfg.Query.NumberDetections)
	assert.Equal(t, 3, *cfg.Query.NumberDetections)
	assert.Nil(t, cfg.Query.InstrumentID)
}

func TestRequireReportsAllMissing(t *testing.T) {
	cfg := &Config{}
	cfg.SkyPortal.URL = "http://localhost"

	err := cfg.Require(ParamLocalizationDateobs, ParamURL, ParamToken, ParamStartDate)
	require.Error(t, err)

	var missing *MissingParamsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{ParamLocalizationDateobs, ParamToken, ParamStartDate}, missing.Params)
	assert.Equal(t, "the following parameters are missing: localizationDateobs, token, startDate", err.Error())
}

func TestRequireSatisfied(t *testing.T) {
	cfg := &Config{}
	cfg.SkyPortal.URL = "http://localhost"
	cfg.SkyPortal.Token = "t"
	id := 4
	cfg.Query.InstrumentID = &id

	assert.NoError(t, cfg.Require(ParamURL, ParamToken, ParamInstrumentID))
}

func TestMaskedToken(t *testing.T) {
	tests := []struct {
		token string
		want  string
	}{
		{"", ""},
		{"abc", "***"},
		{"0123456789", "****6789"},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			c := &Config{}
			c.SkyPortal.Token = tt.token
			assert.Equal(t, tt.want, c.MaskedToken())
		})
	}
}
