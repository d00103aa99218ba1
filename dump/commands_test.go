package dump

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/skyportal/dump/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"
)

func root() *cli.Command {
	return &cli.Command{Name: "skydump", Commands: Commands()}
}

func TestRunDirectory(t *testing.T) {
	taken := map[string]bool{
		"results/2019-04-25T08:18:05":   true,
		"results/2019-04-25T08:18:05_1": true,
	}
	exists := func(dir string) bool { return taken[dir] }

	assert.Equal(t, "results/abc", RunDirectory(ResultsDir, "abc", exists))
	assert.Equal(t, "results/2019-04-25T08:18:05_2", RunDirectory(ResultsDir, "2019-04-25T08:18:05", exists))
}

func TestTimeStamp(t *testing.T) {
	ts := time.Date(2024, 3, 9, 7, 5, 1, 0, time.UTC)
	assert.Equal(t, "2024-03-09_07-05-01", TimeStamp(ts))
	assert.Len(t, RandomStamp(), 36)
}

func TestEventRequiresParams(t *testing.T) {
	t.Setenv("SKYDUMP_SKYPORTAL_URL", "")
	t.Setenv("SKYDUMP_SKYPORTAL_TOKEN", "")

	err := root().Run(context.Background(), []string{"skydump", "event", "--url", "http://127.0.0.1:1", "--start-date", "2019-04-25"})
	var missing *config.MissingParamsError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, []string{"localizationDateobs", "localizationName", "endDate", "token"}, missing.Params)
}

func TestObservationsRequiresParams(t *testing.T) {
	t.Setenv("SKYDUMP_SKYPORTAL_URL", "")
	t.Setenv("SKYDUMP_SKYPORTAL_TOKEN", "")

	err := root().Run(context.Background(), []string{"skydump", "observations"})
	var missing *config.MissingParamsError
	require.True(t, errors.As(err, &missing), "got %v", err)
	assert.Equal(t, []string{"allocationId", "startDate", "endDate", "url", "token"}, missing.Params)
}

func TestLoadConfigPrecedence(t *testing.T) {
	t.Setenv("SKYDUMP_SKYPORTAL_URL", "http://from-env")
	t.Setenv("SKYDUMP_SKYPORTAL_TOKEN", "env-token")
	t.Setenv("SKYDUMP_NUM_PER_PAGE", "20")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("skyportal_url: http://from-file\nnumPerPage: 50\nlocalizationName: bayestar.fits.gz\n"), 0o644))

	var cfg *config.Config
	cmd := &cli.Command{
		Name: "probe",
		Flags: withFlags(
			stringFlag("localization-name", ""),
			intFlag("instrument-id", ""),
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			var err error
			cfg, err = LoadConfig(ctx, cmd)
			return err
		},
	}
	require.NoError(t, cmd.Run(context.Background(), []string{"probe", "--config", path, "--url", "http://from-flag", "--instrument-id", "3"}))

	assert.Equal(t, "http://from-flag", cfg.SkyPortal.URL)
	assert.Equal(t, "env-token", cfg.SkyPortal.Token)
	assert.Equal(t, 50, cfg.NumPerPage)
	assert.Equal(t, "bayestar.fits.gz", cfg.Query.LocalizationName)
	require.NotNil(t, cfg.Query.InstrumentID)
	assert.Equal(t, 3, *cfg.Query.InstrumentID)
	assert.Nil(t, cfg.Query.AllocationID)
}

func TestSourcesCommandWritesBundle(t *testing.T) {
	f := newFakeCatalog(t)
	scenario(f)
	dir := filepath.Join(t.TempDir(), "run")

	err := root().Run(context.Background(), []string{
		"skydump", "sources",
		"--url", f.URL,
		"--token", "cli-token-9876",
		"--whitelisted",
		"--directory", dir,
		"--num-per-page", "10",
	})
	require.NoError(t, err)

	for _, name := range []string{"data.yaml", "config_used.yaml", "metrics.prom", "photometry/ZTF21ccc_ZTF_1.csv"} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	params, err := os.ReadFile(filepath.Join(dir, "config_used.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(params), "****9876")
	assert.Contains(t, string(params), "numPerPage: 10")
}
