package csvfile

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/crash-data-engine/internal/domain"
	"github.com/couchcryptid/crash-data-engine/internal/observability"
)

const sampleHeader = `ID,Crash timestamp (US/Central),crash_sev_id,onsys_fl,death_cnt,sus_serious_injry_cnt,pedestrian_death_count,bicycle_death_count,motorcycle_death_count,motor_vehicle_death_count,rpt_street_name,latitude,longitude,crash_speed_limit,Estimated Total Comprehensive Cost`

const sampleRows = `100,2021-04-26 08:15:00,1,true,1,0,0,0,0,1,LAMAR BLVD,30.27,-97.74,45,3100000
101,2021-04-26 22:40:00,0,false,0,0,0,0,0,0,SOUTH FIRST ST,30.25,-97.75,30,20000
102,2021-04-27 08:05:00,1,false,1,0,1,0,0,0,LAMAR BLVD,30.28,-97.73,45,3100000`

func newTestLoader() *Loader {
	return NewLoader(slog.Default(), observability.NewMetricsForTesting())
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "crashes.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Load(t *testing.T) {
	t.Run("well-formed export", func(t *testing.T) {
		path := writeCSV(t, sampleHeader+"\n"+sampleRows+"\n")

		ds, err := newTestLoader().Load(context.Background(), path)
		require.NoError(t, err)

		assert.Equal(t, 3, ds.Len())
		assert.Equal(t, path, ds.Source.Path)
		assert.Equal(t, "100", ds.Records[0].ID)
		require.NotNil(t, ds.Records[0].SeverityLabel)
		assert.Equal(t, domain.SeverityFatal, *ds.Records[0].SeverityLabel)
		require.NotNil(t, ds.Records[1].RoadType)
		assert.Equal(t, domain.RoadTypeOffSystem, *ds.Records[1].RoadType)
	})

	t.Run("header only yields empty dataset", func(t *testing.T) {
		path := writeCSV(t, sampleHeader+"\n")

		ds, err := newTestLoader().Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, 0, ds.Len())
	})

	t.Run("short rows tolerated", func(t *testing.T) {
		path := writeCSV(t, sampleHeader+"\n"+"100,2021-04-26 08:15:00,1\n")

		ds, err := newTestLoader().Load(context.Background(), path)
		require.NoError(t, err)
		require.Equal(t, 1, ds.Len())
		assert.Equal(t, "100", ds.Records[0].ID)
		assert.Nil(t, ds.Records[0].OnSystem)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := newTestLoader().Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "open source", loadErr.Reason)
	})

	t.Run("unparseable delimited text", func(t *testing.T) {
		path := writeCSV(t, sampleHeader+"\n"+`100,"unterminated`+"\n")

		_, err := newTestLoader().Load(context.Background(), path)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "parse delimited text", loadErr.Reason)
		assert.Error(t, loadErr.Unwrap())
	})

	t.Run("empty file", func(t *testing.T) {
		path := writeCSV(t, "")

		_, err := newTestLoader().Load(context.Background(), path)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "empty source", loadErr.Reason)
	})

	t.Run("missing required columns lists every absence", func(t *testing.T) {
		header := strings.ReplaceAll(sampleHeader, "crash_sev_id", "sev")
		header = strings.ReplaceAll(header, "latitude", "lat")
		path := writeCSV(t, header+"\n")

		_, err := newTestLoader().Load(context.Background(), path)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, []string{domain.ColSeverity, domain.ColLatitude}, loadErr.Missing)
		assert.Contains(t, loadErr.Error(), domain.ColSeverity)
		assert.Contains(t, loadErr.Error(), domain.ColLatitude)
	})

	t.Run("canceled context", func(t *testing.T) {
		path := writeCSV(t, sampleHeader+"\n")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := newTestLoader().Load(ctx, path)

		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "canceled", loadErr.Reason)
	})

	t.Run("optional units_involved column", func(t *testing.T) {
		path := writeCSV(t, sampleHeader+",units_involved\n"+
			"100,2021-04-26 08:15:00,1,true,1,0,0,0,0,1,LAMAR BLVD,30.27,-97.74,45,3100000,2 units\n")

		ds, err := newTestLoader().Load(context.Background(), path)
		require.NoError(t, err)
		assert.Equal(t, "2 units", ds.Records[0].UnitsInvolved)
	})
}
