package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/metobs-sync/internal/domain"
)

// Layout as produced by the station enrichment run, with the extra metobs
// columns a raw export carries.
const stationsCSV = `key;name;owner;ownerCategory;measuringStations;active;from;to;height;latitude;longitude;municipality
159880;Arvidsjaur A;SMHI;CLIMATE;CORE;True;1104537600000;1709272800000;379.0;65.5903;19.1814;Arvidsjaur
188790;Abisko;SMHI;CLIMATE;CORE;False;-631152000000;1262304000000;392.0;68.3538;18.8164;
159880;Arvidsjaur A (dup);SMHI;CLIMATE;CORE;True;1104537600000;1709272800000;379.0;65.5903;19.1814;Other
`

func TestReadStations(t *testing.T) {
	stations, err := ReadStations(strings.NewReader(stationsCSV))
	require.NoError(t, err)

	want := []domain.Station{
		{
			ID:           "159880",
			Name:         "Arvidsjaur A",
			Active:       true,
			From:         time.Date(2005, 1, 1, 0, 0, 0, 0, time.UTC),
			To:           time.UnixMilli(1709272800000).UTC(),
			Lat:          65.5903,
			Lon:          19.1814,
			Municipality: "Arvidsjaur",
		},
		{
			ID:     "188790",
			Name:   "Abisko",
			Active: false,
			From:   time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
			To:     time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC),
			Lat:    68.3538,
			Lon:    18.8164,
		},
	}
	if diff := cmp.Diff(want, stations); diff != "" {
		t.Errorf("stations mismatch (-want +got):\n%s", diff)
	}
}

func TestReadStations_MissingColumn(t *testing.T) {
	_, err := ReadStations(strings.NewReader("key;name;active\n1;A;true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing column "from"`)
}

func TestReadStations_Empty(t *testing.T) {
	_, err := ReadStations(strings.NewReader(""))
	require.Error(t, err)
}

func TestReadStations_BadActive(t *testing.T) {
	_, err := ReadStations(strings.NewReader("key;name;active;from;to;municipality\n1;A;maybe;;;\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReadStations_DateOnlyTimes(t *testing.T) {
	stations, err := ReadStations(strings.NewReader("key;name;active;from;to;municipality\n1;A;true;2001-02-03;;Umeå\n"))
	require.NoError(t, err)
	require.Len(t, stations, 1)
	assert.Equal(t, time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC), stations[0].From)
	assert.True(t, stations[0].To.IsZero())
	assert.False(t, stations[0].HasCoordinates())
}

func TestWriteStations_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "stations.csv")
	in, err := ReadStations(strings.NewReader(stationsCSV))
	require.NoError(t, err)

	require.NoError(t, WriteStations(path, in))

	out, err := LoadStations(path)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "key;name;active;from;to;latitude;longitude;municipality\n"))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoadStations_MissingFile(t *testing.T) {
	_, err := LoadStations(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
}

func TestReadMunicipalities(t *testing.T) {
	names, err := ReadMunicipalities(strings.NewReader("Kod;Kommun\n0114;Upplands Väsby\n0180;Stockholm\n2584;Kiruna\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Upplands Väsby", "Stockholm", "Kiruna"}, names)
}

func TestReadMunicipalities_WrongFieldCount(t *testing.T) {
	_, err := ReadMunicipalities(strings.NewReader("Kod;Kommun\n0114;Upplands Väsby;extra\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 fields")
}

func TestLoadMunicipalities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "swedish_municipalities.csv")
	require.NoError(t, os.WriteFile(path, []byte("Kod;Kommun\n1280;Malmö\n"), 0o600))

	names, err := LoadMunicipalities(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Malmö"}, names)
}
