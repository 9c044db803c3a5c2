package normalize

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(path, body string) error { return os.WriteFile(path, []byte(body), 0o644) }

func TestBuildReport(t *testing.T) {
	n, err := New(Options{})
	require.NoError(t, err)

	st := n.BuildReport([]Location{
		{Negeri: "SELANGOR", Bandar: "PJ"},
		{Negeri: "selangor darul ehsan", Bandar: "Shah Alam"},
		{Negeri: "WP Kuala Lumpur", Bandar: "Bdr Sunway"},
		{Negeri: "Selangr", Bandar: "Bdr Sunway"},
		{Negeri: "", Bandar: ""},
	})

	assert.Equal(t, 5, st.Total)
	assert.Equal(t, 3, st.Negeri.Normalized)
	assert.Equal(t, map[string]int{"Selangor": 2, "Kuala Lumpur": 1}, st.Negeri.Breakdown)
	assert.Equal(t, []string{"Selangr"}, st.Negeri.Unrecognized)
	assert.Equal(t, "Selangor", st.Negeri.Suggestions["Selangr"])

	assert.Equal(t, 2, st.Bandar.Normalized)
	assert.Equal(t, map[string]int{"Petaling Jaya": 1, "Shah Alam": 1}, st.Bandar.Breakdown)
	assert.Equal(t, []string{"Bdr Sunway"}, st.Bandar.Unrecognized)
	assert.Equal(t, map[string]int{"Bdr Sunway": 2}, st.Bandar.UnrecognizedCounts)
	assert.Equal(t, map[string]int{"Selangr": 1}, st.Negeri.UnrecognizedCounts)
}

func TestBuildReportDoesNotMutateInput(t *testing.T) {
	locs := []Location{{Negeri: "pp", Bandar: "kl"}}
	Default().BuildReport(locs)
	assert.Equal(t, Location{Negeri: "pp", Bandar: "kl"}, locs[0])
}

func TestSuggest(t *testing.T) {
	d, err := DefaultNegeri()
	require.NoError(t, err)

	name, score, ok := d.Suggest("Terenganu")
	assert.True(t, ok)
	assert.Equal(t, "Terengganu", name)
	assert.GreaterOrEqual(t, score, SuggestThreshold)

	_, _, ok = d.Suggest("Atlantis")
	assert.False(t, ok)
}
