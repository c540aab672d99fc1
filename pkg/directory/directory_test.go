package directory_test

import (
	"testing"

	"github.com/aquamind/batchsim/pkg/directory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestDirectory() *directory.Directory {
	d := directory.New()
	d.AddGeography("Testland")
	d.AddStation(directory.Station{ID: "TL-ST01", Geography: "Testland", Index: 0})
	d.AddStation(directory.Station{ID: "TL-ST02", Geography: "Testland", Index: 1})

	d.AddHall(directory.Hall{ID: "TL-ST01-HA", StationID: "TL-ST01", Name: "Hall A", StageRole: "A"})
	d.AddContainer(directory.Container{ID: "tank-1", HallID: "TL-ST01-HA", MaxBiomassKg: 5000, Active: true})
	d.AddContainer(directory.Container{ID: "tank-2", HallID: "TL-ST01-HA", MaxBiomassKg: 5000, Active: false})

	d.AddArea(directory.Area{ID: "TL-ST01-SEA", StationID: "TL-ST01"})
	d.AddContainer(directory.Container{ID: "ring-1", AreaID: "TL-ST01-SEA", MaxBiomassKg: 250000, Active: true})

	return d
}

func TestResolveStation_RoundRobinWraparound(t *testing.T) {
	d := buildTestDirectory()

	st, err := d.ResolveStation("Testland", 0)
	require.NoError(t, err)
	assert.Equal(t, "TL-ST01", st.ID)

	st, err = d.ResolveStation("Testland", 1)
	require.NoError(t, err)
	assert.Equal(t, "TL-ST02", st.ID)

	// index 2 wraps back around to the first station registered.
	st, err = d.ResolveStation("Testland", 2)
	require.NoError(t, err)
	assert.Equal(t, "TL-ST01", st.ID)

	st, err = d.ResolveStation("Testland", 5)
	require.NoError(t, err)
	assert.Equal(t, "TL-ST02", st.ID)
}

func TestResolveStation_UnknownGeographyFails(t *testing.T) {
	d := buildTestDirectory()
	_, err := d.ResolveStation("Nowhere", 0)
	assert.Error(t, err)
}

func TestStationCount(t *testing.T) {
	d := buildTestDirectory()
	assert.Equal(t, 2, d.StationCount("Testland"))
	assert.Equal(t, 0, d.StationCount("Nowhere"))
}

func TestContainersForStage_FiltersByHallRoleAndActive(t *testing.T) {
	d := buildTestDirectory()
	st, err := d.ResolveStation("Testland", 0)
	require.NoError(t, err)

	containers, err := d.ContainersForStage(st, directory.StageEggAlevin)
	require.NoError(t, err)
	require.Len(t, containers, 1, "the inactive tank-2 should be excluded")
	assert.Equal(t, "tank-1", containers[0].ID)
}

func TestContainersForStage_StageWithoutHallRoleFails(t *testing.T) {
	d := buildTestDirectory()
	st, err := d.ResolveStation("Testland", 0)
	require.NoError(t, err)

	_, err = d.ContainersForStage(st, directory.StageAdult)
	assert.Error(t, err)
}

func TestSeaContainersInArea(t *testing.T) {
	d := buildTestDirectory()
	st, err := d.ResolveStation("Testland", 0)
	require.NoError(t, err)

	containers, err := d.SeaContainersInArea(st, "TL-ST01-SEA")
	require.NoError(t, err)
	require.Len(t, containers, 1)
	assert.Equal(t, "ring-1", containers[0].ID)

	_, err = d.SeaContainersInArea(st, "no-such-area")
	assert.Error(t, err)
}

func TestCapacityOf(t *testing.T) {
	d := buildTestDirectory()

	capKg, err := d.CapacityOf("tank-1")
	require.NoError(t, err)
	assert.Equal(t, 5000.0, capKg)

	_, err = d.CapacityOf("no-such-container")
	assert.Error(t, err)
}

func TestGeographies_SortedDeterministically(t *testing.T) {
	d := directory.New()
	d.AddGeography("Scotland")
	d.AddGeography("Faroe Islands")
	assert.Equal(t, []string{"Faroe Islands", "Scotland"}, d.Geographies())
}

func TestBuildFromSeed_DefaultSeedMatchesExpectedTopology(t *testing.T) {
	d := directory.BuildFromSeed(directory.DefaultSeed())

	assert.ElementsMatch(t, []string{"Faroe Islands", "Scotland"}, d.Geographies())
	assert.Equal(t, 14, d.StationCount("Faroe Islands"))
	assert.Equal(t, 10, d.StationCount("Scotland"))

	st, err := d.ResolveStation("Faroe Islands", 0)
	require.NoError(t, err)

	for _, stage := range []directory.LifecycleStage{
		directory.StageEggAlevin, directory.StageFry, directory.StageParr,
		directory.StageSmolt, directory.StagePostSmolt,
	} {
		containers, err := d.ContainersForStage(st, stage)
		require.NoError(t, err)
		assert.Len(t, containers, 10, "stage %s", stage)
	}

	rings, err := d.SeaContainersInArea(st, st.Areas[0])
	require.NoError(t, err)
	assert.Len(t, rings, 10)

	capKg, err := d.CapacityOf(rings[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 250000.0, capKg)
}
