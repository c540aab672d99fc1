// Package directory is the read-only infrastructure catalog (C1): the
// immutable geography/station/hall/area/container topology a simulation
// run is executed against. Reference data is seeded once at startup and
// never mutated while batches are running, so reads need no locking beyond
// what the seeding step itself performs.
package directory

import (
	"fmt"
	"sort"

	"github.com/aquamind/batchsim/pkg/simerr"
)

// ContainerType describes the physical class of a Container (tank, sea
// ring, ...) and its nominal footprint.
type ContainerType struct {
	Name     string
	VolumeM3 float64
}

// Container is a single rearing unit: a tank inside a Hall, or a ring
// inside a sea Area.
type Container struct {
	ID            string
	Name          string
	Type          ContainerType
	HallID        string // set when the container belongs to a Hall
	AreaID        string // set when the container belongs to an Area
	MaxBiomassKg  float64
	VolumeM3      float64
	Active        bool
}

// BelongsToHall reports whether the container lives in a freshwater hall.
func (c Container) BelongsToHall() bool { return c.HallID != "" }

// Hall is tagged with the single lifecycle stage role it serves.
type Hall struct {
	ID         string
	StationID  string
	Name       string
	StageRole  string // "A".."E", see LifecycleStage.HallRole
	Containers []string
}

// Area hosts Adult sea rings.
type Area struct {
	ID         string
	StationID  string
	Name       string
	Containers []string
}

// Station is a freshwater/seawater production site within a Geography.
type Station struct {
	ID         string
	Geography  string
	Index      int
	Halls      []string
	Areas      []string
}

// Geography groups stations by country/region (e.g. "Faroe Islands").
type Geography struct {
	Name     string
	Stations []string
}

// Directory is the immutable, in-memory infrastructure catalog.
type Directory struct {
	geographies map[string]Geography
	stations    map[string]Station
	halls       map[string]Hall
	areas       map[string]Area
	containers  map[string]Container

	// stationsByGeography preserves insertion order for deterministic
	// round-robin assignment in the Orchestrator.
	stationsByGeography map[string][]string
}

// New builds an empty Directory; BuildFromSeed or the Add* methods populate it.
func New() *Directory {
	return &Directory{
		geographies:          make(map[string]Geography),
		stations:             make(map[string]Station),
		halls:                make(map[string]Hall),
		areas:                make(map[string]Area),
		containers:            make(map[string]Container),
		stationsByGeography:  make(map[string][]string),
	}
}

// AddGeography registers a geography. Idempotent on name.
func (d *Directory) AddGeography(name string) {
	if _, ok := d.geographies[name]; !ok {
		d.geographies[name] = Geography{Name: name}
	}
}

// AddStation registers a station under a geography, preserving insertion
// order for round-robin resolution.
func (d *Directory) AddStation(st Station) {
	d.stations[st.ID] = st
	g := d.geographies[st.Geography]
	g.Stations = append(g.Stations, st.ID)
	d.geographies[st.Geography] = g
	d.stationsByGeography[st.Geography] = append(d.stationsByGeography[st.Geography], st.ID)
}

// AddHall registers a hall and its stage role.
func (d *Directory) AddHall(h Hall) {
	d.halls[h.ID] = h
	st := d.stations[h.StationID]
	st.Halls = append(st.Halls, h.ID)
	d.stations[h.StationID] = st
}

// AddArea registers a sea area.
func (d *Directory) AddArea(a Area) {
	d.areas[a.ID] = a
	st := d.stations[a.StationID]
	st.Areas = append(st.Areas, a.ID)
	d.stations[a.StationID] = st
}

// AddContainer registers a container and links it to its parent hall/area.
func (d *Directory) AddContainer(c Container) {
	d.containers[c.ID] = c
	if c.HallID != "" {
		h := d.halls[c.HallID]
		h.Containers = append(h.Containers, c.ID)
		d.halls[c.HallID] = h
	}
	if c.AreaID != "" {
		a := d.areas[c.AreaID]
		a.Containers = append(a.Containers, c.ID)
		d.areas[c.AreaID] = a
	}
}

// ResolveStation returns the station at `index` (0-based, in registration
// order) within a geography, implementing the Orchestrator's
// `batch_index mod station_count` round-robin rule.
func (d *Directory) ResolveStation(geography string, index int) (Station, error) {
	ids := d.stationsByGeography[geography]
	if len(ids) == 0 {
		return Station{}, fmt.Errorf("%w: geography %q has no stations", simerr.ErrNoPolicyFound, geography)
	}
	id := ids[index%len(ids)]
	return d.stations[id], nil
}

// StationCount returns the number of stations registered under geography.
func (d *Directory) StationCount(geography string) int {
	return len(d.stationsByGeography[geography])
}

// Geographies returns every registered geography name, sorted for
// deterministic iteration (Orchestrator Plan phase fan-out).
func (d *Directory) Geographies() []string {
	out := make([]string, 0, len(d.geographies))
	for name := range d.geographies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// StationsInGeography returns the stations registered under geography, in
// registration order (the same order ResolveStation indexes into).
func (d *Directory) StationsInGeography(geography string) []Station {
	ids := d.stationsByGeography[geography]
	out := make([]Station, 0, len(ids))
	for _, id := range ids {
		out = append(out, d.stations[id])
	}
	return out
}

// ContainersForStage returns the active containers of the hall that serves
// `stage`, in deterministic ID order.
func (d *Directory) ContainersForStage(station Station, stage LifecycleStage) ([]Container, error) {
	role, ok := stage.HallRole()
	if !ok {
		return nil, fmt.Errorf("%w: stage %s has no freshwater hall role", simerr.ErrNoPolicyFound, stage)
	}
	var out []Container
	for _, hallID := range station.Halls {
		h := d.halls[hallID]
		if h.StageRole != role {
			continue
		}
		out = append(out, d.activeContainers(h.Containers)...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// SeaContainersInArea returns the active containers within a named area of
// the station (Adult stage sea rings).
func (d *Directory) SeaContainersInArea(station Station, areaID string) ([]Container, error) {
	for _, id := range station.Areas {
		if id != areaID {
			continue
		}
		a := d.areas[id]
		out := d.activeContainers(a.Containers)
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out, nil
	}
	return nil, fmt.Errorf("%w: area %q not found in station %q", simerr.ErrNoPolicyFound, areaID, station.ID)
}

// ListActiveContainersForHall returns all active containers of a hall,
// regardless of stage role filtering.
func (d *Directory) ListActiveContainersForHall(hallID string) []Container {
	h, ok := d.halls[hallID]
	if !ok {
		return nil
	}
	out := d.activeContainers(h.Containers)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CapacityOf returns the max biomass capacity of a container.
func (d *Directory) CapacityOf(containerID string) (float64, error) {
	c, ok := d.containers[containerID]
	if !ok {
		return 0, fmt.Errorf("%w: container %q", simerr.ErrNotFound, containerID)
	}
	return c.MaxBiomassKg, nil
}

// Container looks up a single container by ID.
func (d *Directory) Container(containerID string) (Container, bool) {
	c, ok := d.containers[containerID]
	return c, ok
}

// SeaAreasForStation returns the area IDs belonging to a station.
func (d *Directory) SeaAreasForStation(station Station) []string {
	return append([]string(nil), station.Areas...)
}

func (d *Directory) activeContainers(ids []string) []Container {
	out := make([]Container, 0, len(ids))
	for _, id := range ids {
		c := d.containers[id]
		if c.Active {
			out = append(out, c)
		}
	}
	return out
}
