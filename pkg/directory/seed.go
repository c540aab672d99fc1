package directory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedDocument is the on-disk YAML shape for infrastructure topology: the
// fixed physical plant a simulation run is executed against.
type SeedDocument struct {
	Geographies []string `yaml:"geographies"`
	Stations    []struct {
		ID        string `yaml:"id"`
		Geography string `yaml:"geography"`
		Index     int    `yaml:"index"`
		Halls     []struct {
			ID        string `yaml:"id"`
			Name      string `yaml:"name"`
			StageRole string `yaml:"stage_role"`
			Tanks     int    `yaml:"tanks"`
			TankKg    float64 `yaml:"tank_max_biomass_kg"`
			TankM3    float64 `yaml:"tank_volume_m3"`
		} `yaml:"halls"`
		Areas []struct {
			ID       string  `yaml:"id"`
			Name     string  `yaml:"name"`
			Rings    int     `yaml:"rings"`
			RingKg   float64 `yaml:"ring_max_biomass_kg"`
			RingM3   float64 `yaml:"ring_volume_m3"`
		} `yaml:"areas"`
	} `yaml:"stations"`
}

// LoadSeedFile reads and parses a SeedDocument from a YAML file.
func LoadSeedFile(path string) (*SeedDocument, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var doc SeedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &doc, nil
}

// BuildFromSeed materializes a Directory from a parsed SeedDocument,
// synthesizing per-hall/per-area container IDs.
func BuildFromSeed(doc *SeedDocument) *Directory {
	d := New()
	for _, g := range doc.Geographies {
		d.AddGeography(g)
	}
	for _, st := range doc.Stations {
		d.AddStation(Station{ID: st.ID, Geography: st.Geography, Index: st.Index})
		for _, h := range st.Halls {
			d.AddHall(Hall{ID: h.ID, StationID: st.ID, Name: h.Name, StageRole: h.StageRole})
			for i := 0; i < h.Tanks; i++ {
				cid := fmt.Sprintf("%s-tank-%02d", h.ID, i+1)
				d.AddContainer(Container{
					ID:           cid,
					Name:         cid,
					Type:         ContainerType{Name: "tank", VolumeM3: h.TankM3},
					HallID:       h.ID,
					MaxBiomassKg: h.TankKg,
					VolumeM3:     h.TankM3,
					Active:       true,
				})
			}
		}
		for _, a := range st.Areas {
			d.AddArea(Area{ID: a.ID, StationID: st.ID, Name: a.Name})
			for i := 0; i < a.Rings; i++ {
				cid := fmt.Sprintf("%s-ring-%02d", a.ID, i+1)
				d.AddContainer(Container{
					ID:           cid,
					Name:         cid,
					Type:         ContainerType{Name: "sea_ring", VolumeM3: a.RingM3},
					AreaID:       a.ID,
					MaxBiomassKg: a.RingKg,
					VolumeM3:     a.RingM3,
					Active:       true,
				})
			}
		}
	}
	return d
}

// DefaultSeed returns the Faroe Islands + Scotland topology described in
// the spec's concurrency analysis (≥14 + 10 freshwater stations), used when
// no seed file is supplied.
func DefaultSeed() *SeedDocument {
	doc := &SeedDocument{Geographies: []string{"Faroe Islands", "Scotland"}}
	addStations(doc, "Faroe Islands", 14)
	addStations(doc, "Scotland", 10)
	return doc
}

func addStations(doc *SeedDocument, geography string, count int) {
	for i := 0; i < count; i++ {
		st := struct {
			ID        string `yaml:"id"`
			Geography string `yaml:"geography"`
			Index     int    `yaml:"index"`
			Halls     []struct {
				ID        string  `yaml:"id"`
				Name      string  `yaml:"name"`
				StageRole string  `yaml:"stage_role"`
				Tanks     int     `yaml:"tanks"`
				TankKg    float64 `yaml:"tank_max_biomass_kg"`
				TankM3    float64 `yaml:"tank_volume_m3"`
			} `yaml:"halls"`
			Areas []struct {
				ID     string  `yaml:"id"`
				Name   string  `yaml:"name"`
				Rings  int     `yaml:"rings"`
				RingKg float64 `yaml:"ring_max_biomass_kg"`
				RingM3 float64 `yaml:"ring_volume_m3"`
			} `yaml:"areas"`
		}{
			ID:        fmt.Sprintf("%s-ST%02d", abbreviate(geography), i+1),
			Geography: geography,
			Index:     i,
		}
		for _, role := range []string{"A", "B", "C", "D", "E"} {
			st.Halls = append(st.Halls, struct {
				ID        string  `yaml:"id"`
				Name      string  `yaml:"name"`
				StageRole string  `yaml:"stage_role"`
				Tanks     int     `yaml:"tanks"`
				TankKg    float64 `yaml:"tank_max_biomass_kg"`
				TankM3    float64 `yaml:"tank_volume_m3"`
			}{
				ID:        fmt.Sprintf("%s-H%s", st.ID, role),
				Name:      fmt.Sprintf("Hall %s", role),
				StageRole: role,
				Tanks:     10,
				TankKg:    5000,
				TankM3:    200,
			})
		}
		st.Areas = append(st.Areas, struct {
			ID     string  `yaml:"id"`
			Name   string  `yaml:"name"`
			Rings  int     `yaml:"rings"`
			RingKg float64 `yaml:"ring_max_biomass_kg"`
			RingM3 float64 `yaml:"ring_volume_m3"`
		}{
			ID:     fmt.Sprintf("%s-SEA", st.ID),
			Name:   "Sea Area",
			Rings:  10,
			RingKg: 250000,
			RingM3: 20000,
		})
		doc.Stations = append(doc.Stations, st)
	}
}

func abbreviate(geography string) string {
	switch geography {
	case "Faroe Islands":
		return "FI"
	case "Scotland":
		return "SCT"
	default:
		return "XX"
	}
}
