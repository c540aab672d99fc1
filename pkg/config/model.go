package config

import (
	"github.com/aquamind/batchsim/pkg/biology"
	"github.com/aquamind/batchsim/pkg/directory"
)

// ModelSet bundles the three biology models a batch runs with, resolved
// for one species/geography/release_period key.
type ModelSet struct {
	TGC       biology.TGCModel
	FCR       biology.FCRModel
	Mortality biology.MortalityModel
}

// ModelRegistry resolves a ProfileKey to a ModelSet: the default profile
// overridden field-by-field by the first matching entry in Profiles, in
// the same "defaults then override" shape the reference loader uses for
// its queue/system config (resolve*Config functions), rather than a
// generic deep-merge library.
type ModelRegistry struct {
	defaultSet ModelSet
	overrides  []profileOverride
}

type profileOverride struct {
	key ProfileKey
	set ModelSet
}

// newModelRegistry builds a ModelRegistry from the parsed YAML models
// section, applying biology's illustrative defaults as the base and then
// layering the YAML default profile and every species/geography/release
// override on top.
func newModelRegistry(models ModelsYAML) ModelRegistry {
	base := ModelSet{
		TGC:       biology.TGCModel{DefaultPerThousand: 2.8},
		FCR:       biology.DefaultFCRModel(),
		Mortality: biology.DefaultMortalityModel(),
	}
	resolved := resolveModelSet(base, models.Default)

	reg := ModelRegistry{defaultSet: resolved}
	for _, p := range models.Profiles {
		reg.overrides = append(reg.overrides, profileOverride{
			key: ProfileKey{Species: p.Species, Geography: p.Geography, ReleasePeriod: p.ReleasePeriod},
			set: resolveModelSet(resolved, p),
		})
	}
	return reg
}

// resolveModelSet applies any non-zero fields of a YAML profile on top of
// a base ModelSet, leaving everything the profile leaves blank untouched.
func resolveModelSet(base ModelSet, profile ModelProfileYAML) ModelSet {
	out := base
	if profile.TGCPerThousand != nil {
		out.TGC.DefaultPerThousand = *profile.TGCPerThousand
	}
	if overrides := stageFloatMap(profile.FCR); overrides != nil {
		out.FCR.Stage = mergeStageMap(out.FCR.Stage, overrides)
	}
	if overrides := stageFloatMap(profile.MortalityDaily); overrides != nil {
		out.Mortality.DailyRate = mergeStageMap(out.Mortality.DailyRate, overrides)
	}
	return out
}

func mergeStageMap(base, overrides map[directory.LifecycleStage]float64) map[directory.LifecycleStage]float64 {
	out := make(map[directory.LifecycleStage]float64, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Resolve returns the ModelSet for the given key: the first override whose
// species/geography/release_period all match (empty fields in the override
// act as wildcards), falling back to the default profile.
func (r ModelRegistry) Resolve(key ProfileKey) ModelSet {
	for _, o := range r.overrides {
		if profileMatches(o.key, key) {
			return o.set
		}
	}
	return r.defaultSet
}

func profileMatches(pattern, key ProfileKey) bool {
	if pattern.Species != "" && pattern.Species != key.Species {
		return false
	}
	if pattern.Geography != "" && pattern.Geography != key.Geography {
		return false
	}
	if pattern.ReleasePeriod != "" && pattern.ReleasePeriod != key.ReleasePeriod {
		return false
	}
	return true
}
