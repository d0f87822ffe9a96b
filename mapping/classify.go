package mapping

import (
	"fmt"

	osm "github.com/omniscale/go-osm"
)

type Role int

const (
	Building Role = iota
	BuildingPart
	LinearFeature
	Barrier
	Natural
	Landuse
	Amenity
)

var roleNames = [...]string{
	Building:      "building",
	BuildingPart:  "building_part",
	LinearFeature: "linear",
	Barrier:       "barrier",
	Natural:       "natural",
	Landuse:       "landuse",
	Amenity:       "amenity",
}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("Role(%d)", int(r))
	}
	return roleNames[r]
}

// Toggles enable or disable feature categories.
type Toggles struct {
	Buildings bool `yaml:"buildings"`
	Naturals  bool `yaml:"naturals"`
	Highways  bool `yaml:"highways"`
	Barriers  bool `yaml:"barriers"`
	Landuse   bool `yaml:"landuse"`
}

// DefaultToggles enables everything but highways.
func DefaultToggles() Toggles {
	return Toggles{
		Buildings: true,
		Naturals:  true,
		Highways:  false,
		Barriers:  true,
		Landuse:   true,
	}
}

// LinearKeys are the keys of line features, in order of precedence.
var LinearKeys = []string{
	"highway",
	"cycleway",
	"bicycle",
	"aerialway",
	"aeroway",
	"busway",
	"railway",
	"waterway",
}

// LinearKey returns the first of LinearKeys present in tags.
func LinearKey(tags osm.Tags) (string, bool) {
	for _, k := range LinearKeys {
		if has(tags, k) {
			return k, true
		}
	}
	return "", false
}

// LanduseValue returns the landuse value, or the leisure value for
// leisure areas.
func LanduseValue(tags osm.Tags) string {
	if v := tags["landuse"]; v != "" {
		return v
	}
	return tags["leisure"]
}

type roleSet uint8

func (s roleSet) has(r Role) bool { return s&(1<<uint(r)) != 0 }

func (s *roleSet) add(r Role) { *s |= 1 << uint(r) }

type rule struct {
	role    Role
	enabled func(Toggles) bool
	match   func(tags osm.Tags, resolved roleSet) bool
}

func buildings(t Toggles) bool { return t.Buildings }
func highways(t Toggles) bool  { return t.Highways }
func barriers(t Toggles) bool  { return t.Barriers }
func naturals(t Toggles) bool  { return t.Naturals }
func landuse(t Toggles) bool   { return t.Landuse }

// rules are evaluated in this order. match sees the roles resolved by the
// rules before it.
var rules = []rule{
	{Building, buildings, func(tags osm.Tags, _ roleSet) bool {
		return has(tags, "building")
	}},
	{BuildingPart, buildings, func(tags osm.Tags, _ roleSet) bool {
		return has(tags, "building:part")
	}},
	{Amenity, buildings, func(tags osm.Tags, resolved roleSet) bool {
		return resolved == 0 && has(tags, "amenity")
	}},
	{LinearFeature, highways, func(tags osm.Tags, _ roleSet) bool {
		_, ok := LinearKey(tags)
		return ok
	}},
	{Barrier, barriers, func(tags osm.Tags, _ roleSet) bool {
		return has(tags, "barrier")
	}},
	{Natural, naturals, func(tags osm.Tags, _ roleSet) bool {
		return has(tags, "natural")
	}},
	{Landuse, landuse, func(tags osm.Tags, resolved roleSet) bool {
		if has(tags, "landuse") {
			return true
		}
		return has(tags, "leisure") && !resolved.has(Building) && !resolved.has(BuildingPart)
	}},
	// linear man_made structures, only if nothing else matched
	{LinearFeature, highways, func(tags osm.Tags, resolved roleSet) bool {
		return resolved == 0 && has(tags, "man_made")
	}},
}

// Classify returns the roles of a way with tags, in evaluation order.
// A role is returned at most once.
func Classify(tags osm.Tags, toggles Toggles) []Role {
	var resolved roleSet
	var roles []Role
	for _, r := range rules {
		if !r.enabled(toggles) || resolved.has(r.role) {
			continue
		}
		if r.match(tags, resolved) {
			resolved.add(r.role)
			roles = append(roles, r.role)
		}
	}
	return roles
}

// has treats empty values like missing tags.
func has(tags osm.Tags, key string) bool {
	return tags[key] != ""
}
