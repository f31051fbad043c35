// Package causes holds the accident cause-code lookup used to exclude
// report categories from the export. Only the key set is operative; the
// labels are documentary.
package causes

import (
	"encoding/json"
	"fmt"
	"os"
)

// Set supports membership tests over cause code strings.
type Set interface {
	Contains(code string) bool
	Len() int
}

// Table maps a cause code to its descriptive label.
type Table map[string]string

func (t Table) Contains(code string) bool {
	_, ok := t[code]
	return ok
}

func (t Table) Len() int { return len(t) }

// Default is the built-in exclusion table: the T-series track-cause codes
// from the FRA accident cause code appendix.
var Default = Table{
	"T001": "Roadbed settled or soft",
	"T002": "Washout/rain/slide/flood/snow/ice damage to track",
	"T099": "Other roadbed defects",
	"T101": "Cross level of track irregular (at joints)",
	"T102": "Cross level of track irregular (not at joints)",
	"T103": "Deviation from uniform top of rail profile",
	"T104": "Disturbed ballast section",
	"T105": "Insufficient ballast section",
	"T106": "Superelevation improper, excessive, or insufficient",
	"T107": "Superelevation runoff improper",
	"T108": "Track alignment irregular (buckled/sunkink)",
	"T109": "Track alignment irregular (other than buckled/sunkink)",
	"T110": "Wide gage (due to defective or missing crossties)",
	"T111": "Wide gage (due to defective or missing spikes or other rail fasteners)",
	"T199": "Other track geometry defects",
	"T201": "Broken rail (bolt hole crack or break)",
	"T202": "Broken rail (base)",
	"T203": "Broken rail (detail fracture from shelling or head check)",
	"T204": "Broken rail (engine burn fracture)",
	"T205": "Defective or missing crossties",
	"T206": "Defective spikes or missing spikes or other rail fasteners",
	"T207": "Broken rail (head and web separation, outside joint bar limits)",
	"T208": "Broken rail (head and web separation, within joint bar limits)",
	"T210": "Broken rail (piped rail)",
	"T299": "Other rail and joint bar defects",
	"T301": "Switch damaged or out of adjustment",
	"T302": "Switch point worn or broken",
	"T399": "Frogs, switches, and track appliances (other)",
	"T401": "Track/train interaction (hunting)",
	"T499": "Other way and structure defects",
}

// LoadFile reads an externally supplied code table: a JSON object of
// code -> label.
func LoadFile(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read causes file: %w", err)
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("parse causes file %s: %w", path, err)
	}
	return t, nil
}
