package roster

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/calloutsim/core/model"
)

// minZoneUnits is the coverage floor of a zone with patrol demand.
const minZoneUnits = 0.5

// OptimumUnits returns the number of units of kind needed during p. Each zone
// contributes max(0.5, calls/CallsPerUnitPerShift) adjusted by one unit for
// very small and very large zones. Traffic units only count traffic calls and
// leave the remainder to patrol.
func OptimumUnits(zones []*model.Zone, p model.TimePeriod, kind model.UnitKind, level StaffLevel, cfg Config) int {
	cfg.SetDefaults()
	if kind == model.KindTraffic && !cfg.TrafficUnits {
		return 0
	}
	perZone := make([]float64, 0, len(zones))
	for _, z := range zones {
		calls := float64(z.GetAverageCalls(p))
		if cfg.TrafficUnits {
			share := z.TrafficShare(p)
			if kind == model.KindTraffic {
				calls *= share
			} else {
				calls *= 1 - share
			}
		}
		if kind == model.KindTraffic && calls == 0 {
			continue
		}
		n := math.Max(minZoneUnits, calls/cfg.CallsPerUnitPerShift)
		switch z.Size {
		case model.SizeVerySmall:
			n--
		case model.SizeVeryLarge:
			n++
		}
		perZone = append(perZone, math.Max(0, n))
	}
	total := floats.Sum(perZone) * level.Multiplier()
	return int(math.Ceil(total - 1e-9))
}

// OptimumTable returns OptimumUnits for every period.
func OptimumTable(zones []*model.Zone, kind model.UnitKind, level StaffLevel, cfg Config) map[model.TimePeriod]int {
	res := make(map[model.TimePeriod]int, len(model.TimePeriods))
	for _, p := range model.TimePeriods {
		res[p] = OptimumUnits(zones, p, kind, level, cfg)
	}
	return res
}
