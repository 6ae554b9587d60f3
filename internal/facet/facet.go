// Package facet projects player records into fixed per-facet tables.
package facet

import (
	"fmt"
	"sort"
)

// OpeningKillScale rescales the opening rating into the display range used
// by the overall facet. The factor is kept exactly as the dashboards have
// always shown it.
const OpeningKillScale = 1000

// Source selects which metric block a column reads.
type Source int

// Metric blocks of a player record.
const (
	Rating Source = iota
	Stats
)

func (s Source) String() string {
	switch s {
	case Rating:
		return "rating"
	case Stats:
		return "stats"
	default:
		return fmt.Sprintf("source(%d)", int(s))
	}
}

// Column is one projected value. With several fields the value is their
// mean. Scale of zero means no scaling.
type Column struct {
	Name   string
	Label  string
	Source Source
	Fields []string
	Scale  float64
}

// Facet is a fixed analytical subset of record fields.
type Facet struct {
	Key     string
	Title   string
	Columns []Column
	// Radar lists the columns compared side by side.
	Radar []string
	// Percent lists radar columns holding fractions shown as percentages.
	Percent []string
}

// ColumnNames returns column names in projection order.
func (f Facet) ColumnNames() []string {
	names := make([]string, len(f.Columns))
	for i, c := range f.Columns {
		names[i] = c.Name
	}
	return names
}

// ColumnIndex returns the position of the named column or -1.
func (f Facet) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// IsPercent reports whether the column is a fraction shown as a percentage.
func (f Facet) IsPercent(name string) bool {
	for _, p := range f.Percent {
		if p == name {
			return true
		}
	}
	return false
}

func statColumn(field, label string) Column {
	return Column{Name: field, Label: label, Source: Stats, Fields: []string{field}}
}

var (
	overallFacet = Facet{
		Key:   "overall",
		Title: "Leetify Rating",
		Columns: []Column{
			{Name: "Aim_Rating", Label: "Aim Rating", Source: Rating, Fields: []string{"aim"}},
			{Name: "Utility_Rating", Label: "Utility Rating", Source: Rating, Fields: []string{"utility"}},
			{Name: "Opening_Kill_Success", Label: "Opening Kill Success (x1000)", Source: Rating, Fields: []string{"opening"}, Scale: OpeningKillScale},
			{Name: "Clutch_Percentage", Label: "Clutch Percentage", Source: Rating, Fields: []string{"clutch"}},
			{Name: "Positioning_Rating", Label: "Positioning Rating", Source: Rating, Fields: []string{"positioning"}},
			{Name: "Leetify_Rating", Label: "Leetify Rating (ct + t) / 2", Source: Rating, Fields: []string{"ct_leetify", "t_leetify"}},
			{Name: "Headshot_Percentage", Label: "Headshot Percentage", Source: Stats, Fields: []string{"accuracy_head"}},
		},
		Radar:   []string{"Aim_Rating", "Utility_Rating", "Opening_Kill_Success", "Clutch_Percentage", "Positioning_Rating"},
		Percent: []string{"Clutch_Percentage"},
	}

	aimFacet = Facet{
		Key:   "aim",
		Title: "Aim",
		Columns: []Column{
			{Name: "Aim_Rating", Label: "Aim Rating", Source: Rating, Fields: []string{"aim"}},
			statColumn("accuracy_enemy_spotted", "Accuracy (enemy spotted)"),
			statColumn("accuracy_head", "Headshot Accuracy"),
			statColumn("counter_strafing_good_shots_ratio", "Counter-Strafing"),
			statColumn("preaim", "Preaim (degrees)"),
			statColumn("reaction_time_ms", "Reaction Time (ms)"),
			statColumn("spray_accuracy", "Spray Accuracy"),
		},
		Radar:   []string{"accuracy_enemy_spotted", "accuracy_head", "counter_strafing_good_shots_ratio", "spray_accuracy"},
		Percent: []string{"accuracy_enemy_spotted", "accuracy_head", "counter_strafing_good_shots_ratio", "spray_accuracy"},
	}

	duelFacet = Facet{
		Key:   "duel",
		Title: "Duels",
		Columns: []Column{
			statColumn("ct_opening_aggression_success_rate", "CT Opening Aggression Success"),
			statColumn("ct_opening_duel_success_percentage", "CT Opening Duel Success"),
			statColumn("t_opening_aggression_success_rate", "T Opening Aggression Success"),
			statColumn("t_opening_duel_success_percentage", "T Opening Duel Success"),
		},
		Radar: []string{
			"ct_opening_aggression_success_rate",
			"ct_opening_duel_success_percentage",
			"t_opening_aggression_success_rate",
			"t_opening_duel_success_percentage",
		},
	}

	tradeFacet = Facet{
		Key:   "trade",
		Title: "Trades",
		Columns: []Column{
			statColumn("trade_kill_attempts_percentage", "Trade Kill Attempts"),
			statColumn("trade_kill_opportunities_per_round", "Trade Kill Opportunities / Round"),
			statColumn("trade_kills_success_percentage", "Trade Kill Success"),
			statColumn("traded_death_attempts_percentage", "Traded Death Attempts"),
			statColumn("traded_deaths_opportunities_per_round", "Traded Death Opportunities / Round"),
			statColumn("traded_deaths_success_percentage", "Traded Death Success"),
		},
		Radar: []string{
			"trade_kill_attempts_percentage",
			"trade_kills_success_percentage",
			"traded_death_attempts_percentage",
			"traded_deaths_success_percentage",
		},
	}

	flashFacet = Facet{
		Key:   "flash",
		Title: "Flashbangs",
		Columns: []Column{
			statColumn("flashbang_hit_foe_avg_duration", "Enemy Blind Duration (s)"),
			statColumn("flashbang_hit_foe_per_flashbang", "Enemies Flashed / Flash"),
			statColumn("flashbang_hit_friend_per_flashbang", "Teammates Flashed / Flash"),
			statColumn("flashbang_leading_to_kill", "Flashes Leading to Kill"),
			statColumn("flashbang_thrown", "Flashbangs Thrown"),
		},
		Radar: []string{
			"flashbang_hit_foe_avg_duration",
			"flashbang_hit_foe_per_flashbang",
			"flashbang_hit_friend_per_flashbang",
			"flashbang_leading_to_kill",
		},
	}

	explosiveFacet = Facet{
		Key:   "explosive",
		Title: "HE Grenades",
		Columns: []Column{
			statColumn("he_foes_damage_avg", "HE Damage to Enemies"),
			statColumn("he_friends_damage_avg", "HE Damage to Teammates"),
			statColumn("utility_on_death_avg", "Unused Utility on Death"),
		},
		Radar: []string{"he_foes_damage_avg", "he_friends_damage_avg", "utility_on_death_avg"},
	}

	allFacets = []Facet{overallFacet, aimFacet, duelFacet, tradeFacet, flashFacet, explosiveFacet}
)

// All returns every facet in display order.
func All() []Facet {
	out := make([]Facet, len(allFacets))
	copy(out, allFacets)
	return out
}

// Keys returns facet keys in display order.
func Keys() []string {
	keys := make([]string, len(allFacets))
	for i, f := range allFacets {
		keys[i] = f.Key
	}
	return keys
}

// Lookup returns the facet with the given key.
func Lookup(key string) (Facet, bool) {
	for _, f := range allFacets {
		if f.Key == key {
			return f, true
		}
	}
	return Facet{}, false
}

// Resolve maps keys to facets; an empty list selects every facet.
func Resolve(keys []string) ([]Facet, error) {
	if len(keys) == 0 {
		return All(), nil
	}
	out := make([]Facet, 0, len(keys))
	for _, key := range keys {
		f, ok := Lookup(key)
		if !ok {
			known := Keys()
			sort.Strings(known)
			return nil, fmt.Errorf("unknown facet %q (available: %v)", key, known)
		}
		out = append(out, f)
	}
	return out, nil
}
