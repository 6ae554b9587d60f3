package facet

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/verte-zerg/leetboard/internal/model"
)

// MissingFieldError reports a whitelisted field absent from a record.
type MissingFieldError struct {
	Identity int64
	Name     string
	Facet    string
	Field    string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("player %d (%s): facet %s: missing field %s", e.Identity, e.Name, e.Facet, e.Field)
}

// Row is one projected record. Values follow the facet's column order.
type Row struct {
	Identity    int64
	DisplayName string
	Values      []float64
}

// View is a facet table derived from a record collection.
type View struct {
	Facet    Facet
	Rows     []Row
	Failures []*MissingFieldError
}

// ProjectRecord extracts the facet's columns from rec, failing on the first
// missing field.
func ProjectRecord(f Facet, rec model.PlayerRecord) (Row, error) {
	row, missing := projectRecord(f, rec)
	if missing != nil {
		return Row{}, missing
	}
	return row, nil
}

func projectRecord(f Facet, rec model.PlayerRecord) (Row, *MissingFieldError) {
	values := make([]float64, len(f.Columns))
	for i, col := range f.Columns {
		block := rec.Rating
		if col.Source == Stats {
			block = rec.Stats
		}
		var sum float64
		for _, field := range col.Fields {
			v, ok := block.Lookup(field)
			if !ok {
				return Row{}, &MissingFieldError{
					Identity: rec.Identity,
					Name:     rec.DisplayName,
					Facet:    f.Key,
					Field:    col.Source.String() + "." + field,
				}
			}
			sum += v
		}
		value := sum
		if len(col.Fields) > 1 {
			value = sum / float64(len(col.Fields))
		}
		if col.Scale != 0 {
			value *= col.Scale
		}
		values[i] = value
	}
	return Row{Identity: rec.Identity, DisplayName: rec.DisplayName, Values: values}, nil
}

// Project builds one row per complete record in input order. Incomplete
// records are left out and listed in View.Failures.
func Project(f Facet, recs []model.PlayerRecord) View {
	view := View{Facet: f, Rows: make([]Row, 0, len(recs))}
	for _, rec := range recs {
		row, missing := projectRecord(f, rec)
		if missing != nil {
			view.Failures = append(view.Failures, missing)
			continue
		}
		view.Rows = append(view.Rows, row)
	}
	return view
}

// Overall projects ratings, opening success and the composite Leetify rating.
func Overall(recs []model.PlayerRecord) View { return Project(overallFacet, recs) }

// Aim projects accuracy, preaim and reaction metrics.
func Aim(recs []model.PlayerRecord) View { return Project(aimFacet, recs) }

// Duel projects opening duel metrics per side.
func Duel(recs []model.PlayerRecord) View { return Project(duelFacet, recs) }

// Trade projects trade kill and traded death metrics.
func Trade(recs []model.PlayerRecord) View { return Project(tradeFacet, recs) }

// Flash projects flashbang metrics.
func Flash(recs []model.PlayerRecord) View { return Project(flashFacet, recs) }

// Explosive projects HE grenade metrics.
func Explosive(recs []model.PlayerRecord) View { return Project(explosiveFacet, recs) }

// Select keeps rows whose display name is in names. Empty names keeps all.
func (v View) Select(names []string) View {
	if len(names) == 0 {
		return v
	}
	out := v
	out.Rows = lo.Filter(v.Rows, func(r Row, _ int) bool {
		return lo.Contains(names, r.DisplayName)
	})
	return out
}

// Names returns display names in row order.
func (v View) Names() []string {
	return lo.Map(v.Rows, func(r Row, _ int) string { return r.DisplayName })
}

// Column returns the values of the named column in row order, or nil when
// the facet has no such column.
func (v View) Column(name string) []float64 {
	idx := v.Facet.ColumnIndex(name)
	if idx < 0 {
		return nil
	}
	return lo.Map(v.Rows, func(r Row, _ int) float64 { return r.Values[idx] })
}
