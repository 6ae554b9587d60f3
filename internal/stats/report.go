package stats

import (
	"fmt"

	"github.com/verte-zerg/leetboard/internal/facet"
	"github.com/verte-zerg/leetboard/internal/model"
	"github.com/verte-zerg/leetboard/internal/snapshot"
)

// Loader reads every stored record.
type Loader interface {
	LoadAll() (snapshot.LoadResult, error)
}

// Report contains precomputed facet views for rendering.
type Report struct {
	Records      []model.PlayerRecord
	LoadFailures []*snapshot.LoadError
	Views        []facet.View
}

// BuildReport loads the stored records and projects every requested facet.
// Unreadable files and incomplete records are reported through Warnings.
func BuildReport(loader Loader, facets []facet.Facet) (Report, error) {
	res, err := loader.LoadAll()
	if err != nil {
		return Report{}, fmt.Errorf("failed to load records: %w", err)
	}
	views := make([]facet.View, 0, len(facets))
	for _, f := range facets {
		views = append(views, facet.Project(f, res.Records))
	}
	return Report{
		Records:      res.Records,
		LoadFailures: res.Failures,
		Views:        views,
	}, nil
}

// View returns the view for the facet key.
func (r Report) View(key string) (facet.View, bool) {
	for _, v := range r.Views {
		if v.Facet.Key == key {
			return v, true
		}
	}
	return facet.View{}, false
}

// Select narrows every view to the given display names. Empty names keeps all.
func (r Report) Select(names []string) Report {
	out := r
	out.Views = make([]facet.View, len(r.Views))
	for i, v := range r.Views {
		out.Views[i] = v.Select(names)
	}
	return out
}

// Warnings lists load and projection failures as user-visible messages.
func (r Report) Warnings() []string {
	var out []string
	for _, f := range r.LoadFailures {
		out = append(out, f.Error())
	}
	for _, v := range r.Views {
		for _, f := range v.Failures {
			out = append(out, f.Error())
		}
	}
	return out
}
