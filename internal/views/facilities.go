package views

import (
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/gridhall/ghatz/internal/calc"
	"github.com/gridhall/ghatz/internal/ingest"
	"github.com/gridhall/ghatz/internal/models"
	"github.com/gridhall/ghatz/internal/table"
)

type FacilitiesView struct {
	Total       int               `json:"total"`
	ByCondition []calc.ValueCount `json:"by_condition"`
	ByLocation  []calc.ValueCount `json:"by_location"`
	MapPoints   []MapPoint        `json:"map_points"`
}

// MapPoint is a facility with both coordinates. Facilities without them are
// counted but not mapped.
type MapPoint struct {
	Name      string  `json:"name"`
	Location  string  `json:"location"`
	Condition string  `json:"condition"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func Facilities(t *table.Table) *FacilitiesView {
	fs := ingest.Facilities(t)
	return &FacilitiesView{
		Total:       len(fs),
		ByCondition: calc.ValueCounts(lo.Map(fs, func(f models.Facility, _ int) string { return f.Condition })),
		ByLocation:  calc.ValueCounts(lo.Map(fs, func(f models.Facility, _ int) string { return f.Location })),
		MapPoints: lo.FilterMap(fs, func(f models.Facility, _ int) (MapPoint, bool) {
			return MapPoint{
				Name:      f.Name,
				Location:  f.Location,
				Condition: f.Condition,
				Latitude:  f.Latitude.Float64,
				Longitude: f.Longitude.Float64,
			}, f.HasCoordinates()
		}),
	}
}

// GalleryState is the caller-owned position in a facility image gallery. It
// is passed into Gallery and the updated state is returned.
type GalleryState struct {
	SessionID string `json:"session_id"`
	Index     int    `json:"index"`
}

type GalleryImage struct {
	Image    string `json:"image"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type GalleryView struct {
	State   GalleryState  `json:"state"`
	Total   int           `json:"total"`
	Current *GalleryImage `json:"current,omitempty"`
}

// Gallery moves the state by step images, wrapping at either end, and
// returns the image now shown. A state without a session id gets a new one.
func Gallery(t *table.Table, state GalleryState, step int) GalleryView {
	images := lo.FilterMap(ingest.Facilities(t), func(f models.Facility, _ int) (GalleryImage, bool) {
		return GalleryImage{Image: f.Image.String, Name: f.Name, Location: f.Location}, f.Image.Valid
	})
	if state.SessionID == "" {
		state.SessionID = uuid.NewString()
	}
	v := GalleryView{Total: len(images)}
	if len(images) == 0 {
		state.Index = 0
		v.State = state
		return v
	}
	n := len(images)
	state.Index = ((state.Index+step)%n + n) % n
	v.State = state
	v.Current = &images[state.Index]
	return v
}
