package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/greenside/internal/core/domain"
)

// layoutBuilder collects greens and tees keyed by hole number and emits holes
// in the order their first feature appeared.
type layoutBuilder struct {
	order []int
	holes map[int]*domain.Hole
	green map[int]bool
}

func newLayoutBuilder() *layoutBuilder {
	return &layoutBuilder{holes: map[int]*domain.Hole{}, green: map[int]bool{}}
}

func (b *layoutBuilder) hole(n int) *domain.Hole {
	h, ok := b.holes[n]
	if !ok {
		h = &domain.Hole{Number: n, TeeBoxes: []domain.TeeBox{}}
		b.holes[n] = h
		b.order = append(b.order, n)
	}
	return h
}

func (b *layoutBuilder) addGreen(n int, at domain.GeoPoint, par, handicap *int) error {
	if b.green[n] {
		return fmt.Errorf("hole %d: duplicate green", n)
	}
	h := b.hole(n)
	h.GreenCenter = at
	h.Par = par
	h.Handicap = handicap
	b.green[n] = true
	return nil
}

func (b *layoutBuilder) addTee(n int, tee domain.TeeBox) {
	h := b.hole(n)
	h.TeeBoxes = append(h.TeeBoxes, tee)
}

func (b *layoutBuilder) build() ([]domain.Hole, error) {
	out := make([]domain.Hole, 0, len(b.order))
	for _, n := range b.order {
		if !b.green[n] {
			return nil, fmt.Errorf("hole %d: tee boxes without a green", n)
		}
		out = append(out, *b.holes[n])
	}
	return out, nil
}

// ParseGeoJSONLayout reads a FeatureCollection of Point features. Each
// feature needs "hole" and "kind" ("green" or "tee") properties; greens may
// carry "par" and "handicap", tees "name" and "color".
func ParseGeoJSONLayout(data []byte) ([]domain.Hole, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	b := newLayoutBuilder()
	for i, f := range fc.Features {
		p, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: want Point, got %s", i, f.Geometry.GeoJSONType())
		}
		at := domain.GeoPoint{Lat: p.Lat(), Lon: p.Lon()}
		if err := checkRange(at); err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}

		num, ok := f.Properties["hole"].(float64)
		if !ok {
			return nil, fmt.Errorf("feature %d: missing hole number", i)
		}
		n := int(num)

		switch kind := f.Properties.MustString("kind", ""); kind {
		case "green":
			if err := b.addGreen(n, at, optInt(f.Properties, "par"), optInt(f.Properties, "handicap")); err != nil {
				return nil, err
			}
		case "tee":
			b.addTee(n, domain.TeeBox{
				Location: at,
				Name:     f.Properties.MustString("name", ""),
				Color:    f.Properties.MustString("color", ""),
			})
		default:
			return nil, fmt.Errorf("feature %d: unknown kind %q", i, kind)
		}
	}
	return b.build()
}

// ParseCSVLayout reads rows of hole,kind,lat,lon[,par,handicap,name,color]
// with a header line. Columns may appear in any order.
func ParseCSVLayout(r io.Reader) ([]domain.Hole, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := indexColumns(header)
	for _, req := range []string{"hole", "kind", "lat", "lon"} {
		if _, ok := cols[req]; !ok {
			return nil, fmt.Errorf("missing column %q", req)
		}
	}

	b := newLayoutBuilder()
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		n, err := strconv.Atoi(getField(record, cols, "hole"))
		if err != nil {
			return nil, fmt.Errorf("line %d: hole: %w", line, err)
		}
		lat, err := strconv.ParseFloat(getField(record, cols, "lat"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lat: %w", line, err)
		}
		lon, err := strconv.ParseFloat(getField(record, cols, "lon"), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: lon: %w", line, err)
		}
		at := domain.GeoPoint{Lat: lat, Lon: lon}
		if err := checkRange(at); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		switch kind := getField(record, cols, "kind"); kind {
		case "green":
			if err := b.addGreen(n, at, csvInt(record, cols, "par"), csvInt(record, cols, "handicap")); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		case "tee":
			b.addTee(n, domain.TeeBox{
				Location: at,
				Name:     getField(record, cols, "name"),
				Color:    getField(record, cols, "color"),
			})
		default:
			return nil, fmt.Errorf("line %d: unknown kind %q", line, kind)
		}
	}
	return b.build()
}

func checkRange(p domain.GeoPoint) error {
	if p.Lat < -90 || p.Lat > 90 || p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("coordinate (%g, %g) out of range", p.Lat, p.Lon)
	}
	return nil
}

func optInt(props geojson.Properties, key string) *int {
	v, ok := props[key].(float64)
	if !ok {
		return nil
	}
	n := int(v)
	return &n
}

func csvInt(record []string, cols map[string]int, name string) *int {
	n, err := strconv.Atoi(getField(record, cols, name))
	if err != nil {
		return nil
	}
	return &n
}

func indexColumns(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		// Strip BOM and whitespace
		h = strings.TrimSpace(strings.TrimPrefix(h, "\xef\xbb\xbf"))
		m[strings.ToLower(h)] = i
	}
	return m
}

func getField(record []string, cols map[string]int, name string) string {
	if idx, ok := cols[name]; ok && idx < len(record) {
		return strings.TrimSpace(record[idx])
	}
	return ""
}
