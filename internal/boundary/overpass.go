package boundary

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/serjvanilla/go-overpass"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/geochange/landchange/internal/contract"
	"github.com/geochange/landchange/schema"
)

// CountyAdminLevel is the OSM admin_level of first-order subdivisions (Kenyan counties).
const CountyAdminLevel = "4"

// OverpassSource builds the region polygon from an OSM administrative relation.
type OverpassSource struct {
	client   *overpass.Client
	endpoint string
	name     string
}

var _ contract.BoundaryResolver = &OverpassSource{} // Compile-time check

// NewOverpassSource creates a resolver querying endpoint for the relation called name.
func NewOverpassSource(endpoint, name string, httpClient *http.Client) *OverpassSource {
	client := overpass.NewWithSettings(endpoint, 2, httpClient)
	return &OverpassSource{client: &client, endpoint: endpoint, name: name}
}

func (s *OverpassSource) query() string {
	return fmt.Sprintf(`
		[out:json][timeout:120];
		relation["boundary"="administrative"]["admin_level"="%s"]["name"~"^%s$",i];
		out body;
		>;
		out skel qt;
	`, CountyAdminLevel, s.name)
}

// Resolve queries Overpass and assembles the outer ways of the relation into polygons.
func (s *OverpassSource) Resolve(ctx context.Context) (schema.Region, error) {
	type outcome struct {
		result overpass.Result
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := s.client.Query(s.query())
		done <- outcome{res, err}
	}()

	var res overpass.Result
	select {
	case <-ctx.Done():
		return schema.Region{}, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return schema.Region{}, fmt.Errorf("overpass query failed: %w", out.err)
		}
		res = out.result
	}

	rel := pickRelation(res.Relations, s.name)
	if rel == nil {
		return schema.Region{}, fmt.Errorf("no administrative boundary named %q at admin_level %s", s.name, CountyAdminLevel)
	}
	mp, err := assembleOuterRings(rel)
	if err != nil {
		return schema.Region{}, fmt.Errorf("boundary %q: %w", s.name, err)
	}
	data, err := geojson.Marshal(mp)
	if err != nil {
		return schema.Region{}, fmt.Errorf("failed to encode boundary %q: %w", s.name, err)
	}
	return schema.NewRegion(s.name, s.endpoint, schema.Geometry(string(data)), mp.Bounds()), nil
}

// pickRelation returns the relation whose name matches, lowest ID first.
func pickRelation(relations map[int64]*overpass.Relation, name string) *overpass.Relation {
	ids := make([]int64, 0, len(relations))
	for id := range relations {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		rel := relations[id]
		if strings.EqualFold(rel.Tags["name"], name) {
			return rel
		}
	}
	return nil
}

// assembleOuterRings chains the outer member ways of rel into closed rings.
// Inner rings are ignored.
func assembleOuterRings(rel *overpass.Relation) (*geom.MultiPolygon, error) {
	var segments [][]*overpass.Node
	for _, m := range rel.Members {
		if m.Way == nil || (m.Role != "outer" && m.Role != "") {
			continue
		}
		if len(m.Way.Nodes) < 2 {
			continue
		}
		segments = append(segments, m.Way.Nodes)
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("relation %d has no outer ways", rel.ID)
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for len(segments) > 0 {
		ring := append([]*overpass.Node(nil), segments[0]...)
		segments = segments[1:]
		for ring[0].ID != ring[len(ring)-1].ID {
			next := -1
			tail := ring[len(ring)-1].ID
			for i, seg := range segments {
				switch {
				case seg[0].ID == tail:
					ring = append(ring, seg[1:]...)
					next = i
				case seg[len(seg)-1].ID == tail:
					for j := len(seg) - 2; j >= 0; j-- {
						ring = append(ring, seg[j])
					}
					next = i
				}
				if next >= 0 {
					break
				}
			}
			if next < 0 {
				return nil, fmt.Errorf("relation %d has an unclosed outer ring", rel.ID)
			}
			segments = append(segments[:next], segments[next+1:]...)
		}
		if len(ring) < 4 {
			return nil, fmt.Errorf("relation %d has a degenerate outer ring", rel.ID)
		}
		coords := make([]geom.Coord, len(ring))
		for i, n := range ring {
			coords[i] = geom.Coord{n.Lon, n.Lat}
		}
		poly, err := geom.NewPolygon(geom.XY).SetCoords([][]geom.Coord{coords})
		if err != nil {
			return nil, err
		}
		if err := mp.Push(poly); err != nil {
			return nil, err
		}
	}
	return mp, nil
}
