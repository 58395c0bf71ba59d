// internal/geo/geometry.go
package geo

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

// Point is a geographic coordinate in WGS84 degrees.
type Point struct {
	Lon float64
	Lat float64
}

// Polygon is a closed exterior ring of geographic coordinates
// (first vertex == last vertex). Holes are not supported; a submitted
// GeoJSON polygon contributes only its exterior ring.
type Polygon []Point

var (
	ErrEmptyGeometry   = errors.New("geometry is empty")
	ErrInvalidGeometry = errors.New("geometry is not a valid polygon")
)

// ParsePolygon decodes a GeoJSON Polygon geometry and returns its exterior
// ring, closed. Open rings are closed automatically.
func ParsePolygon(raw json.RawMessage) (Polygon, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyGeometry
	}

	var g struct {
		Type        string        `json:"type"`
		Coordinates [][][]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}
	if g.Type != "Polygon" {
		return nil, fmt.Errorf("%w: unsupported geometry type %q", ErrInvalidGeometry, g.Type)
	}
	if len(g.Coordinates) == 0 || len(g.Coordinates[0]) == 0 {
		return nil, ErrEmptyGeometry
	}

	ring := make(Polygon, 0, len(g.Coordinates[0])+1)
	for _, c := range g.Coordinates[0] {
		if len(c) < 2 {
			return nil, fmt.Errorf("%w: coordinate with %d components", ErrInvalidGeometry, len(c))
		}
		ring = append(ring, Point{Lon: c[0], Lat: c[1]})
	}

	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	if len(ring) < 4 {
		return nil, fmt.Errorf("%w: ring has %d vertices", ErrInvalidGeometry, len(ring)-1)
	}
	return ring, nil
}

// Centroid returns the area-weighted centroid of the ring. Degenerate
// (zero-area) rings fall back to the vertex mean.
func (p Polygon) Centroid() Point {
	var twiceArea, cx, cy float64
	for i := 0; i < len(p)-1; i++ {
		cross := p[i].Lon*p[i+1].Lat - p[i+1].Lon*p[i].Lat
		twiceArea += cross
		cx += (p[i].Lon + p[i+1].Lon) * cross
		cy += (p[i].Lat + p[i+1].Lat) * cross
	}

	if math.Abs(twiceArea) < 1e-12 {
		var sx, sy float64
		n := len(p) - 1
		if n == 0 {
			return Point{}
		}
		for i := 0; i < n; i++ {
			sx += p[i].Lon
			sy += p[i].Lat
		}
		return Point{Lon: sx / float64(n), Lat: sy / float64(n)}
	}

	return Point{Lon: cx / (3 * twiceArea), Lat: cy / (3 * twiceArea)}
}

// AreaSquareMeters reprojects the ring into UTM zone 47N (the planar
// projection covering the Phayao deployment region) and applies the
// shoelace formula.
func (p Polygon) AreaSquareMeters() float64 {
	if len(p) < 4 {
		return 0
	}

	proj := make([][2]float64, len(p))
	for i, pt := range p {
		x, y := utm47N(pt.Lon, pt.Lat)
		proj[i] = [2]float64{x, y}
	}

	var sum float64
	for i := 0; i < len(proj)-1; i++ {
		sum += proj[i][0]*proj[i+1][1] - proj[i+1][0]*proj[i][1]
	}
	return math.Abs(sum) / 2
}

// WGS84 transverse Mercator, UTM zone 47N (central meridian 99°E).
func utm47N(lonDeg, latDeg float64) (easting, northing float64) {
	const (
		a     = 6378137.0
		f     = 1 / 298.257223563
		k0    = 0.9996
		lon0  = 99.0 * math.Pi / 180
		falsE = 500000.0
	)
	e2 := f * (2 - f)
	ep2 := e2 / (1 - e2)

	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180

	sinLat := math.Sin(lat)
	cosLat := math.Cos(lat)
	tanLat := math.Tan(lat)

	n := a / math.Sqrt(1-e2*sinLat*sinLat)
	t := tanLat * tanLat
	c := ep2 * cosLat * cosLat
	A := (lon - lon0) * cosLat

	m := a * ((1-e2/4-3*e2*e2/64-5*e2*e2*e2/256)*lat -
		(3*e2/8+3*e2*e2/32+45*e2*e2*e2/1024)*math.Sin(2*lat) +
		(15*e2*e2/256+45*e2*e2*e2/1024)*math.Sin(4*lat) -
		(35*e2*e2*e2/3072)*math.Sin(6*lat))

	easting = falsE + k0*n*(A+(1-t+c)*A*A*A/6+
		(5-18*t+t*t+72*c-58*ep2)*math.Pow(A, 5)/120)
	northing = k0 * (m + n*tanLat*(A*A/2+(5-t+9*c+4*c*c)*math.Pow(A, 4)/24+
		(61-58*t+t*t+600*c-330*ep2)*math.Pow(A, 6)/720))
	return easting, northing
}

// Bounds is a rectangular geofence in geographic degrees.
type Bounds struct {
	MinLon float64
	MinLat float64
	MaxLon float64
	MaxLat float64
}

func (b Bounds) Contains(pt Point) bool {
	return pt.Lon >= b.MinLon && pt.Lon <= b.MaxLon &&
		pt.Lat >= b.MinLat && pt.Lat <= b.MaxLat
}

// JSON / database serialization: polygons travel as GeoJSON geometry.

type geoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

func (p Polygon) MarshalJSON() ([]byte, error) {
	ring := make([][]float64, len(p))
	for i, pt := range p {
		ring[i] = []float64{pt.Lon, pt.Lat}
	}
	return json.Marshal(geoJSONPolygon{Type: "Polygon", Coordinates: [][][]float64{ring}})
}

func (p *Polygon) UnmarshalJSON(data []byte) error {
	ring, err := ParsePolygon(data)
	if err != nil {
		return err
	}
	*p = ring
	return nil
}

func (p Polygon) Value() (driver.Value, error) {
	if len(p) == 0 {
		return nil, nil
	}
	return p.MarshalJSON()
}

func (p *Polygon) Scan(value interface{}) error {
	if value == nil {
		*p = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return p.UnmarshalJSON(v)
	case string:
		return p.UnmarshalJSON([]byte(v))
	}
	return fmt.Errorf("unsupported polygon column type %T", value)
}
