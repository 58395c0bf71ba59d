// internal/imagery/imagery.go
//
// Adapter contract for the external imagery acquisition service. The
// service composites cloud-filtered Sentinel-2 passes over a time window
// and evaluates band expressions over a boundary; this package only speaks
// its HTTP API and never touches pixels itself.
package imagery

import (
	"context"
	"errors"
	"time"

	"github.com/ricelink/ricelink-backend/internal/geo"
)

// Band expressions evaluated server-side by the provider. Bands follow the
// Sentinel-2 naming: B4 red, B8 near-infrared, B11 shortwave-infrared.
const (
	ExprNDVI = "(B8 - B4) / (B8 + B4)"   // vegetation index
	ExprNDBI = "(B11 - B8) / (B11 + B8)" // built-up index
)

// ErrNoImagery is returned when zero source images qualify for the window
// after cloud filtering.
var ErrNoImagery = errors.New("no qualifying imagery for the requested window")

type DateRange struct {
	Start time.Time
	End   time.Time
}

// Composite is a single representative reflectance image derived from the
// qualifying passes of a window.
type Composite interface {
	// MeanIndex evaluates the band expression over all unmasked pixels
	// inside the boundary at the given scale (meters per pixel) and
	// returns their mean. A nil value means the boundary was too small or
	// fully masked.
	MeanIndex(ctx context.Context, expression string, boundary geo.Polygon, scale int) (*float64, error)

	// CloudFraction is the residual cloud statistic of the composite.
	CloudFraction() float64

	// VisualizationURL is an optional browse-image reference ("" if the
	// provider produced none).
	VisualizationURL() string
}

// Provider acquires composites. Implementations must return ErrNoImagery
// when the window has no qualifying source images; any other failure is a
// service fault.
type Provider interface {
	GetComposite(ctx context.Context, boundary geo.Polygon, window DateRange, cloudThreshold float64) (Composite, error)
}
