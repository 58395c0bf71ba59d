// internal/imagery/stub.go
package imagery

import (
	"context"

	"github.com/ricelink/ricelink-backend/internal/geo"
)

// StubProvider serves canned index means without a network. Used by service
// tests and local development without a processor deployment.
type StubProvider struct {
	NDVI          *float64
	NDBI          *float64
	Cloud         float64
	Visualization string
	Err           error
}

func (s *StubProvider) GetComposite(ctx context.Context, boundary geo.Polygon, window DateRange, cloudThreshold float64) (Composite, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return stubComposite{provider: s}, nil
}

type stubComposite struct {
	provider *StubProvider
}

func (c stubComposite) MeanIndex(ctx context.Context, expression string, boundary geo.Polygon, scale int) (*float64, error) {
	if expression == ExprNDVI {
		return c.provider.NDVI, nil
	}
	return c.provider.NDBI, nil
}

func (c stubComposite) CloudFraction() float64 { return c.provider.Cloud }

func (c stubComposite) VisualizationURL() string { return c.provider.Visualization }

// Float is a convenience for building stub index values.
func Float(v float64) *float64 { return &v }
