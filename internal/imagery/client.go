// internal/imagery/client.go
package imagery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ricelink/ricelink-backend/internal/config"
	"github.com/ricelink/ricelink-backend/internal/geo"
)

// Client talks to the imagery processor service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg config.ImageryConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

type compositeRequest struct {
	Geometry       geo.Polygon `json:"geometry"`
	Start          string      `json:"start"`
	End            string      `json:"end"`
	CloudThreshold float64     `json:"cloud_threshold"`
}

type compositeResponse struct {
	ID               string  `json:"id"`
	SourceCount      int     `json:"source_count"`
	CloudFraction    float64 `json:"cloud_fraction"`
	VisualizationURL string  `json:"visualization_url"`
}

type statisticsRequest struct {
	Expression string      `json:"expression"`
	Geometry   geo.Polygon `json:"geometry"`
	Scale      int         `json:"scale"`
}

type statisticsResponse struct {
	Mean *float64 `json:"mean"`
}

func (c *Client) GetComposite(ctx context.Context, boundary geo.Polygon, window DateRange, cloudThreshold float64) (Composite, error) {
	in := compositeRequest{
		Geometry:       boundary,
		Start:          window.Start.Format("2006-01-02"),
		End:            window.End.Format("2006-01-02"),
		CloudThreshold: cloudThreshold,
	}

	var out compositeResponse
	if err := c.post(ctx, "/composites", in, &out); err != nil {
		return nil, err
	}

	if out.SourceCount == 0 {
		return nil, ErrNoImagery
	}

	logrus.WithFields(logrus.Fields{
		"composite_id":   out.ID,
		"source_count":   out.SourceCount,
		"cloud_fraction": out.CloudFraction,
	}).Debug("Composite acquired")

	return &remoteComposite{client: c, meta: out}, nil
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal imagery request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build imagery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("imagery call failed: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("imagery service non-2xx: %s, body: %s", resp.Status, string(data))
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode imagery response: %w", err)
	}
	return nil
}

type remoteComposite struct {
	client *Client
	meta   compositeResponse
}

func (rc *remoteComposite) MeanIndex(ctx context.Context, expression string, boundary geo.Polygon, scale int) (*float64, error) {
	in := statisticsRequest{
		Expression: expression,
		Geometry:   boundary,
		Scale:      scale,
	}

	var out statisticsResponse
	if err := rc.client.post(ctx, "/composites/"+rc.meta.ID+"/statistics", in, &out); err != nil {
		return nil, err
	}
	return out.Mean, nil
}

func (rc *remoteComposite) CloudFraction() float64 { return rc.meta.CloudFraction }

func (rc *remoteComposite) VisualizationURL() string { return rc.meta.VisualizationURL }
