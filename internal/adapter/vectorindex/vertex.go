package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"docvec/internal/port"
)

// VertexIndex talks to Vertex AI Vector Search over REST: streaming upserts
// and datapoint removal go to the index resource, nearest-neighbor queries to
// the index endpoint with a deployed index ID. Authentication uses
// Application Default Credentials.
type VertexIndex struct {
	project         string
	region          string
	indexID         string
	endpointID      string
	deployedIndexID string
	baseURL         string
	tokenSource     oauth2.TokenSource
	client          *http.Client
}

type VertexConfig struct {
	Project         string
	Region          string
	IndexID         string
	EndpointID      string
	DeployedIndexID string

	// BaseURL overrides the regional API endpoint. Used in tests.
	BaseURL string
	// TokenSource overrides ADC. Used in tests.
	TokenSource oauth2.TokenSource
}

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

func NewVertexIndex(ctx context.Context, cfg VertexConfig) (*VertexIndex, error) {
	ts := cfg.TokenSource
	if ts == nil {
		var err error
		ts, err = google.DefaultTokenSource(ctx, cloudPlatformScope)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve application default credentials: %w", err)
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s-aiplatform.googleapis.com", cfg.Region)
	}

	return &VertexIndex{
		project:         cfg.Project,
		region:          cfg.Region,
		indexID:         cfg.IndexID,
		endpointID:      cfg.EndpointID,
		deployedIndexID: cfg.DeployedIndexID,
		baseURL:         baseURL,
		tokenSource:     ts,
		client:          &http.Client{Timeout: 60 * time.Second},
	}, nil
}

type vertexDatapoint struct {
	DatapointID   string           `json:"datapointId"`
	FeatureVector []float32        `json:"featureVector,omitempty"`
	Restricts     []vertexRestrict `json:"restricts,omitempty"`
}

type vertexRestrict struct {
	Namespace string   `json:"namespace"`
	AllowList []string `json:"allowList"`
}

func (v *VertexIndex) Upsert(ctx context.Context, items []port.IndexItem) error {
	if len(items) == 0 {
		return nil
	}

	datapoints := make([]vertexDatapoint, len(items))
	for i, item := range items {
		dp := vertexDatapoint{
			DatapointID:   item.ID,
			FeatureVector: item.Vector,
		}
		// Metadata rides along as restrict namespaces so results can be
		// filtered server-side.
		for k, val := range item.Metadata {
			dp.Restricts = append(dp.Restricts, vertexRestrict{
				Namespace: k,
				AllowList: []string{val},
			})
		}
		datapoints[i] = dp
	}

	path := fmt.Sprintf("/v1/projects/%s/locations/%s/indexes/%s:upsertDatapoints",
		v.project, v.region, v.indexID)
	body := map[string]any{"datapoints": datapoints}
	return v.do(ctx, path, body, nil)
}

func (v *VertexIndex) Query(ctx context.Context, vector []float32, topK int) ([]port.Neighbor, error) {
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive, got %d", topK)
	}
	if v.deployedIndexID == "" {
		return nil, fmt.Errorf("deployed index ID is required for querying")
	}

	body := map[string]any{
		"deployedIndexId": v.deployedIndexID,
		"queries": []map[string]any{
			{
				"datapoint":     map[string]any{"featureVector": vector},
				"neighborCount": topK,
			},
		},
		"returnFullDatapoint": false,
	}

	var resp struct {
		NearestNeighbors []struct {
			Neighbors []struct {
				Datapoint struct {
					DatapointID string `json:"datapointId"`
				} `json:"datapoint"`
				Distance float64 `json:"distance"`
			} `json:"neighbors"`
		} `json:"nearestNeighbors"`
	}

	path := fmt.Sprintf("/v1/projects/%s/locations/%s/indexEndpoints/%s:findNeighbors",
		v.project, v.region, v.endpointID)
	if err := v.do(ctx, path, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.NearestNeighbors) == 0 {
		return nil, nil
	}

	hits := resp.NearestNeighbors[0].Neighbors
	neighbors := make([]port.Neighbor, 0, len(hits))
	for _, n := range hits {
		if n.Datapoint.DatapointID == "" {
			continue
		}
		neighbors = append(neighbors, port.Neighbor{
			ID:    n.Datapoint.DatapointID,
			Score: n.Distance,
		})
	}
	return neighbors, nil
}

func (v *VertexIndex) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	path := fmt.Sprintf("/v1/projects/%s/locations/%s/indexes/%s:removeDatapoints",
		v.project, v.region, v.indexID)
	body := map[string]any{"datapointIds": ids}
	return v.do(ctx, path, body, nil)
}

func (v *VertexIndex) do(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := v.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("failed to fetch access token: %w", err)
	}
	token.SetAuthHeader(req)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("vertex request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("vertex POST %s returned %d: %s", path, resp.StatusCode, string(payload))
	}
	if out != nil && len(payload) > 0 {
		return json.Unmarshal(payload, out)
	}
	return nil
}
