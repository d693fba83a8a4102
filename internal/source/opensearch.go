package source

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/opensearch-project/opensearch-go/v2"

	"github.com/telhawk-systems/telhawk-reporting/internal/models"
)

// maxFetchSize caps one fetch; a monthly reporting window is expected to fit
// well inside it.
const maxFetchSize = 10000

// OpenSearchConfig holds the connection settings for an OpenSearch-backed
// record source.
type OpenSearchConfig struct {
	URL      string
	Username string
	Password string
	Index    string
	Insecure bool
}

// OpenSearchSource reads raw records from an OpenSearch index. Documents are
// expected to carry @timestamp plus optional category, agent, and value
// fields.
type OpenSearchSource struct {
	client *opensearch.Client
	index  string
}

// NewOpenSearchSource creates the client and verifies the cluster responds.
func NewOpenSearchSource(cfg OpenSearchConfig) (*OpenSearchSource, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				InsecureSkipVerify: cfg.Insecure,
			},
		},
	}

	osCfg := opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: httpClient.Transport,
	}

	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w", err)
	}
	defer info.Body.Close()

	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error: %s", info.Status())
	}

	return &OpenSearchSource{client: client, index: cfg.Index}, nil
}

func (s *OpenSearchSource) Name() string {
	return "opensearch:" + s.index
}

// Fetch queries the window's documents, newest capped at maxFetchSize.
func (s *OpenSearchSource) Fetch(ctx context.Context, window Window) ([]models.RawRecord, error) {
	query := map[string]interface{}{
		"query": map[string]interface{}{
			"range": map[string]interface{}{
				"@timestamp": map[string]interface{}{
					"gte": window.From.Format(time.RFC3339),
					"lt":  window.To.Format(time.RFC3339),
				},
			},
		},
		"sort": []map[string]interface{}{
			{"@timestamp": map[string]interface{}{"order": "asc"}},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := s.client.Search(
		s.client.Search.WithContext(ctx),
		s.client.Search.WithIndex(s.index),
		s.client.Search.WithBody(&buf),
		s.client.Search.WithSize(maxFetchSize),
		s.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					Timestamp string   `json:"@timestamp"`
					Category  string   `json:"category"`
					Agent     string   `json:"agent"`
					Value     *float64 `json:"value"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	records := make([]models.RawRecord, 0, len(searchResult.Hits.Hits))
	for _, hit := range searchResult.Hits.Hits {
		rec := models.RawRecord{
			Category: hit.Source.Category,
			Agent:    hit.Source.Agent,
			Value:    hit.Source.Value,
			Ref:      "doc " + hit.ID,
		}
		if ts, err := parseTimestamp(hit.Source.Timestamp); err == nil {
			rec.Timestamp = ts
		}
		records = append(records, rec)
	}

	return records, nil
}
