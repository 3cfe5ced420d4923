package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"example.com/pacific/relief/config"
	"example.com/pacific/relief/internal/models"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const requestsIndex = "requests"

// ElasticClient provides integration with Elasticsearch. A nil client or one
// built without a URL is disabled and indexes nothing.
type ElasticClient struct {
	client *elasticsearch.Client
	config config.ElasticConfig
}

// NewElasticClient creates a new Elasticsearch client
func NewElasticClient(cfg config.ElasticConfig) (*ElasticClient, error) {
	if cfg.URL == "" {
		log.Warn().Msg("Elasticsearch URL not provided, search indexing will be disabled")
		return &ElasticClient{config: cfg}, nil
	}

	esConfig := elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
	}

	client, err := elasticsearch.NewClient(esConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Elasticsearch client")
	}

	return &ElasticClient{
		client: client,
		config: cfg,
	}, nil
}

// Enabled reports whether documents are actually indexed
func (c *ElasticClient) Enabled() bool {
	return c != nil && c.client != nil
}

// IndexName returns the prefixed name of the request index
func (c *ElasticClient) IndexName() string {
	index := c.config.Index
	if index == "" {
		index = requestsIndex
	}
	return config.FormatIndex(c.config, index)
}

// RequestDocument builds the search document for a request, denormalized
// with its event's name and region
func RequestDocument(request *models.Request, event *models.Event) map[string]interface{} {
	doc := map[string]interface{}{
		"id":            request.ID,
		"event_id":      request.EventID,
		"category":      request.Category,
		"urgency":       request.Urgency,
		"location":      request.Location,
		"description":   request.Description,
		"status":        request.Status,
		"assignee_name": request.AssigneeName,
		"assignee_team": request.AssigneeTeam,
		"created_at":    request.CreatedAt,
		"updated_at":    request.UpdatedAt,
	}
	if event != nil {
		doc["event_name"] = event.Name
		doc["event_region"] = event.Region
		doc["event_status"] = event.Status
	}
	return doc
}

// IndexRequest indexes a single request, keyed by its id
func (c *ElasticClient) IndexRequest(ctx context.Context, request *models.Request, event *models.Event) error {
	if !c.Enabled() {
		return nil
	}

	docJSON, err := json.Marshal(RequestDocument(request, event))
	if err != nil {
		return errors.Wrap(err, "failed to marshal request document")
	}

	req := esapi.IndexRequest{
		Index:      c.IndexName(),
		DocumentID: request.ID,
		Body:       bytes.NewReader(docJSON),
	}

	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch index request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res, "index")
	}

	log.Debug().Str("request_id", request.ID).Msg("request indexed")
	return nil
}

// BulkIndexRequests indexes many requests in one bulk call. events maps
// event ids to their records.
func (c *ElasticClient) BulkIndexRequests(ctx context.Context, requests []models.Request, events map[string]*models.Event) error {
	if !c.Enabled() || len(requests) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for i := range requests {
		request := &requests[i]
		action := map[string]interface{}{
			"index": map[string]interface{}{"_index": c.IndexName(), "_id": request.ID},
		}
		if err := enc.Encode(action); err != nil {
			return errors.Wrap(err, "failed to encode bulk action")
		}
		if err := enc.Encode(RequestDocument(request, events[request.EventID])); err != nil {
			return errors.Wrap(err, "failed to encode bulk document")
		}
	}

	req := esapi.BulkRequest{Body: &body}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return errors.Wrap(err, "failed to execute Elasticsearch bulk request")
	}
	defer res.Body.Close()

	if res.IsError() {
		return responseError(res, "bulk")
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return errors.Wrap(err, "failed to parse Elasticsearch bulk response")
	}
	if result.Errors {
		return errors.New("Elasticsearch bulk request reported item errors")
	}

	return nil
}

func responseError(res *esapi.Response, op string) error {
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read Elasticsearch %s error response", op)
	}
	return errors.Errorf("Elasticsearch %s error: %s: %s", op, res.Status(), string(data))
}
