package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"email-analyzer/internal/categorization"
)

// ElasticsearchActivity indexes activity records so they can be searched
// alongside the dashboard's other events.
type ElasticsearchActivity struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchActivity(client *elasticsearch.Client, index string) *ElasticsearchActivity {
	return &ElasticsearchActivity{client: client, index: index}
}

func (e *ElasticsearchActivity) RecordActivity(ctx context.Context, a categorization.Activity) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode activity: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      e.index,
		DocumentID: a.ID,
		Body:       bytes.NewReader(body),
	}
	res, err := req.Do(ctx, e.client)
	if err != nil {
		return fmt.Errorf("index activity: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index activity: %s", res.Status())
	}
	return nil
}
