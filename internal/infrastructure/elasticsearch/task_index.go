// Package elasticsearch keeps a full-text index of tasks for search.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	elastic "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-task-manager/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

const indexMapping = `{
  "mappings": {
    "properties": {
      "owner_id":    {"type": "long"},
      "title":       {"type": "text"},
      "description": {"type": "text"},
      "completed":   {"type": "boolean"},
      "priority":    {"type": "keyword"},
      "category":    {"type": "keyword"},
      "updated_at":  {"type": "date"}
    }
  }
}`

// TaskIndex stores one document per task, keyed by task id.
type TaskIndex struct {
	es     *elastic.Client
	index  string
	logger *logrus.Logger
}

func NewTaskIndex(es *elastic.Client, index string, logger *logrus.Logger) *TaskIndex {
	return &TaskIndex{es: es, index: index, logger: logger}
}

type taskDoc struct {
	OwnerID     int64   `json:"owner_id"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
	Completed   bool    `json:"completed"`
	Priority    *string `json:"priority,omitempty"`
	Category    *string `json:"category,omitempty"`
	UpdatedAt   string  `json:"updated_at"`
}

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *TaskIndex) EnsureIndex(ctx context.Context) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := esapi.IndicesExistsRequest{Index: []string{x.index}}.Do(c, x.es)
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	res, err = esapi.IndicesCreateRequest{Index: x.index, Body: bytes.NewReader([]byte(indexMapping))}.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("create index %s: %s", x.index, res.Status())
	}
	x.logger.WithField("index", x.index).Info("search index created")
	return nil
}

func (x *TaskIndex) Index(ctx context.Context, t *entity.Task) error {
	doc := taskDoc{
		OwnerID:     t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		UpdatedAt:   t.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if t.Priority != nil {
		p := string(*t.Priority)
		doc.Priority = &p
	}
	if t.Category != nil {
		cat := string(*t.Category)
		doc.Category = &cat
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req := esapi.IndexRequest{
		Index:      x.index,
		DocumentID: strconv.FormatInt(t.ID, 10),
		Body:       bytes.NewReader(b),
		Refresh:    "false",
	}
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("index task %d: %s", t.ID, res.Status())
	}
	return nil
}

// Remove deletes the task document. A missing document is not an error.
func (x *TaskIndex) Remove(ctx context.Context, ownerID, id int64) error {
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	req := esapi.DeleteRequest{Index: x.index, DocumentID: strconv.FormatInt(id, 10)}
	res, err := req.Do(c, x.es)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove task %d (owner %d): %s", id, ownerID, res.Status())
	}
	return nil
}

// Search returns ids of the owner's tasks matching q, best match first.
func (x *TaskIndex) Search(ctx context.Context, ownerID int64, q string, limit int) ([]int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	query := map[string]any{
		"_source": false,
		"size":    limit,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"owner_id": ownerID}},
				},
				"must": []any{
					map[string]any{"multi_match": map[string]any{
						"query":     q,
						"fields":    []string{"title^2", "description"},
						"fuzziness": "AUTO",
					}},
				},
			},
		},
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := x.es.Search(
		x.es.Search.WithContext(c),
		x.es.Search.WithIndex(x.index),
		x.es.Search.WithBody(bytes.NewReader(b)),
	)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("search tasks: %s", res.Status())
	}

	var body struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]int64, 0, len(body.Hits.Hits))
	for _, h := range body.Hits.Hits {
		id, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			x.logger.WithField("doc_id", h.ID).Warn("skipping non-numeric search hit")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
