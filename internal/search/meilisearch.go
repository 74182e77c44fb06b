package search

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/meilisearch/meilisearch-go"
)

// Backend is the search engine the service writes documents to
type Backend interface {
	Init() error
	Upsert(docs []Document) error
	Delete(id uint) error
	DeleteAll() error
	Search(req Request) ([]uint, int64, error)
}

// MeiliClient stores documents in a Meilisearch index
type MeiliClient struct {
	client *meilisearch.Client
	index  string
}

// NewMeiliClient creates a client for index on host
func NewMeiliClient(host, apiKey, index string) *MeiliClient {
	client := meilisearch.NewClient(meilisearch.ClientConfig{
		Host:   host,
		APIKey: apiKey,
	})
	if index == "" {
		index = "properties"
	}
	return &MeiliClient{client: client, index: index}
}

// Init creates the index and configures its attributes
func (m *MeiliClient) Init() error {
	// Creation is asynchronous; an existing index makes the task fail without
	// affecting the settings updates below.
	if _, err := m.client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        m.index,
		PrimaryKey: "id",
	}); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	idx := m.client.Index(m.index)
	if _, err := idx.UpdateSearchableAttributes(&[]string{
		"title_en",
		"title_es",
		"location",
		"text_en",
		"text_es",
		"slug",
	}); err != nil {
		return fmt.Errorf("failed to set searchable attributes: %w", err)
	}

	if _, err := idx.UpdateFilterableAttributes(&[]string{
		"deal_type",
		"property_type",
		"features",
		"bedrooms",
		"price",
		"rent_price",
	}); err != nil {
		return fmt.Errorf("failed to set filterable attributes: %w", err)
	}

	if _, err := idx.UpdateSortableAttributes(&[]string{
		"created_at",
		"price",
		"rent_price",
	}); err != nil {
		return fmt.Errorf("failed to set sortable attributes: %w", err)
	}
	return nil
}

// Upsert adds or replaces documents
func (m *MeiliClient) Upsert(docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := m.client.Index(m.index).AddDocuments(docs, "id"); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	return nil
}

// Delete removes one document
func (m *MeiliClient) Delete(id uint) error {
	if _, err := m.client.Index(m.index).DeleteDocument(strconv.FormatUint(uint64(id), 10)); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// DeleteAll empties the index
func (m *MeiliClient) DeleteAll() error {
	if _, err := m.client.Index(m.index).DeleteAllDocuments(); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	return nil
}

// Search returns the ids of matching documents, best match first, and the
// estimated total.
func (m *MeiliClient) Search(req Request) ([]uint, int64, error) {
	searchReq := &meilisearch.SearchRequest{
		Limit:                req.Limit,
		AttributesToRetrieve: []string{"id"},
	}
	if filter := req.Filter(); filter != "" {
		searchReq.Filter = filter
	}

	res, err := m.client.Index(m.index).Search(req.Query, searchReq)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search: %w", err)
	}

	ids := make([]uint, 0, len(res.Hits))
	for _, hit := range res.Hits {
		if id, ok := hitID(hit); ok {
			ids = append(ids, id)
		}
	}
	return ids, res.EstimatedTotalHits, nil
}

// hitID reads the primary key of a hit, which decodes as a JSON number
func hitID(hit interface{}) (uint, bool) {
	raw, err := json.Marshal(hit)
	if err != nil {
		return 0, false
	}
	var doc struct {
		ID uint `json:"id"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.ID == 0 {
		return 0, false
	}
	return doc.ID, true
}
