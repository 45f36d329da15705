package community

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"

	apperrors "quitflow/internal/common/errors"
	"quitflow/internal/common/logger"
)

// Post is a community post as stored in the search index.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"authorId"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SearchResult is one post hit with its relevance score.
type SearchResult struct {
	Post  Post    `json:"post"`
	Score float64 `json:"score"`
}

// PostIndex indexes community posts into Elasticsearch and searches them.
type PostIndex struct {
	client *elasticsearch.Client
	index  string
	log    logger.Logger
	now    func() time.Time
}

func NewPostIndex(client *elasticsearch.Client, index string, log logger.Logger) *PostIndex {
	return &PostIndex{
		client: client,
		index:  index,
		log:    log.WithFields(map[string]interface{}{"component": "post-index"}),
		now:    time.Now,
	}
}

// IndexPost assigns the post an id and timestamp and writes it to the index.
func (p *PostIndex) IndexPost(ctx context.Context, post Post) (Post, error) {
	if post.ID == "" {
		post.ID = uuid.New().String()
	}
	if post.CreatedAt.IsZero() {
		post.CreatedAt = p.now().UTC()
	}

	body, err := json.Marshal(post)
	if err != nil {
		return Post{}, fmt.Errorf("marshal post: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      p.index,
		DocumentID: post.ID,
		Body:       bytes.NewReader(body),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return Post{}, apperrors.NewSearchError("index post", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return Post{}, apperrors.NewSearchError("index post",
			fmt.Errorf("elasticsearch returned %s", res.Status()))
	}

	p.log.Info("indexed post", map[string]interface{}{"postId": post.ID})
	return post, nil
}

// Search runs a match query over title, body and tags, best matches first.
func (p *PostIndex) Search(ctx context.Context, query string, size int) ([]SearchResult, error) {
	if size <= 0 {
		size = 20
	}

	queryBody := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^3", "body^2", "tags"},
				"type":   "best_fields",
			},
		},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"createdAt": "desc"},
		},
	}
	body, _ := json.Marshal(queryBody)

	req := esapi.SearchRequest{
		Index: []string{p.index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}
	res, err := req.Do(ctx, p.client)
	if err != nil {
		return nil, apperrors.NewSearchError("search posts", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchError("search posts",
			fmt.Errorf("elasticsearch returned %s", res.Status()))
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Score  float64         `json:"_score"`
				Source json.RawMessage `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchError("search posts", fmt.Errorf("decode response: %w", err))
	}

	results := make([]SearchResult, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		var post Post
		if err := json.Unmarshal(hit.Source, &post); err != nil {
			p.log.Warn("skipping undecodable hit", map[string]interface{}{"error": err.Error()})
			continue
		}
		results = append(results, SearchResult{Post: post, Score: hit.Score})
	}
	return results, nil
}
