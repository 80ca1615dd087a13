// Package anilist implements domain.Tracker against the AniList GraphQL
// API.
package anilist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shurizzle/aniscrobble/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultEndpoint = "https://graphql.anilist.co"
	defaultTimeout  = 30 * time.Second

	// AniList rate-limits clients to 90 requests per minute.
	requestsPerMinute = 90
)

// errNotFound marks a 404 from the API; callers that expect "no list entry
// yet" map it to zero progress.
var errNotFound = errors.New("not found")

// Media list status values accepted by SaveMediaListEntry.
const (
	statusCurrent   = "CURRENT"
	statusCompleted = "COMPLETED"
)

// Client talks to the AniList GraphQL endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates an AniList client. An empty endpoint selects the public
// API.
func NewClient(endpoint string, logger *slog.Logger) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(time.Minute/requestsPerMinute), 1),
		logger:  logger,
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// do posts one GraphQL document and decodes the response's data object
// into out.
func (c *Client) do(ctx context.Context, token, query string, variables map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("anilist request failed", "error", err)
		return fmt.Errorf("%w: %v", domain.ErrServerOffline, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return domain.ErrAuthFailed
	case http.StatusNotFound:
		return errNotFound
	default:
		c.logger.Error("anilist request error", "status", resp.StatusCode, "body", string(data))
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// Viewer resolves a bearer token to the AniList user id.
func (c *Client) Viewer(ctx context.Context, token string) (uint64, error) {
	var container struct {
		Viewer struct {
			ID uint64 `json:"id"`
		} `json:"Viewer"`
	}
	err := c.do(ctx, token, "query { Viewer { id } }", nil, &container)
	if err != nil {
		return 0, err
	}
	return container.Viewer.ID, nil
}

// episodes fetches the total episode count for a title.
func (c *Client) episodes(ctx context.Context, mediaID uint64) (uint64, error) {
	const query = `
	query ($id: Int) {
		Media(id: $id, type: ANIME) {
			episodes
		}
	}`

	var container struct {
		Media struct {
			Episodes uint64 `json:"episodes"`
		} `json:"Media"`
	}
	err := c.do(ctx, "", query, map[string]any{"id": mediaID}, &container)
	if err != nil {
		return 0, err
	}
	return container.Media.Episodes, nil
}

// listProgress fetches the viewer's confirmed progress for a title. A title
// the viewer has never listed reports zero.
func (c *Client) listProgress(ctx context.Context, token string, userID, mediaID uint64) (uint64, error) {
	const query = `
	query ($userId: Int, $mediaId: Int) {
		MediaList(userId: $userId, mediaId: $mediaId, type: ANIME) {
			progress
		}
	}`

	var container struct {
		MediaList struct {
			Progress uint64 `json:"progress"`
		} `json:"MediaList"`
	}
	err := c.do(ctx, token, query, map[string]any{"userId": userID, "mediaId": mediaID}, &container)
	if errors.Is(err, errNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return container.MediaList.Progress, nil
}

// Progress fetches the remote entry for one title.
func (c *Client) Progress(ctx context.Context, token string, userID, mediaID uint64) (domain.MediaEntry, error) {
	episodes, err := c.episodes(ctx, mediaID)
	if err != nil {
		return domain.MediaEntry{}, err
	}
	progress, err := c.listProgress(ctx, token, userID, mediaID)
	if err != nil {
		return domain.MediaEntry{}, err
	}
	return domain.MediaEntry{Episodes: episodes, Progress: progress}, nil
}

// SaveProgress pushes a new progress value for a title, tagging the entry
// completed when it reaches the total episode count.
func (c *Client) SaveProgress(ctx context.Context, token string, mediaID, progress, total uint64) (uint64, error) {
	const query = `
	mutation ($mediaId: Int, $status: MediaListStatus, $progress: Int) {
		SaveMediaListEntry(mediaId: $mediaId, status: $status, progress: $progress) {
			progress
		}
	}`

	status := statusCurrent
	if progress == total {
		status = statusCompleted
	}

	var container struct {
		SaveMediaListEntry struct {
			Progress uint64 `json:"progress"`
		} `json:"SaveMediaListEntry"`
	}
	err := c.do(ctx, token, query, map[string]any{
		"mediaId":  mediaID,
		"status":   status,
		"progress": progress,
	}, &container)
	if err != nil {
		return 0, err
	}

	c.logger.Debug("pushed progress", "media", mediaID, "progress", progress, "status", status)
	return container.SaveMediaListEntry.Progress, nil
}
