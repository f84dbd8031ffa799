package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"repocard/logger"
	"repocard/models"
)

// DefaultBaseURL is the public GitHub REST endpoint
const DefaultBaseURL = "https://api.github.com"

// FetchMessage is the user-facing text for a failed fetch
const FetchMessage = "Failed to fetch repository data"

// ErrFetch is matched by every FetchError
var ErrFetch = errors.New("failed to fetch repository")

// FetchError reports a network failure, a non-2xx status or an undecodable body.
// Status is zero when no response was received.
type FetchError struct {
	Owner  string
	Name   string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	switch {
	case e.Status != 0 && e.Err == nil:
		return fmt.Sprintf("%s %s/%s: status code %d", ErrFetch, e.Owner, e.Name, e.Status)
	case e.Status != 0:
		return fmt.Sprintf("%s %s/%s: status code %d: %v", ErrFetch, e.Owner, e.Name, e.Status, e.Err)
	default:
		return fmt.Sprintf("%s %s/%s: %v", ErrFetch, e.Owner, e.Name, e.Err)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrFetch) succeed.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// Client represents a GitHub API client
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    *url.URL
}

// RepoResponse holds the fields of GET /repos/{owner}/{name} used by the card
type RepoResponse struct {
	Name            string  `json:"name"`
	Description     *string `json:"description"`
	HTMLURL         string  `json:"html_url"`
	Language        *string `json:"language"`
	ForksCount      int     `json:"forks_count"`
	StargazersCount int     `json:"stargazers_count"`
}

// Payload converts the response into the card payload
func (r *RepoResponse) Payload() models.Payload {
	return models.Payload{
		Name:        r.Name,
		Description: nonEmpty(r.Description),
		Stars:       max(r.StargazersCount, 0),
		Forks:       max(r.ForksCount, 0),
		Language:    nonEmpty(r.Language),
	}
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// NewClient creates a client for baseURL. An empty token sends unauthenticated
// requests; a zero timeout leaves requests unbounded.
func NewClient(token, baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	logger.Info("Initializing GitHub client",
		zap.String("base_url", u.String()),
		zap.Bool("authenticated", token != ""),
		zap.Duration("timeout", timeout))
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: u,
	}, nil
}

// FetchRepo issues a single GET /repos/{owner}/{name}. It never retries.
func (c *Client) FetchRepo(ctx context.Context, owner, name string) (*RepoResponse, error) {
	reqURL := c.baseURL.JoinPath("repos", owner, name)

	logger.Debug("Fetching repository",
		zap.String("owner", owner),
		zap.String("name", name),
		zap.String("url", reqURL.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, &FetchError{Owner: owner, Name: name, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("token %s", c.token))
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error("Failed to fetch repository",
			zap.Error(err),
			zap.String("owner", owner),
			zap.String("name", name))
		return nil, &FetchError{Owner: owner, Name: name, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error("Failed to fetch repository",
			zap.Int("status_code", resp.StatusCode),
			zap.String("owner", owner),
			zap.String("name", name))
		return nil, &FetchError{Owner: owner, Name: name, Status: resp.StatusCode}
	}

	var repo RepoResponse
	if err := json.NewDecoder(resp.Body).Decode(&repo); err != nil {
		logger.Error("Failed to decode repository response",
			zap.Error(err),
			zap.String("owner", owner),
			zap.String("name", name))
		return nil, &FetchError{
			Owner:  owner,
			Name:   name,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("failed to decode repository response: %w", err),
		}
	}

	logger.Info("Successfully fetched repository",
		zap.String("owner", owner),
		zap.String("name", name),
		zap.Int("stars", repo.StargazersCount))

	return &repo, nil
}
