package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"financeflow/internal/cache"
	"financeflow/internal/core"
	"financeflow/internal/log"
)

// AuthScheme selects how requests authenticate against the backend.
type AuthScheme string

const (
	AuthToken AuthScheme = "token"
	AuthNone  AuthScheme = "none"
)

// ReadFallbackPolicy controls what a failed fetch returns.
type ReadFallbackPolicy string

const (
	// ReadFallbackEmpty degrades to an empty collection.
	ReadFallbackEmpty ReadFallbackPolicy = "empty"
	// ReadFallbackCached degrades to the last successfully cached payload.
	ReadFallbackCached ReadFallbackPolicy = "cached"
)

// CreateFallbackPolicy controls what a failed create returns.
type CreateFallbackPolicy string

const (
	// CreatePropagate surfaces the normalized error to the caller.
	CreatePropagate CreateFallbackPolicy = "propagate"
	// CreateLocal fabricates a local placeholder entity for later
	// reconciliation.
	CreateLocal CreateFallbackPolicy = "local"
)

// Cache keys for the raw fetched payloads.
const (
	CacheKeyProjects     = "finance_projects"
	CacheKeyTransactions = "finance_transactions"
	CacheKeyUsers        = "finance_users"
	CacheKeyCurrentUser  = "finance_user"
)

// Cache persists raw response bodies so reads can degrade gracefully when
// the backend is unreachable.
type Cache interface {
	Write(ctx context.Context, key string, data []byte) error
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
}

// TokenSource yields the current API token. An empty string means
// unauthenticated.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource holding a fixed value.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Options configures a Client.
type Options struct {
	BaseURL        string
	HTTPClient     *http.Client
	AuthScheme     AuthScheme
	Tokens         TokenSource
	Cache          Cache
	ReadFallback   ReadFallbackPolicy
	CreateFallback CreateFallbackPolicy
	Logger         *log.Logger
}

// Client talks to the tracker backend, normalizes its failures and applies
// the configured degradation policies.
type Client struct {
	baseURL        string
	http           *http.Client
	authScheme     AuthScheme
	tokens         TokenSource
	cache          Cache
	readFallback   ReadFallbackPolicy
	createFallback CreateFallbackPolicy
	logger         *log.Logger
	perms          cache.Cache[core.Permissions]
}

// NewClient creates a Client from options, filling sensible defaults for
// anything unset.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Component(log.ComponentAPI)
	}
	authScheme := opts.AuthScheme
	if authScheme == "" {
		authScheme = AuthToken
	}
	readFallback := opts.ReadFallback
	if readFallback == "" {
		readFallback = ReadFallbackCached
	}
	createFallback := opts.CreateFallback
	if createFallback == "" {
		createFallback = CreatePropagate
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           httpClient,
		authScheme:     authScheme,
		tokens:         opts.Tokens,
		cache:          opts.Cache,
		readFallback:   readFallback,
		createFallback: createFallback,
		logger:         logger,
		perms:          cache.NewLRUCache[core.Permissions](64, 5*time.Minute),
	}
}

// do performs one request and returns the normalized body. A nil body with a
// nil error means the response had no JSON content.
func (c *Client) do(ctx context.Context, method, path string, payload any, fallback string) ([]byte, error) {
	var reqBody *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authScheme == AuthToken && c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Token "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "request failed",
			log.FieldMethod, method,
			log.FieldURL, path,
			log.FieldError, err)
		return nil, networkError(err)
	}
	defer resp.Body.Close()

	body, err := normalize(resp, fallback)
	if err != nil {
		c.logger.WarnContext(ctx, "request rejected",
			log.FieldMethod, method,
			log.FieldURL, path,
			log.FieldStatusCode, resp.StatusCode,
			log.FieldError, err)
		return nil, err
	}

	c.logger.DebugContext(ctx, "request completed",
		log.FieldMethod, method,
		log.FieldURL, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start))
	return body, nil
}

// fetchList performs a collection GET with write-through caching and the
// configured read-fallback policy.
func (c *Client) fetchList(ctx context.Context, path, cacheKey, fallback string) ([]byte, error) {
	body, err := c.do(ctx, http.MethodGet, path, nil, fallback)
	if err == nil {
		if c.cache != nil && body != nil {
			if werr := c.cache.Write(ctx, cacheKey, body); werr != nil {
				c.logger.WarnContext(ctx, "cache write failed",
					log.FieldCacheKey, cacheKey,
					log.FieldError, werr)
			}
		}
		return body, nil
	}

	if c.readFallback == ReadFallbackCached && c.cache != nil {
		cached, ok, cerr := c.cache.Read(ctx, cacheKey)
		if cerr != nil {
			c.logger.WarnContext(ctx, "cache read failed",
				log.FieldCacheKey, cacheKey,
				log.FieldError, cerr)
		} else if ok {
			c.logger.InfoContext(ctx, "serving cached payload",
				log.FieldCacheKey, cacheKey,
				log.FieldFallback, string(c.readFallback))
			return cached, nil
		}
	}

	c.logger.InfoContext(ctx, "degrading to empty payload",
		log.FieldCacheKey, cacheKey,
		log.FieldError, err)
	return nil, nil
}

// FetchProjects lists all projects. Failed fetches degrade per the read
// fallback policy and never return an error.
func (c *Client) FetchProjects(ctx context.Context) ([]core.Project, error) {
	body, err := c.fetchList(ctx, "/projects/", CacheKeyProjects, "Unable to load projects")
	if err != nil {
		return nil, err
	}
	projects, dropped, err := decodeProjects(body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		c.logger.WarnContext(ctx, "dropped malformed projects", log.FieldDropped, dropped)
	}
	return projects, nil
}

// FetchTransactions lists all transactions with the same degradation rules
// as FetchProjects.
func (c *Client) FetchTransactions(ctx context.Context) ([]core.Transaction, error) {
	body, err := c.fetchList(ctx, "/transactions/", CacheKeyTransactions, "Unable to load transactions")
	if err != nil {
		return nil, err
	}
	transactions, dropped, err := decodeTransactions(body)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		c.logger.WarnContext(ctx, "dropped malformed transactions", log.FieldDropped, dropped)
	}
	return transactions, nil
}

// FetchUsers lists all users.
func (c *Client) FetchUsers(ctx context.Context) ([]core.User, error) {
	body, err := c.fetchList(ctx, "/users/", CacheKeyUsers, "Unable to load users")
	if err != nil {
		return nil, err
	}
	users, _, err := decodeUsers(body)
	return users, err
}

// CreateProject creates a project on the backend. A missing color is filled
// with a random pastel before sending. When the create-fallback policy is
// local and the backend is unreachable, a placeholder project with a local ID
// is returned instead of an error.
func (c *Client) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if p.Color == "" {
		p.Color = core.RandomColor()
	}
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}

	body, err := c.do(ctx, http.MethodPost, "/projects/", wireFromProject(p), "Unable to create the project")
	if err != nil {
		if c.createFallback == CreateLocal && isUnreachable(err) {
			p.ID = core.NewLocalID()
			p.CreatedAt = time.Now().UTC()
			c.logger.InfoContext(ctx, "created local placeholder project",
				log.FieldLocalID, p.ID,
				log.FieldFallback, string(c.createFallback))
			return p, nil
		}
		return core.Project{}, err
	}

	var w wireProject
	if err := json.Unmarshal(body, &w); err != nil {
		return core.Project{}, shapeError(err)
	}
	return w.toProject()
}

// CreateTransaction creates a transaction, serializing the amount as a
// two-decimal string. The create-fallback policy applies as for projects.
func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	body, err := c.do(ctx, http.MethodPost, "/transactions/", wireFromTransaction(t), "Unable to create the transaction")
	if err != nil {
		if c.createFallback == CreateLocal && isUnreachable(err) {
			t.ID = core.NewLocalID()
			c.logger.InfoContext(ctx, "created local placeholder transaction",
				log.FieldLocalID, t.ID,
				log.FieldFallback, string(c.createFallback))
			return t, nil
		}
		return core.Transaction{}, err
	}

	var w wireTransaction
	if err := json.Unmarshal(body, &w); err != nil {
		return core.Transaction{}, shapeError(err)
	}
	return w.toTransaction()
}

// UpdateProject patches a project. Update failures always surface.
func (c *Client) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	body, err := c.do(ctx, http.MethodPatch, "/projects/"+p.ID+"/", wireFromProject(p), "Unable to update the project")
	if err != nil {
		return core.Project{}, err
	}
	var w wireProject
	if err := json.Unmarshal(body, &w); err != nil {
		return core.Project{}, shapeError(err)
	}
	return w.toProject()
}

// UpdateTransaction patches a transaction. Update failures always surface.
func (c *Client) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	body, err := c.do(ctx, http.MethodPatch, "/transactions/"+t.ID+"/", wireFromTransaction(t), "Unable to update the transaction")
	if err != nil {
		return core.Transaction{}, err
	}
	var w wireTransaction
	if err := json.Unmarshal(body, &w); err != nil {
		return core.Transaction{}, shapeError(err)
	}
	return w.toTransaction()
}

// CreateUser registers a user. The password travels only on the write path
// and is never echoed back. User writes always surface errors; the local
// create fallback applies to projects and transactions only.
func (c *Client) CreateUser(ctx context.Context, u core.User, password string) (core.User, error) {
	body, err := c.do(ctx, http.MethodPost, "/users/", wireFromUser(u, password), "Unable to create the user")
	if err != nil {
		return core.User{}, err
	}
	var w wireUser
	if err := json.Unmarshal(body, &w); err != nil {
		return core.User{}, shapeError(err)
	}
	return w.toUser(), nil
}

// UpdateUser patches a user. An empty password leaves the current one
// unchanged.
func (c *Client) UpdateUser(ctx context.Context, u core.User, password string) (core.User, error) {
	body, err := c.do(ctx, http.MethodPatch, "/users/"+u.ID+"/", wireFromUser(u, password), "Unable to update the user")
	if err != nil {
		return core.User{}, err
	}
	var w wireUser
	if err := json.Unmarshal(body, &w); err != nil {
		return core.User{}, shapeError(err)
	}
	return w.toUser(), nil
}

// DeleteUser removes a user. Delete failures always surface.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/users/"+id+"/", nil, "Unable to delete the user")
	return err
}

// DeleteProject removes a project. Delete failures always surface.
func (c *Client) DeleteProject(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/projects/"+id+"/", nil, "Unable to delete the project")
	return err
}

// DeleteTransaction removes a transaction. Delete failures always surface.
func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/transactions/"+id+"/", nil, "Unable to delete the transaction")
	return err
}

// isUnreachable reports whether err means the backend could not be reached
// at all. Validation and auth rejections are never eligible for local
// fallback.
func isUnreachable(err error) bool {
	apiErr, ok := err.(*Error)
	if !ok {
		return false
	}
	return apiErr.Kind == ErrNetwork || apiErr.Kind == ErrServer
}
