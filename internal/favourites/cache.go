// Package favourites keeps the client's view of the user's favourited
// products and flips it optimistically while toggles are in flight.
//
// Status is keyed by catalog and id together, so products from different
// catalogs that share an id do not collide.
package favourites

import (
	"context"
	"errors"
	"sync"

	"github.com/theLastOfCats/storefront/internal/apiclient"
	"github.com/theLastOfCats/storefront/internal/logger"
	"github.com/theLastOfCats/storefront/internal/model"
	"github.com/theLastOfCats/storefront/internal/session"
)

var ErrNotLoggedIn = errors.New("not logged in")

// Caller is the API client surface the cache uses.
type Caller interface {
	Call(ctx context.Context, req apiclient.Request) apiclient.Result
	HasCredential(ctx context.Context) bool
}

type Query struct {
	Page      int
	Limit     int
	SortBy    string
	SortOrder string
	// Refresh marks a pull-to-refresh; it sets Refreshing instead of Loading.
	Refresh bool
	Catalog model.Catalog
}

func DefaultQuery() Query {
	return Query{Page: 1, Limit: model.DefaultLimit, SortBy: "createdAt", SortOrder: "desc"}
}

func (q Query) normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = model.DefaultLimit
	}
	return q
}

func (q Query) params() map[string]any {
	params := map[string]any{"page": q.Page, "limit": q.Limit}
	if q.SortBy != "" {
		params["sortBy"] = q.SortBy
	}
	if q.SortOrder != "" {
		params["sortOrder"] = q.SortOrder
	}
	if q.Catalog != "" {
		params["productType"] = string(q.Catalog)
	}
	return params
}

type State struct {
	Favourites []model.FavouriteEntry
	Count      int
	Pagination model.Pagination
	Loading    bool
	Refreshing bool
	Error      string
}

type Cache struct {
	api Caller

	mu     sync.Mutex
	state  State
	status map[string]bool
	query  Query

	// clock orders list requests and toggle resolutions. A list response
	// issued before the newest applied one is stale.
	clock    uint64
	applied  uint64
	resolved map[string]uint64
	// generation changes on Reset so in-flight toggles are ignored.
	generation uint64
	pending    int
}

func New(api Caller) *Cache {
	return &Cache{
		api:      api,
		status:   make(map[string]bool),
		resolved: make(map[string]uint64),
		query:    DefaultQuery(),
	}
}

// Follow resets the cache whenever the session logs out.
func (c *Cache) Follow(m *session.Manager) func() {
	return m.Subscribe(func(s session.Session) {
		if s.State == session.StateLoggedOut {
			c.Reset()
		}
	})
}

func (c *Cache) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Favourites = append([]model.FavouriteEntry(nil), c.state.Favourites...)
	return s
}

// IsFavourite reports the known status; unknown products are not favourites.
func (c *Cache) IsFavourite(ref model.ProductRef) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status[ref.Key()]
}

func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
	c.status = make(map[string]bool)
	c.resolved = make(map[string]uint64)
	c.query = DefaultQuery()
	c.clock++
	c.applied = c.clock
	c.generation++
	c.pending = 0
}

// GetFavourites replaces the list with one page. Without a credential it
// resets to empty and makes no request.
func (c *Cache) GetFavourites(ctx context.Context, q Query) error {
	return c.fetch(ctx, q.normalize(), false)
}

// LoadMore appends the page after the last one loaded.
func (c *Cache) LoadMore(ctx context.Context) error {
	c.mu.Lock()
	if c.state.Loading || !c.state.Pagination.HasNext() {
		c.mu.Unlock()
		return nil
	}
	q := c.query
	q.Page = c.state.Pagination.Page + 1
	q.Refresh = false
	c.mu.Unlock()

	return c.fetch(ctx, q, true)
}

func (c *Cache) fetch(ctx context.Context, q Query, appendPage bool) error {
	if !c.api.HasCredential(ctx) {
		c.Reset()
		return nil
	}

	c.mu.Lock()
	c.clock++
	seq := c.clock
	c.pending++
	if q.Refresh {
		c.state.Refreshing = true
	} else {
		c.state.Loading = true
	}
	c.state.Error = ""
	if !appendPage {
		c.query = q
	}
	c.mu.Unlock()

	res := c.api.Call(ctx, apiclient.Request{Endpoint: "/favourite", Method: "GET", Params: q.params()})

	var list model.FavouriteList
	err := res.Decode(&list)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending > 0 {
		c.pending--
	}
	if c.pending == 0 {
		c.state.Loading = false
		c.state.Refreshing = false
	}
	if seq < c.applied {
		logger.Logger.Debug().Uint64("seq", seq).Msg("dropping stale favourites response")
		return nil
	}
	if err != nil {
		c.state.Error = err.Error()
		return err
	}
	c.applied = seq

	if appendPage {
		seen := make(map[string]bool, len(c.state.Favourites))
		for _, e := range c.state.Favourites {
			seen[e.Ref().Key()] = true
		}
		for _, e := range list.Products {
			if !seen[e.Ref().Key()] {
				c.state.Favourites = append(c.state.Favourites, e)
			}
		}
	} else {
		c.state.Favourites = list.Products
		if c.state.Favourites == nil {
			c.state.Favourites = []model.FavouriteEntry{}
		}
	}
	c.state.Pagination = list.Pagination.Normalize()
	c.state.Count = c.state.Pagination.Total

	for _, e := range list.Products {
		key := e.Ref().Key()
		// A toggle confirmed after this request was issued is newer.
		if c.resolved[key] > seq {
			continue
		}
		c.status[key] = true
	}
	return nil
}

// Toggle flips the status immediately, then reconciles it with the server.
// An addition refetches the current list since the entry's display data is
// not known locally; a removal filters it out in place. On failure the
// status is restored and Error is set.
func (c *Cache) Toggle(ctx context.Context, ref model.ProductRef) (model.ToggleResponse, error) {
	if !c.api.HasCredential(ctx) {
		return model.ToggleResponse{}, ErrNotLoggedIn
	}
	key := ref.Key()

	c.mu.Lock()
	previous := c.status[key]
	c.status[key] = !previous
	generation := c.generation
	c.mu.Unlock()

	res := c.api.Call(ctx, apiclient.Request{Endpoint: "/favourite/toggle", Method: "POST", Data: ref.TogglePayload()})

	var resp model.ToggleResponse
	err := res.Decode(&resp)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return resp, err
	}
	c.clock++
	c.resolved[key] = c.clock

	if err != nil {
		c.status[key] = previous
		c.state.Error = err.Error()
		c.mu.Unlock()
		logger.Logger.Warn().Err(err).Str("product", key).Msg("favourite toggle failed, rolled back")
		return resp, err
	}

	c.status[key] = resp.IsFavourite
	if resp.Action == model.ActionRemoved {
		c.removeLocked(ref)
	}
	q := c.query
	c.mu.Unlock()

	if resp.Action == model.ActionAdded {
		q.Refresh = true
		if err := c.fetch(ctx, q, false); err != nil {
			logger.Logger.Warn().Err(err).Msg("favourites refetch after add failed")
		}
	}
	return resp, nil
}

// removeLocked drops ref from the loaded list. The totals only move when the
// product belongs to the cached query's catalog filter.
func (c *Cache) removeLocked(ref model.ProductRef) {
	kept := c.state.Favourites[:0:0]
	for _, e := range c.state.Favourites {
		if e.Ref() != ref {
			kept = append(kept, e)
		}
	}
	c.state.Favourites = kept

	if c.query.Catalog != "" && c.query.Catalog != ref.Catalog {
		return
	}
	p := c.state.Pagination
	c.state.Pagination = model.NewPagination(p.Page, p.Limit, p.Total-1)
	c.state.Count = c.state.Pagination.Total
}

// Check asks the server directly. Any failure, including no credential,
// reports false.
func (c *Cache) Check(ctx context.Context, ref model.ProductRef) bool {
	if !c.api.HasCredential(ctx) {
		return false
	}
	c.mu.Lock()
	generation := c.generation
	c.mu.Unlock()

	res := c.api.Call(ctx, apiclient.Request{
		Endpoint: "/favourite/check",
		Method:   "GET",
		Params:   map[string]any{"productType": string(ref.Catalog), "productId": ref.ID},
	})
	var check model.CheckResponse
	if err := res.Decode(&check); err != nil {
		return false
	}

	c.mu.Lock()
	if generation == c.generation {
		c.status[ref.Key()] = check.IsFavourite
	}
	c.mu.Unlock()
	return check.IsFavourite
}
