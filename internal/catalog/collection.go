// Package catalog holds the remote-backed collections the storefront
// browses: the three product catalogs, articles, slides and notifications.
package catalog

import (
	"context"
	"sync"

	"github.com/theLastOfCats/storefront/internal/apiclient"
	"github.com/theLastOfCats/storefront/internal/logger"
	"github.com/theLastOfCats/storefront/internal/model"
)

const defaultNewLimit = 6

type Item interface {
	ItemID() string
}

type Caller interface {
	Call(ctx context.Context, req apiclient.Request) apiclient.Result
}

type State[T Item] struct {
	Items            []T
	NewItems         []T
	Categories       []model.Category
	Loading          bool
	SearchQuery      string
	SelectedCategory string
	CurrentPage      int
	TotalPages       int
	Total            int
	Error            string
}

// Collection is one paginated, filterable list plus its "new items" subset.
// Changing the search query, category or page reloads the list.
type Collection[T Item] struct {
	api    Caller
	path   string
	public bool
	limit  int

	mu       sync.Mutex
	state    State[T]
	newLimit int
	unread   int

	seq     uint64
	applied uint64
	pending int
}

func newCollection[T Item](api Caller, path string, public bool) *Collection[T] {
	return &Collection[T]{
		api:      api,
		path:     path,
		public:   public,
		limit:    model.DefaultLimit,
		newLimit: defaultNewLimit,
		state:    State[T]{CurrentPage: 1},
	}
}

func NewProducts(api Caller) *Collection[model.Product] {
	return newCollection[model.Product](api, "/products", true)
}

func NewNNDT(api Caller) *Collection[model.Product] {
	return newCollection[model.Product](api, "/productnndt", true)
}

func NewCTGD(api Caller) *Collection[model.Product] {
	return newCollection[model.Product](api, "/productctgd", true)
}

func NewBSCT(api Caller) *Collection[model.Post] {
	return newCollection[model.Post](api, "/bsct", true)
}

func NewThuVien(api Caller) *Collection[model.Post] {
	return newCollection[model.Post](api, "/thuvien", true)
}

func NewSlider(api Caller) *Collection[model.Slide] {
	return newCollection[model.Slide](api, "/slider", true)
}

// SetLimit changes the page size used by subsequent loads.
func (c *Collection[T]) SetLimit(limit int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if limit > 0 {
		c.limit = limit
	}
}

func (c *Collection[T]) Snapshot() State[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.state
	s.Items = append([]T(nil), c.state.Items...)
	s.NewItems = append([]T(nil), c.state.NewItems...)
	s.Categories = append([]model.Category(nil), c.state.Categories...)
	return s
}

func (c *Collection[T]) SetSearchQuery(ctx context.Context, query string) error {
	c.mu.Lock()
	c.state.SearchQuery = query
	c.state.CurrentPage = 1
	c.mu.Unlock()
	return c.Load(ctx)
}

func (c *Collection[T]) SetSelectedCategory(ctx context.Context, categoryID string) error {
	c.mu.Lock()
	c.state.SelectedCategory = categoryID
	c.state.CurrentPage = 1
	c.mu.Unlock()
	return c.Load(ctx)
}

func (c *Collection[T]) SetPage(ctx context.Context, page int) error {
	c.mu.Lock()
	c.state.CurrentPage = max(page, 1)
	c.mu.Unlock()
	return c.Load(ctx)
}

// Load fetches the current page with the current filters and replaces Items.
func (c *Collection[T]) Load(ctx context.Context) error {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.pending++
	c.state.Loading = true
	c.state.Error = ""
	params := map[string]any{"page": c.state.CurrentPage, "limit": c.limit}
	if c.state.SearchQuery != "" {
		params["search"] = c.state.SearchQuery
	}
	if c.state.SelectedCategory != "" {
		params["category"] = c.state.SelectedCategory
	}
	c.mu.Unlock()

	res := c.api.Call(ctx, apiclient.Request{Endpoint: c.path, Method: "GET", Params: params, Public: c.public})

	var page model.ListPage[T]
	err := res.Decode(&page)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pending--
	if c.pending == 0 {
		c.state.Loading = false
	}
	if seq < c.applied {
		logger.Logger.Debug().Str("collection", c.path).Uint64("seq", seq).Msg("dropping stale page")
		return nil
	}
	if err != nil {
		c.state.Error = err.Error()
		return err
	}
	c.applied = seq

	p := page.Pagination.Normalize()
	c.state.Items = page.Items
	c.state.CurrentPage = p.Page
	c.state.TotalPages = p.Pages
	c.state.Total = p.Total
	if page.UnreadCount != nil {
		c.unread = *page.UnreadCount
	}
	return nil
}

// LoadNew fills NewItems with the newest entries, independent of filters.
func (c *Collection[T]) LoadNew(ctx context.Context, limit int) error {
	if limit < 1 {
		limit = defaultNewLimit
	}
	c.mu.Lock()
	c.newLimit = limit
	c.mu.Unlock()

	res := c.api.Call(ctx, apiclient.Request{
		Endpoint: c.path + "/new",
		Method:   "GET",
		Params:   map[string]any{"limit": limit},
		Public:   c.public,
	})
	var body struct {
		Items []T `json:"items"`
	}
	err := res.Decode(&body)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = err.Error()
		return err
	}
	c.state.NewItems = body.Items
	return nil
}

// RefreshNew repeats the last LoadNew.
func (c *Collection[T]) RefreshNew(ctx context.Context) error {
	c.mu.Lock()
	limit := c.newLimit
	c.mu.Unlock()
	return c.LoadNew(ctx, limit)
}

func (c *Collection[T]) LoadCategories(ctx context.Context) error {
	res := c.api.Call(ctx, apiclient.Request{Endpoint: c.path + "/categories", Method: "GET", Public: c.public})
	var body struct {
		Categories []model.Category `json:"categories"`
	}
	err := res.Decode(&body)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state.Error = err.Error()
		return err
	}
	c.state.Categories = body.Categories
	return nil
}

// Get looks id up in the loaded lists only. Items not loaded are not found.
func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, list := range [][]T{c.state.Items, c.state.NewItems} {
		for _, item := range list {
			if item.ItemID() == id {
				return item, true
			}
		}
	}
	var zero T
	return zero, false
}
