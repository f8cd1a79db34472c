package listing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/text/language"
)

var (
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrUnsortableField = errors.New("field cannot be sorted")
)

// Loader is the product resource the controller reads from and deletes
// through
type Loader interface {
	List(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error)
	Delete(ctx context.Context, id string) error
	ServerSort() bool
}

// View is a snapshot of what the list page shows
type View struct {
	Query       domain.ListQuery `json:"query"`
	Rows        []domain.Product `json:"rows"`
	Total       int              `json:"total"`
	TotalPages  int              `json:"total_pages"`
	From        int              `json:"from"`
	To          int              `json:"to"`
	Pages       []PageItem       `json:"pages"`
	HasPrevious bool             `json:"has_previous"`
	HasNext     bool             `json:"has_next"`
	Loading     bool             `json:"loading"`
	Loaded      bool             `json:"loaded"`
	Error       string           `json:"error,omitempty"`
	// PendingSearch is typed text that the debounce has not applied yet
	PendingSearch *string `json:"pending_search,omitempty"`
}

// Controller holds the list state of one session: the query, the last
// page received, and any optimistic change made to it.
type Controller struct {
	mu     sync.Mutex
	loader Loader
	logger *zap.Logger
	locale language.Tag

	query    domain.ListQuery
	debounce *Debouncer
	typed    *string

	rows    []domain.Product
	total   int
	loaded  bool
	loading int
	err     error
	// version changes whenever rows are replaced
	version uint64

	autoLoad    bool
	loadTimeout time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
}

// Option configures a Controller
type Option func(*Controller)

// WithDebounce sets the search debounce delay
func WithDebounce(d time.Duration) Option {
	return func(c *Controller) {
		c.debounce = NewDebouncer(d)
	}
}

// WithLocale sets the collation used for client-side text sorting
func WithLocale(tag language.Tag) Option {
	return func(c *Controller) {
		c.locale = tag
	}
}

// WithAutoLoad makes the controller fetch the list as soon as a debounced
// search is applied, bounded by timeout
func WithAutoLoad(timeout time.Duration) Option {
	return func(c *Controller) {
		c.autoLoad = true
		c.loadTimeout = timeout
	}
}

// WithLogger sets the controller's logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

// NewController creates a controller reading from loader
func NewController(loader Loader, opts ...Option) *Controller {
	c := &Controller{
		loader:      loader,
		logger:      zap.NewNop(),
		locale:      language.English,
		query:       domain.DefaultListQuery(),
		loadTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.debounce == nil {
		c.debounce = NewDebouncer(DefaultDebounce)
	}
	c.ctx, c.cancel = context.WithCancel(context.Background())
	return c
}

// Close drops any pending search and stops background loads
func (c *Controller) Close() {
	c.debounce.Cancel()
	c.cancel()
}

// Query returns the current query
func (c *Controller) Query() domain.ListQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// SetPage moves to page n. Values below 1 become 1.
func (c *Controller) SetPage(n int) {
	if n < 1 {
		n = 1
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.Page = n
}

// SetPageSize changes the page size and goes back to the first page
func (c *Controller) SetPageSize(n int) error {
	if !domain.ValidPageSize(n) {
		return fmt.Errorf("%w: %d", ErrInvalidPageSize, n)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.query.PageSize != n {
		c.query.PageSize = n
		c.query.Page = 1
	}
	return nil
}

// SetSearch records typed search text. The text is applied once no further
// SetSearch call arrives within the debounce delay.
func (c *Controller) SetSearch(text string) {
	c.mu.Lock()
	c.typed = &text
	c.mu.Unlock()

	c.debounce.Trigger(func() {
		if c.applySearch(text) && c.autoLoad {
			go c.backgroundLoad()
		}
	})
}

// FlushSearch applies pending search text immediately
func (c *Controller) FlushSearch() {
	c.debounce.Flush()
}

// ClearSearch drops the search text and any pending search
func (c *Controller) ClearSearch() {
	c.debounce.Cancel()
	c.applySearch("")
}

// SearchNow sets and applies search text without waiting
func (c *Controller) SearchNow(text string) {
	c.debounce.Cancel()
	c.applySearch(text)
}

func (c *Controller) applySearch(text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.typed = nil
	if c.query.Search == text {
		return false
	}
	c.query.Search = text
	c.query.Page = 1
	return true
}

// NextSort returns the sort that follows clicking field's header when the
// list is sorted by current in direction dir: none, ascending, descending,
// then none again. A different field starts at ascending.
func NextSort(field, current string, dir domain.SortDirection) (string, domain.SortDirection) {
	if field != current {
		return field, domain.SortAsc
	}
	switch dir {
	case domain.SortNone:
		return field, domain.SortAsc
	case domain.SortAsc:
		return field, domain.SortDesc
	default:
		return "", domain.SortNone
	}
}

// ToggleSort advances the sort on field as NextSort describes
func (c *Controller) ToggleSort(field string) error {
	if !Sortable(field) {
		return fmt.Errorf("%w: %s", ErrUnsortableField, field)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SortField, c.query.SortDirection = NextSort(field, c.query.SortField, c.query.SortDirection)
	return nil
}

// SetSort sorts by field in direction dir. An empty field or direction
// clears the sort.
func (c *Controller) SetSort(field string, dir domain.SortDirection) error {
	if field == "" || dir == domain.SortNone {
		c.mu.Lock()
		c.query.SortField, c.query.SortDirection = "", domain.SortNone
		c.mu.Unlock()
		return nil
	}
	if !Sortable(field) {
		return fmt.Errorf("%w: %s", ErrUnsortableField, field)
	}
	if dir != domain.SortAsc && dir != domain.SortDesc {
		return fmt.Errorf("%w: direction %q", ErrUnsortableField, dir)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.query.SortField, c.query.SortDirection = field, dir
	return nil
}

// Load fetches the page for the current query. A response that arrives
// after the query has changed is discarded. On failure the previous rows
// stay on screen next to the error.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	q := c.query
	c.loading++
	c.mu.Unlock()

	result, err := c.loader.List(ctx, q)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading--

	if q != c.query {
		c.logger.Debug("Discarding stale list response", zap.String("query", q.CacheKey()))
		return err
	}

	if err != nil {
		c.err = err
		return err
	}

	c.rows = result.Products
	c.total = result.TotalItems
	c.loaded = true
	c.err = nil
	c.version++
	return nil
}

func (c *Controller) backgroundLoad() {
	ctx, cancel := context.WithTimeout(c.ctx, c.loadTimeout)
	defer cancel()

	if err := c.Load(ctx); err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Warn("Background list load failed", zap.Error(err))
	}
}

// View returns the current page, sorted on the client unless the backend
// does the sorting
func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows := c.rows
	if !c.loader.ServerSort() {
		rows = SortProducts(rows, c.query.SortField, c.query.SortDirection, c.locale)
	} else {
		rows = append([]domain.Product(nil), rows...)
	}

	totalPages := TotalPages(c.total, c.query.PageSize)
	from, to := ShowingRange(c.query.Page, c.query.PageSize, len(rows), c.total)

	v := View{
		Query:       c.query,
		Rows:        rows,
		Total:       c.total,
		TotalPages:  totalPages,
		From:        from,
		To:          to,
		Pages:       PageWindow(c.query.Page, totalPages),
		HasPrevious: c.query.Page > 1,
		HasNext:     c.query.Page < totalPages,
		Loading:     c.loading > 0,
		Loaded:      c.loaded,
	}
	if c.err != nil {
		v.Error = apperror.Message(c.err)
	}
	if c.typed != nil {
		typed := *c.typed
		v.PendingSearch = &typed
	}
	return v
}

// Delete removes a product from the visible page at once and then asks
// the backend to delete it. If the backend refuses, the page is put back
// the way it was. On success the list is reloaded, stepping back a page
// when the last row of a later page went away.
func (c *Controller) Delete(ctx context.Context, idOrSlug string) (*domain.Product, error) {
	c.mu.Lock()
	snapshotRows, snapshotTotal := c.rows, c.total
	rows, total, target, err := OptimisticDelete(c.rows, c.total, idOrSlug)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.rows, c.total = rows, total
	c.version++
	optimistic := c.version
	c.mu.Unlock()

	if err := c.loader.Delete(ctx, target.Key()); err != nil {
		c.mu.Lock()
		// a newer page from the server wins over the snapshot
		if c.version == optimistic {
			c.rows, c.total = snapshotRows, snapshotTotal
			c.version++
		}
		c.mu.Unlock()

		c.logger.Info("Rolled back optimistic delete", zap.String("key", target.Key()), zap.Error(err))
		return nil, err
	}

	c.mu.Lock()
	if len(c.rows) == 0 && c.query.Page > 1 {
		c.query.Page--
	}
	c.mu.Unlock()

	if err := c.Load(ctx); err != nil {
		c.logger.Warn("Reload after delete failed", zap.Error(err))
	}
	return &target, nil
}
