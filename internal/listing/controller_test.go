package listing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"catalog-admin/internal/apperror"
	"catalog-admin/internal/catalog"
	"catalog-admin/internal/catalog/catalogtest"
	"catalog-admin/internal/client"
	"catalog-admin/internal/domain"

	"go.uber.org/zap"
)

// fakeLoader serves a fixed product slice
type fakeLoader struct {
	mu        sync.Mutex
	products  []domain.Product
	listErr   error
	deleteErr error
	queries   []domain.ListQuery

	// when set, Delete signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func newFakeLoader(n int) *fakeLoader {
	f := &fakeLoader{}
	for i := 1; i <= n; i++ {
		f.products = append(f.products, domain.Product{ID: int64(i), Name: "p", Rating: "1.0"})
	}
	return f
}

func (f *fakeLoader) List(_ context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	if f.listErr != nil {
		return nil, f.listErr
	}

	start := min((q.Page-1)*q.PageSize, len(f.products))
	end := min(start+q.PageSize, len(f.products))
	rows := append([]domain.Product(nil), f.products[start:end]...)
	return &domain.ListResult{Products: rows, TotalItems: len(f.products)}, nil
}

func (f *fakeLoader) Delete(_ context.Context, id string) error {
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for i, p := range f.products {
		if p.Matches(id) {
			f.products = append(f.products[:i], f.products[i+1:]...)
			return nil
		}
	}
	return &apperror.NotFoundError{Identifier: id}
}

func (f *fakeLoader) ServerSort() bool { return false }

func TestController_PageAndSize(t *testing.T) {
	c := NewController(newFakeLoader(0))
	defer c.Close()

	c.SetPage(0)
	if c.Query().Page != 1 {
		t.Errorf("page = %d, want 1", c.Query().Page)
	}

	c.SetPage(3)
	if err := c.SetPageSize(15); !errors.Is(err, ErrInvalidPageSize) {
		t.Errorf("SetPageSize(15) error = %v, want ErrInvalidPageSize", err)
	}
	if c.Query().Page != 3 {
		t.Error("invalid page size should not reset the page")
	}

	if err := c.SetPageSize(20); err != nil {
		t.Fatalf("SetPageSize(20) returned error: %v", err)
	}
	if q := c.Query(); q.PageSize != 20 || q.Page != 1 {
		t.Errorf("query = %+v, want page 1 size 20", q)
	}
}

func TestController_ToggleSortCycle(t *testing.T) {
	c := NewController(newFakeLoader(0))
	defer c.Close()

	want := []domain.SortDirection{domain.SortAsc, domain.SortDesc, domain.SortNone, domain.SortAsc}
	for i, dir := range want {
		if err := c.ToggleSort("rating"); err != nil {
			t.Fatalf("ToggleSort returned error: %v", err)
		}
		if got := c.Query().SortDirection; got != dir {
			t.Errorf("step %d: direction = %q, want %q", i, got, dir)
		}
	}

	if err := c.ToggleSort("product_name"); err != nil {
		t.Fatal(err)
	}
	if q := c.Query(); q.SortField != "product_name" || q.SortDirection != domain.SortAsc {
		t.Errorf("switching field gave %+v", q)
	}

	if err := c.ToggleSort("password"); !errors.Is(err, ErrUnsortableField) {
		t.Errorf("ToggleSort(password) error = %v", err)
	}
}

func TestController_SetSort(t *testing.T) {
	c := NewController(newFakeLoader(0))
	defer c.Close()

	if err := c.SetSort("rating", domain.SortDesc); err != nil {
		t.Fatal(err)
	}
	if q := c.Query(); q.SortField != "rating" || q.SortDirection != domain.SortDesc {
		t.Errorf("query = %+v", q)
	}
	if err := c.SetSort("rating", "sideways"); err == nil {
		t.Error("bad direction accepted")
	}
	if err := c.SetSort("", domain.SortAsc); err != nil || c.Query().SortField != "" {
		t.Errorf("clearing sort: err %v, query %+v", err, c.Query())
	}
}

func TestController_SearchIsDebounced(t *testing.T) {
	c := NewController(newFakeLoader(0), WithDebounce(time.Hour))
	defer c.Close()
	c.SetPage(4)

	c.SetSearch("lap")
	c.SetSearch("laptop")

	if c.Query().Search != "" {
		t.Fatal("search applied before the debounce elapsed")
	}
	if v := c.View(); v.PendingSearch == nil || *v.PendingSearch != "laptop" {
		t.Errorf("pending search = %v, want laptop", v.PendingSearch)
	}

	c.FlushSearch()
	if q := c.Query(); q.Search != "laptop" || q.Page != 1 {
		t.Errorf("query after flush = %+v", q)
	}
	if c.View().PendingSearch != nil {
		t.Error("pending search should be cleared after flush")
	}

	c.ClearSearch()
	if c.Query().Search != "" {
		t.Error("ClearSearch left search text")
	}
}

func TestController_AutoLoadAfterDebounce(t *testing.T) {
	loader := newFakeLoader(3)
	c := NewController(loader, WithDebounce(10*time.Millisecond), WithAutoLoad(time.Second))
	defer c.Close()

	c.SetSearch("p")

	deadline := time.Now().Add(time.Second)
	for !c.View().Loaded {
		if time.Now().After(deadline) {
			t.Fatal("debounced search never loaded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if c.View().Query.Search != "p" {
		t.Error("loaded view does not carry the search")
	}
}

// blockingLoader holds List until released
type blockingLoader struct {
	*fakeLoader
	entered chan struct{}
	release chan struct{}
}

func (b *blockingLoader) List(ctx context.Context, q domain.ListQuery) (*domain.ListResult, error) {
	b.entered <- struct{}{}
	<-b.release
	return b.fakeLoader.List(ctx, q)
}

func TestController_DiscardsStaleResponse(t *testing.T) {
	loader := &blockingLoader{
		fakeLoader: newFakeLoader(25),
		entered:    make(chan struct{}),
		release:    make(chan struct{}),
	}
	c := NewController(loader)
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Load(context.Background()) }()

	<-loader.entered
	if !c.View().Loading {
		t.Error("view should report loading")
	}
	c.SetPage(2)
	close(loader.release)

	if err := <-done; err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if v := c.View(); v.Loaded || len(v.Rows) != 0 {
		t.Errorf("stale page was applied: %+v", v)
	}
}

func TestController_LoadErrorKeepsRows(t *testing.T) {
	loader := newFakeLoader(5)
	c := NewController(loader)
	defer c.Close()

	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	loader.mu.Lock()
	loader.listErr = &apperror.RequestError{Status: 500, Message: "Failed to fetch products."}
	loader.mu.Unlock()

	if err := c.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	v := c.View()
	if len(v.Rows) != 5 || v.Error != "Failed to fetch products." {
		t.Errorf("view = %d rows, error %q", len(v.Rows), v.Error)
	}
}

func TestController_DeleteRollsBackOnFailure(t *testing.T) {
	loader := newFakeLoader(3)
	loader.deleteErr = &apperror.RequestError{Status: 500, Message: "database unavailable"}
	loader.entered = make(chan struct{})
	loader.release = make(chan struct{})

	c := NewController(loader)
	defer c.Close()
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := c.Delete(context.Background(), "2")
		done <- err
	}()

	<-loader.entered
	v := c.View()
	if len(v.Rows) != 2 || v.Total != 2 {
		t.Errorf("optimistic view = %d rows, total %d; want 2, 2", len(v.Rows), v.Total)
	}
	for _, p := range v.Rows {
		if p.ID == 2 {
			t.Error("deleted row still visible")
		}
	}
	close(loader.release)

	if err := <-done; apperror.Message(err) != "database unavailable" {
		t.Errorf("Delete error = %v", err)
	}
	v = c.View()
	if got := ids(v.Rows); !equalIDs(got, []int64{1, 2, 3}) || v.Total != 3 {
		t.Errorf("after rollback rows = %v total %d", got, v.Total)
	}
}

func TestController_DeleteStepsBackFromEmptyPage(t *testing.T) {
	loader := newFakeLoader(11)
	c := NewController(loader)
	defer c.Close()
	c.SetPage(2)
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	deleted, err := c.Delete(context.Background(), "11")
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if deleted.ID != 11 {
		t.Errorf("deleted = %d, want 11", deleted.ID)
	}

	v := c.View()
	if v.Query.Page != 1 || v.Total != 10 || len(v.Rows) != 10 {
		t.Errorf("view after delete: page %d total %d rows %d", v.Query.Page, v.Total, len(v.Rows))
	}
}

func TestController_DeleteMissing(t *testing.T) {
	c := NewController(newFakeLoader(2))
	defer c.Close()
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	_, err := c.Delete(context.Background(), "99")
	var nf *apperror.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want NotFoundError", err)
	}
	if err.Error() != "Item with identifier 99 not found." {
		t.Errorf("message = %q", err.Error())
	}
	if c.View().Total != 2 {
		t.Error("state changed on missing delete")
	}
}

func TestController_AgainstCatalogBackend(t *testing.T) {
	backend := catalogtest.New()
	backend.Seed(25)
	srv := backend.Start(t)

	logger := zap.NewNop()
	svc := catalog.NewService(
		catalog.NewProductAPI(client.New(srv.URL, client.WithLogger(logger)), false),
		client.NewMemoryTokens(backend.Tokens()),
		catalog.NewQueryCache(0),
		logger,
	)

	c := NewController(svc, WithLogger(logger))
	defer c.Close()
	c.SetPage(3)
	if err := c.Load(context.Background()); err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	v := c.View()
	if v.From != 21 || v.To != 25 || v.Total != 25 || v.TotalPages != 3 {
		t.Errorf("showing %d to %d of %d (%d pages), want 21 to 25 of 25 (3 pages)", v.From, v.To, v.Total, v.TotalPages)
	}
	if v.HasNext || !v.HasPrevious {
		t.Errorf("HasNext=%v HasPrevious=%v on the last page", v.HasNext, v.HasPrevious)
	}

	if err := c.ToggleSort("product_name"); err != nil {
		t.Fatal(err)
	}
	if err := c.ToggleSort("product_name"); err != nil {
		t.Fatal(err)
	}
	if err := c.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	rows := c.View().Rows
	if rows[0].Name != "Product 25" || rows[len(rows)-1].Name != "Product 21" {
		t.Errorf("descending page = %s..%s", rows[0].Name, rows[len(rows)-1].Name)
	}

	key := rows[0].Key()
	if _, err := c.Delete(context.Background(), key); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if backend.Len() != 24 || c.View().Total != 24 {
		t.Errorf("after delete backend has %d, view total %d", backend.Len(), c.View().Total)
	}
}

func TestOptimisticDelete(t *testing.T) {
	slug := "desk-3"
	rows := []domain.Product{{ID: 1}, {ID: 2}, {ID: 3, Slug: &slug}}

	remaining, total, target, err := OptimisticDelete(rows, 30, "desk-3")
	if err != nil {
		t.Fatal(err)
	}
	if target.ID != 3 || total != 29 || !equalIDs(ids(remaining), []int64{1, 2}) {
		t.Errorf("got target %d total %d rows %v", target.ID, total, ids(remaining))
	}
	if len(rows) != 3 {
		t.Error("input rows were modified")
	}
}
