package doccache

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	st "github.com/unkn0wn-root/doccache/store"
)

type user struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Age  int      `json:"age"`
	Tags []string `json:"tags,omitempty"`
}

// fakeStore counts round trips per operation so tests can assert which calls
// the cache absorbed. Query ignores filters/orders (it records them for
// assertions) and applies only the limit; semantic query coverage lives with
// the store implementations.
type fakeStore struct {
	docs map[string]user

	gets, sets, updates, deletes, queries int

	failWith error // when set, every operation fails with it

	lastFilters []st.Filter
	lastOrders  []st.Order
	lastLimit   int
}

var _ st.Store[user] = (*fakeStore)(nil)

func newFakeStore() *fakeStore { return &fakeStore{docs: make(map[string]user)} }

func (f *fakeStore) Get(_ context.Context, _, id string) (user, bool, error) {
	f.gets++
	if f.failWith != nil {
		return user{}, false, f.failWith
	}
	u, ok := f.docs[id]
	return u, ok, nil
}

func (f *fakeStore) Set(_ context.Context, _, id string, doc user) error {
	f.sets++
	if f.failWith != nil {
		return f.failWith
	}
	f.docs[id] = doc
	return nil
}

func (f *fakeStore) Update(_ context.Context, _, id string, fields map[string]any) error {
	f.updates++
	if f.failWith != nil {
		return f.failWith
	}
	u, ok := f.docs[id]
	if !ok {
		return st.ErrNoDocument
	}
	// merge through the document's field mapping
	b, _ := json.Marshal(u)
	var m map[string]any
	_ = json.Unmarshal(b, &m)
	for k, v := range fields {
		m[k] = v
	}
	b, _ = json.Marshal(m)
	_ = json.Unmarshal(b, &u)
	f.docs[id] = u
	return nil
}

func (f *fakeStore) Delete(_ context.Context, _, id string) error {
	f.deletes++
	if f.failWith != nil {
		return f.failWith
	}
	delete(f.docs, id)
	return nil
}

func (f *fakeStore) Query(_ context.Context, _ string, filters []st.Filter, orders []st.Order, limit int) ([]user, error) {
	f.queries++
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.lastFilters, f.lastOrders, f.lastLimit = filters, orders, limit

	ids := make([]string, 0, len(f.docs))
	for id := range f.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]user, 0, len(ids))
	for _, id := range ids {
		out = append(out, f.docs[id])
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) Close(context.Context) error { return nil }

func userID(u user) string { return u.ID }

func newTestAccessor(t *testing.T, fs *fakeStore, optsOpt func(*Options[user])) Accessor[user] {
	t.Helper()
	opts := Options[user]{
		Collection: "users",
		Store:      fs,
		IDFunc:     userID,
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	a, err := New[user](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return a
}

func TestNewRequiredOptions(t *testing.T) {
	fs := newFakeStore()
	if _, err := New[user](Options[user]{Store: fs, IDFunc: userID}); err == nil {
		t.Fatalf("expected error without collection")
	}
	if _, err := New[user](Options[user]{Collection: "users", IDFunc: userID}); err == nil {
		t.Fatalf("expected error without store")
	}
	if _, err := New[user](Options[user]{Collection: "users", Store: fs}); err == nil {
		t.Fatalf("expected error without id func")
	}
}

func TestAddThenGetByIDServedFromCache(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	u := user{ID: "u1", Name: "A"}
	if err := a.Add(ctx, u); err != nil {
		t.Fatalf("Add: %v", err)
	}

	got, ok, err := a.GetByID(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("GetByID: ok=%v err=%v", ok, err)
	}
	if got.ID != "u1" || got.Name != "A" {
		t.Fatalf("GetByID returned %+v", got)
	}
	if fs.gets != 0 {
		t.Fatalf("expected no store round trip after Add, got %d", fs.gets)
	}
}

func TestAddWithoutIDFailsFast(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	err := a.Add(ctx, user{Name: "nameless"})
	if !errors.Is(err, ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
	if fs.sets != 0 {
		t.Fatalf("store must not be touched on missing id, sets=%d", fs.sets)
	}
}

func TestDeleteThenGetByIDTombstone(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	if err := a.Add(ctx, user{ID: "u1", Name: "A"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.DeleteByID(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	_, ok, err := a.GetByID(ctx, "u1")
	if err != nil || ok {
		t.Fatalf("expected not-found after delete, ok=%v err=%v", ok, err)
	}
	if fs.gets != 0 {
		t.Fatalf("tombstone should answer without a store round trip, gets=%d", fs.gets)
	}
}

func TestEditEvictsAndRefetches(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	if err := a.Add(ctx, user{ID: "u1", Name: "A"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.EditByID(ctx, "u1", map[string]any{"name": "B"}); err != nil {
		t.Fatalf("EditByID: %v", err)
	}

	got, ok, err := a.GetByID(ctx, "u1")
	if err != nil || !ok {
		t.Fatalf("GetByID after edit: ok=%v err=%v", ok, err)
	}
	if fs.gets != 1 {
		t.Fatalf("edit must force a fresh store round trip, gets=%d", fs.gets)
	}
	if got.Name != "B" {
		t.Fatalf("expected merged name B, got %+v", got)
	}

	// second read is cached again
	if _, ok, _ := a.GetByID(ctx, "u1"); !ok {
		t.Fatalf("expected hit on second read")
	}
	if fs.gets != 1 {
		t.Fatalf("refetched value should be cached, gets=%d", fs.gets)
	}
}

func TestReturnedDocumentsAreIndependentCopies(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	orig := user{ID: "u1", Name: "A", Tags: []string{"x"}}
	if err := a.Add(ctx, orig); err != nil {
		t.Fatalf("Add: %v", err)
	}

	// mutating what the caller handed in must not reach the cache
	orig.Tags[0] = "mutated"

	first, _, err := a.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if first.Tags[0] != "x" {
		t.Fatalf("cache absorbed caller mutation: %+v", first)
	}

	// mutating a returned document must not change later reads
	first.Name = "hacked"
	first.Tags[0] = "hacked"

	second, _, err := a.GetByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if second.Name != "A" || second.Tags[0] != "x" {
		t.Fatalf("cache aliased a returned document: %+v", second)
	}
}

func TestGetByIDCachesNotFound(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	if _, ok, err := a.GetByID(ctx, "ghost"); err != nil || ok {
		t.Fatalf("expected miss, ok=%v err=%v", ok, err)
	}
	if _, ok, err := a.GetByID(ctx, "ghost"); err != nil || ok {
		t.Fatalf("expected cached miss, ok=%v err=%v", ok, err)
	}
	if fs.gets != 1 {
		t.Fatalf("not-found must be cached after one round trip, gets=%d", fs.gets)
	}
}

func TestGetByCachesResultsAndAlwaysReturnsSlice(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	fs.docs["u1"] = user{ID: "u1", Name: "A", Age: 30}
	fs.docs["u2"] = user{ID: "u2", Name: "B", Age: 40}

	docs, err := a.GetBy(ctx, Descriptor{Where: map[string]any{"age": 30}})
	if err != nil {
		t.Fatalf("GetBy: %v", err)
	}
	if docs == nil {
		t.Fatalf("GetBy must return a slice, got nil")
	}
	if len(fs.lastFilters) != 1 || fs.lastFilters[0] != st.Eq("age", 30) {
		t.Fatalf("unexpected translated filters %v", fs.lastFilters)
	}

	// results are now cached by id
	if _, ok, _ := a.GetByID(ctx, "u1"); !ok {
		t.Fatalf("query result not cached")
	}
	if fs.gets != 0 {
		t.Fatalf("expected cache hit after GetBy, gets=%d", fs.gets)
	}
}

func TestGetByRejectsBadShapes(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	_, err := a.GetBy(ctx, Descriptor{OrderBy: 42})
	var qe *QueryShapeError
	if !errors.As(err, &qe) {
		t.Fatalf("expected QueryShapeError, got %v", err)
	}
	if fs.queries != 0 {
		t.Fatalf("malformed descriptor must not reach the store, queries=%d", fs.queries)
	}
}

func TestGetOne(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	if _, ok, err := a.GetOne(ctx, Descriptor{Where: map[string]any{"name": "A"}}); err != nil || ok {
		t.Fatalf("expected no match, ok=%v err=%v", ok, err)
	}

	fs.docs["u1"] = user{ID: "u1", Name: "A"}
	got, ok, err := a.GetOne(ctx, Descriptor{Where: map[string]any{"name": "A"}})
	if err != nil || !ok {
		t.Fatalf("GetOne: ok=%v err=%v", ok, err)
	}
	if got.ID != "u1" {
		t.Fatalf("GetOne returned %+v", got)
	}
	if fs.lastLimit != 1 {
		t.Fatalf("GetOne must force limit 1, store saw %d", fs.lastLimit)
	}
}

func TestGetAllRepopulatesPartition(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	if err := a.Add(ctx, user{ID: "u1", Name: "A"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.DeleteByID(ctx, "u1"); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}

	// the document reappears behind the accessor's back
	fs.docs["u1"] = user{ID: "u1", Name: "back"}
	fs.docs["u2"] = user{ID: "u2", Name: "B"}

	docs, err := a.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("GetAll returned %d docs", len(docs))
	}

	// the u1 tombstone is gone; both ids served from the rebuilt partition
	gets := fs.gets
	if got, ok, _ := a.GetByID(ctx, "u1"); !ok || got.Name != "back" {
		t.Fatalf("expected repopulated u1, ok=%v got=%+v", ok, got)
	}
	if _, ok, _ := a.GetByID(ctx, "u2"); !ok {
		t.Fatalf("expected repopulated u2")
	}
	if fs.gets != gets {
		t.Fatalf("GetAll must fill the cache, extra gets=%d", fs.gets-gets)
	}
}

func TestClearCache(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	if err := a.Add(ctx, user{ID: "u1", Name: "A"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := a.Add(ctx, user{ID: "u2", Name: "B"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	t.Run("single_key", func(t *testing.T) {
		a.ClearCache("u1")
		if _, ok, _ := a.GetByID(ctx, "u1"); !ok {
			t.Fatalf("u1 should refetch fine")
		}
		if fs.gets != 1 {
			t.Fatalf("u1 must refetch from store, gets=%d", fs.gets)
		}
		if _, ok, _ := a.GetByID(ctx, "u2"); !ok {
			t.Fatalf("u2 missing")
		}
		if fs.gets != 1 {
			t.Fatalf("u2 must stay cached, gets=%d", fs.gets)
		}
	})

	t.Run("whole_partition", func(t *testing.T) {
		base := fs.gets
		a.ClearCache()
		if _, ok, _ := a.GetByID(ctx, "u1"); !ok {
			t.Fatalf("u1 missing after clear")
		}
		if _, ok, _ := a.GetByID(ctx, "u2"); !ok {
			t.Fatalf("u2 missing after clear")
		}
		if fs.gets != base+2 {
			t.Fatalf("both ids must refetch after full clear, gets=%d base=%d", fs.gets, base)
		}
	})
}

func TestStoreErrorLeavesCacheUntouched(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, nil)

	if err := a.Add(ctx, user{ID: "u1", Name: "A"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	boom := errors.New("store down")
	fs.failWith = boom

	if err := a.EditByID(ctx, "u1", map[string]any{"name": "B"}); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if err := a.DeleteByID(ctx, "u1"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}

	// the entry was neither evicted nor tombstoned
	fs.failWith = nil
	got, ok, err := a.GetByID(ctx, "u1")
	if err != nil || !ok || got.Name != "A" {
		t.Fatalf("cache should be untouched after failures, ok=%v err=%v got=%+v", ok, err, got)
	}
	if fs.gets != 0 {
		t.Fatalf("expected cache hit, gets=%d", fs.gets)
	}
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	fs := newFakeStore()
	a := newTestAccessor(t, fs, func(o *Options[user]) { o.DisableCache = true })

	if a.Cached() {
		t.Fatalf("Cached should report false")
	}
	if err := a.Add(ctx, user{ID: "u1", Name: "A"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, ok, err := a.GetByID(ctx, "u1"); err != nil || !ok {
			t.Fatalf("GetByID: ok=%v err=%v", ok, err)
		}
	}
	if fs.gets != 2 {
		t.Fatalf("every read must hit the store when caching is off, gets=%d", fs.gets)
	}
	a.ClearCache() // no-op, must not panic
}
