package lineage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"reflect"
	"slices"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/routes"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize config: %v", err)
	}
	return cfg
}

// id returns a uuid whose bytes sort by n.
func id(n byte) uuid.UUID {
	var u uuid.UUID
	u[15] = n
	return u
}

func derived(seed uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(namespace, seed[:])
}

func node(item, doc byte, title string, prior *uuid.UUID) Node {
	return Node{
		ItemID:     id(item),
		DocumentID: id(100 + doc),
		MeetingID:  id(200 + doc),
		Title:      title,
		RecordDate: time.Date(2024, 1, int(doc), 0, 0, 0, 0, time.UTC),
		PriorID:    prior,
	}
}

func TestComputeGroupsAcrossDocuments(t *testing.T) {
	place := id(250)
	nodes := []Node{
		node(3, 1, "Rezoning of 450 Oak Street parcel to mixed use", nil),
		node(1, 2, "Rezoning of 450 Oak Street parcel to mixed use district", nil),
		node(2, 3, "Rezoning 450 Oak Street parcel mixed use", nil),
		node(4, 1, "Library roof replacement bid award", nil),
		node(5, 2, "Fire station staffing plan", nil),
	}

	groups := Compute(place, nodes, testConfig(t))

	if len(groups) != 1 {
		t.Fatalf("groups: got %d, want 1", len(groups))
	}
	g := groups[0]
	if len(g.Members) != 3 || g.DocumentCount != 3 {
		t.Fatalf("group: got %d members over %d documents", len(g.Members), g.DocumentCount)
	}
	if g.Members[0].ItemID != id(1) {
		t.Errorf("members should be ordered by item id, got first %s", g.Members[0].ItemID)
	}
	if want := derived(id(1)); g.LineageID != want {
		t.Errorf("lineage id: got %s, want UUIDv5 of smallest member %s", g.LineageID, want)
	}
	if g.Confidence != 1 || g.LowConfidence {
		t.Errorf("confidence: got %v low=%v", g.Confidence, g.LowConfidence)
	}
	if g.PlaceID != place {
		t.Errorf("place: got %s", g.PlaceID)
	}
}

func TestComputeDeterministic(t *testing.T) {
	cfg := testConfig(t)
	nodes := []Node{
		node(1, 1, "Parking garage design", nil),
		node(2, 2, "Parking garage design downtown", nil),
		node(3, 3, "Annual budget adoption fiscal year 2025", nil),
		node(4, 4, "Annual budget adoption fiscal year 2026", nil),
		node(5, 5, "Stormwater utility rate study", nil),
		node(6, 6, "Stormwater utility rate study update", nil),
		node(7, 7, "Sidewalk repair program", nil),
	}

	first := Compute(id(250), nodes, cfg)
	if len(first) != 3 {
		t.Fatalf("groups: got %d, want 3", len(first))
	}

	for range 5 {
		shuffled := slices.Clone(nodes)
		rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		if again := Compute(id(250), shuffled, cfg); !reflect.DeepEqual(first, again) {
			t.Fatalf("recompute differs:\nfirst: %+v\nagain: %+v", first, again)
		}
	}

	// A second recompute sees the first result as prior ids and keeps them.
	prior := make(map[uuid.UUID]uuid.UUID)
	for _, g := range first {
		for _, m := range g.Members {
			prior[m.ItemID] = g.LineageID
		}
	}
	withPrior := slices.Clone(nodes)
	for i := range withPrior {
		if p, ok := prior[withPrior[i].ItemID]; ok {
			withPrior[i].PriorID = &p
		}
	}
	if again := Compute(id(250), withPrior, cfg); !reflect.DeepEqual(first, again) {
		t.Fatalf("recompute with prior ids differs:\nfirst: %+v\nagain: %+v", first, again)
	}
}

func TestComputeBridgeMerge(t *testing.T) {
	x, y := id(0xaa), id(0xbb)
	nodes := []Node{
		node(1, 1, "Parking garage design", &x),
		node(2, 2, "Parking garage design downtown", &x),
		node(3, 3, "Parking garage design downtown phase two", &y),
		node(4, 4, "Parking garage design downtown phase two bids", &y),
	}

	groups := Compute(id(250), nodes, testConfig(t))

	if len(groups) != 1 {
		t.Fatalf("groups: got %d, want 1", len(groups))
	}
	if groups[0].LineageID != x {
		t.Errorf("lineage id: got %s, want smallest prior %s", groups[0].LineageID, x)
	}
	if len(groups[0].Members) != 4 {
		t.Errorf("members: got %d, want 4", len(groups[0].Members))
	}
}

func TestComputeContestedPriorID(t *testing.T) {
	x := id(0xaa)
	nodes := []Node{
		node(1, 1, "Parking garage design", &x),
		node(2, 2, "Parking garage design downtown", nil),
		node(3, 3, "Stormwater utility rate study", &x),
		node(4, 4, "Stormwater utility rate study update", nil),
	}

	groups := Compute(id(250), nodes, testConfig(t))

	if len(groups) != 2 {
		t.Fatalf("groups: got %d, want 2", len(groups))
	}
	if groups[0].LineageID != x {
		t.Errorf("group with smallest member: got %s, want %s", groups[0].LineageID, x)
	}
	if want := derived(id(3)); groups[1].LineageID != want {
		t.Errorf("other group: got %s, want new id %s", groups[1].LineageID, want)
	}
}

func TestComputeLowConfidence(t *testing.T) {
	nodes := []Node{
		node(1, 1, "Annual budget adoption fiscal year 2025", nil),
		node(2, 2, "Annual budget adoption fiscal year 2026", nil),
	}

	cfg := testConfig(t)
	groups := Compute(id(250), nodes, cfg)
	if len(groups) != 1 || groups[0].LowConfidence {
		t.Fatalf("default threshold: got %+v", groups)
	}
	if groups[0].Confidence >= 1 || groups[0].Confidence < cfg.EdgeThreshold {
		t.Errorf("confidence: got %v", groups[0].Confidence)
	}

	cfg.MinConfidence = 0.99
	groups = Compute(id(250), nodes, cfg)
	if !groups[0].LowConfidence {
		t.Errorf("confidence %v below 0.99 should be flagged", groups[0].Confidence)
	}
}

func TestComputeSparse(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name  string
		nodes []Node
	}{
		{"no items", nil},
		{"single item", []Node{node(1, 1, "Parking garage design", nil)}},
		{"one document", []Node{
			node(1, 1, "Parking garage design", nil),
			node(2, 1, "Parking garage design downtown", nil),
		}},
		{"no similar titles", []Node{
			node(1, 1, "Parking garage design", nil),
			node(2, 2, "Library roof replacement", nil),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			groups := Compute(id(250), tt.nodes, cfg)
			if groups == nil || len(groups) != 0 {
				t.Errorf("got %+v, want empty non-nil set", groups)
			}
		})
	}
}

func TestComputeDateWindow(t *testing.T) {
	cfg := testConfig(t)
	cfg.DateWindowDays = 1

	nodes := []Node{
		node(1, 1, "Parking garage design", nil),
		node(2, 9, "Parking garage design downtown", nil),
	}
	if groups := Compute(id(250), nodes, cfg); len(groups) != 0 {
		t.Errorf("items eight days apart should not link with a one day window: %+v", groups)
	}
}

type fakeStore struct {
	nodes    []Node
	replaced [][]Group
	block    chan struct{}
	entered  chan struct{}
	lastRun  *time.Time
}

func (f *fakeStore) Nodes(ctx context.Context, _ uuid.UUID) ([]Node, error) {
	if f.block != nil {
		close(f.entered)
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.nodes, nil
}

func (f *fakeStore) Replace(_ context.Context, _ uuid.UUID, groups []Group, at time.Time) error {
	f.replaced = append(f.replaced, groups)
	f.lastRun = &at
	return nil
}

func (f *fakeStore) LastRun(context.Context, uuid.UUID) (*time.Time, error) { return f.lastRun, nil }

func (f *fakeStore) Find(context.Context, uuid.UUID) (*View, error)    { return nil, ErrNotFound }
func (f *fakeStore) ForItem(context.Context, uuid.UUID) (*View, error) { return nil, ErrNotFound }
func (f *fakeStore) ForDocument(context.Context, uuid.UUID) ([]View, error) {
	return nil, nil
}

type fakeLocker struct {
	held     bool
	released int
}

func (f *fakeLocker) TryLock(context.Context) (func(context.Context) error, error) {
	if f.held {
		return nil, ErrRecomputeInProgress
	}
	return func(context.Context) error {
		f.released++
		return nil
	}, nil
}

func newTestEngine(t *testing.T, store Store, locker Locker) *engine {
	return newEngine(testConfig(t), store, locker, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRecomputePublishesSnapshot(t *testing.T) {
	store := &fakeStore{nodes: []Node{
		node(1, 1, "Parking garage design", nil),
		node(2, 2, "Parking garage design downtown", nil),
	}}
	locker := &fakeLocker{}
	e := newTestEngine(t, store, locker)
	place := id(250)

	if e.Current(place) != nil {
		t.Fatal("no snapshot expected before the first recompute")
	}

	snap, err := e.Recompute(context.Background(), place)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	if e.Current(place) != snap {
		t.Error("Current should return the published snapshot")
	}
	if g, ok := snap.Lookup(id(2)); !ok || len(g.Members) != 2 {
		t.Errorf("lookup: got %+v, %v", g, ok)
	}
	if len(store.replaced) != 1 || len(store.replaced[0]) != 1 {
		t.Errorf("replace calls: got %+v", store.replaced)
	}
	if locker.released != 1 {
		t.Errorf("lock released %d times, want 1", locker.released)
	}
	if sum := snap.Summary(); sum.Groups != 1 || sum.Members != 2 {
		t.Errorf("summary: got %+v", sum)
	}
}

func TestComputedAtSurvivesRestart(t *testing.T) {
	store := &fakeStore{nodes: []Node{node(1, 1, "Parking garage design", nil)}}
	place := id(250)

	first := newTestEngine(t, store, &fakeLocker{})
	if at, err := first.ComputedAt(context.Background(), place); err != nil || at != nil {
		t.Fatalf("before any recompute: got %v, %v", at, err)
	}

	snap, err := first.Recompute(context.Background(), place)
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}

	restarted := newTestEngine(t, store, &fakeLocker{})
	if restarted.Current(place) != nil {
		t.Fatal("a new process holds no snapshot")
	}
	at, err := restarted.ComputedAt(context.Background(), place)
	if err != nil {
		t.Fatalf("ComputedAt: %v", err)
	}
	if at == nil || !at.Equal(snap.ComputedAt) {
		t.Errorf("computed at: got %v, want %v", at, snap.ComputedAt)
	}
}

func TestRecomputeSparseIsEmpty(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(t, store, &fakeLocker{})

	snap, err := e.Recompute(context.Background(), id(250))
	if err != nil {
		t.Fatalf("Recompute: %v", err)
	}
	if len(snap.Groups) != 0 {
		t.Errorf("groups: got %d, want 0", len(snap.Groups))
	}
	if len(store.replaced) != 1 {
		t.Errorf("stale groups should be cleared, replace calls: %d", len(store.replaced))
	}
}

func TestRecomputeRejectsWhenLockHeld(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(t, store, &fakeLocker{held: true})

	_, err := e.Recompute(context.Background(), id(250))
	if !errors.Is(err, ErrRecomputeInProgress) {
		t.Fatalf("error: got %v, want ErrRecomputeInProgress", err)
	}
	if len(store.replaced) != 0 {
		t.Error("store should not be written without the lock")
	}
}

func TestRecomputeRejectsConcurrentCaller(t *testing.T) {
	store := &fakeStore{block: make(chan struct{}), entered: make(chan struct{})}
	e := newTestEngine(t, store, &fakeLocker{})

	done := make(chan error, 1)
	go func() {
		_, err := e.Recompute(context.Background(), id(250))
		done <- err
	}()
	<-store.entered

	if _, err := e.Recompute(context.Background(), id(251)); !errors.Is(err, ErrRecomputeInProgress) {
		t.Errorf("concurrent recompute: got %v, want ErrRecomputeInProgress", err)
	}

	close(store.block)
	if err := <-done; err != nil {
		t.Fatalf("first recompute: %v", err)
	}
}

func TestHandlerRoutes(t *testing.T) {
	e := newTestEngine(t, &fakeStore{}, &fakeLocker{})
	h := NewHandler(e, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	routes.Register(mux, h.Routes()...)

	tests := []struct {
		path string
		want int
	}{
		{"/lineage/" + id(1).String(), http.StatusNotFound},
		{"/lineage/not-a-uuid", http.StatusBadRequest},
		{"/items/" + id(1).String() + "/lineage", http.StatusNotFound},
		{"/documents/" + id(101).String() + "/lineage", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.want {
				t.Errorf("status: got %d, want %d", rec.Code, tt.want)
			}
		})
	}
}
