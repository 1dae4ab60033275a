package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/internal/ingest"
	"github.com/mohammed-shakir/digipin/internal/registry"
	"github.com/mohammed-shakir/digipin/internal/registry/memreg"
)

func ptr(f float64) *float64 { return &f }

func message(t *testing.T, offset int64, v any) *sarama.ConsumerMessage {
	t.Helper()
	var b []byte
	switch x := v.(type) {
	case string:
		b = []byte(x)
	default:
		var err error
		if b, err = json.Marshal(x); err != nil {
			t.Fatalf("marshal: %v", err)
		}
	}
	return &sarama.ConsumerMessage{
		Topic: "digipin-locations", Partition: 0, Offset: offset,
		Timestamp: time.Now().Add(-time.Second).UTC(), Value: b,
	}
}

func newRunner(t *testing.T, app Applier) (*Runner, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	cfg := Config{Enabled: true, DedupeSize: 16}
	return New(cfg, app, Options{Register: reg}), reg
}

func TestHandleMessage_UpsertDeleteAndIdempotency(t *testing.T) {
	svc := registry.NewService(memreg.New(), registry.Options{})
	r, _ := newRunner(t, svc)
	ctx := context.Background()

	up := ingest.Event{Version: 1, Op: ingest.OpUpsert, ID: "dak", Name: "Dak Bhawan", Lat: ptr(28.622788), Lon: ptr(77.213033)}
	if err := r.handleMessage(ctx, message(t, 1, up)); err != nil {
		t.Fatalf("handleMessage: %v", err)
	}
	loc, err := svc.Get(ctx, "dak")
	if err != nil || loc.Code != "39J49LL8T4" || loc.Version != 1 {
		t.Fatalf("after upsert loc=%+v err=%v", loc, err)
	}

	// replay of the same version is skipped
	if err := r.handleMessage(ctx, message(t, 2, up)); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if got := testutil.ToFloat64(r.ms.apply.WithLabelValues("skip_version")); got != 1 {
		t.Fatalf("skip_version=%v want 1", got)
	}

	moved := up
	moved.Version = 2
	moved.Lat, moved.Lon = ptr(12.9716), ptr(77.5946)
	if err := r.handleMessage(ctx, message(t, 3, moved)); err != nil {
		t.Fatalf("move: %v", err)
	}
	if loc, _ := svc.Get(ctx, "dak"); loc.Code != "4P3JK852C9" || loc.Version != 2 {
		t.Fatalf("after move loc=%+v", loc)
	}

	del := ingest.Event{Version: 3, Op: ingest.OpDelete, ID: "dak"}
	if err := r.handleMessage(ctx, message(t, 4, del)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "dak"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("after delete err=%v", err)
	}

	// deleting a missing id is not a failure
	gone := ingest.Event{Version: 1, Op: ingest.OpDelete, ID: "never"}
	if err := r.handleMessage(ctx, message(t, 5, gone)); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if got := testutil.ToFloat64(r.ms.apply.WithLabelValues("skip_missing")); got != 1 {
		t.Fatalf("skip_missing=%v want 1", got)
	}
}

func TestHandleMessage_StaleDeleteKeepsNewerRecord(t *testing.T) {
	svc := registry.NewService(memreg.New(), registry.Options{})
	r, _ := newRunner(t, svc)
	ctx := context.Background()

	// written outside the stream, so the dedupe cache has never seen it
	if _, err := svc.Upsert(ctx, "dak", model.LocationInput{Lat: 28.622788, Lon: 77.213033, Version: 5}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	del := ingest.Event{Version: 2, Op: ingest.OpDelete, ID: "dak"}
	if err := r.handleMessage(ctx, message(t, 1, del)); err != nil {
		t.Fatalf("stale delete: %v", err)
	}
	if loc, err := svc.Get(ctx, "dak"); err != nil || loc.Version != 5 {
		t.Fatalf("newer record lost: loc=%+v err=%v", loc, err)
	}
	if got := testutil.ToFloat64(r.ms.apply.WithLabelValues("skip_version")); got != 1 {
		t.Fatalf("skip_version=%v want 1", got)
	}

	del.Version = 6
	if err := r.handleMessage(ctx, message(t, 2, del)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, "dak"); !errors.Is(err, registry.ErrNotFound) {
		t.Fatalf("after newer delete err=%v", err)
	}
}

func TestHandleMessage_PoisonMessagesAreSkipped(t *testing.T) {
	r, _ := newRunner(t, &fakeApplier{})
	ctx := context.Background()

	if err := r.handleMessage(ctx, message(t, 1, "{not json")); err != nil {
		t.Fatalf("decode failure should not block the partition: %v", err)
	}
	bad := ingest.Event{Version: 1, Op: ingest.OpUpsert, ID: "x", Lat: ptr(51.5), Lon: ptr(-0.12)}
	if err := r.handleMessage(ctx, message(t, 2, bad)); err != nil {
		t.Fatalf("invalid event should not block the partition: %v", err)
	}
	if got := testutil.ToFloat64(r.ms.msgs.WithLabelValues("invalid")); got != 2 {
		t.Fatalf("invalid=%v want 2", got)
	}
}

func TestHandleMessage_StoreFailureIsRetried(t *testing.T) {
	app := &fakeApplier{err: errors.New("redis down")}
	r, _ := newRunner(t, app)
	ctx := context.Background()

	ev := ingest.Event{Version: 1, Op: ingest.OpDelete, ID: "a"}
	if err := r.handleMessage(ctx, message(t, 1, ev)); err == nil {
		t.Fatalf("expected store error to surface")
	}

	app.setErr(nil)
	if err := r.handleMessage(ctx, message(t, 1, ev)); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if got := app.deletes(); got != 2 {
		t.Fatalf("delete calls=%d want 2 (failed version must not be deduped)", got)
	}
}

func TestReadiness_FollowsAssignment(t *testing.T) {
	r, _ := newRunner(t, &fakeApplier{})
	if ok, _ := r.Readiness(); ok {
		t.Fatalf("runner should not be ready before assignment")
	}

	h := r.handler()
	sess := &fakeSession{claims: map[string][]int32{"digipin-locations": {0, 2}}}
	if err := h.Setup(sess); err != nil {
		t.Fatalf("Setup: %v", err)
	}
	ok, parts := r.Readiness()
	if !ok || len(parts) != 2 {
		t.Fatalf("ready=%v parts=%v", ok, parts)
	}

	if err := h.Cleanup(sess); err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if ok, _ := r.Readiness(); ok {
		t.Fatalf("runner should not be ready after revocation")
	}
}

func TestStart_DisabledIsNoop(t *testing.T) {
	r := New(Config{Enabled: false}, nil, Options{})
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("disabled Start: %v", err)
	}
	r.Stop()

	r = New(Config{Enabled: true}, &fakeApplier{}, Options{})
	if err := r.Start(context.Background()); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestVersionDedupe(t *testing.T) {
	d := newVersionDedupe(2)
	if !d.shouldApply("a", 2) || d.shouldApply("a", 2) || d.shouldApply("a", 1) {
		t.Fatalf("dedupe must only accept increasing versions")
	}
	d.forget("a", 1)
	if d.shouldApply("a", 2) {
		t.Fatalf("forget with an older version must not reset")
	}
	d.forget("a", 2)
	if !d.shouldApply("a", 2) {
		t.Fatalf("forget should allow a retry of the same version")
	}
}

type fakeApplier struct {
	mu   sync.Mutex
	err  error
	dels int
}

func (f *fakeApplier) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeApplier) deletes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dels
}

func (f *fakeApplier) Upsert(_ context.Context, id string, in model.LocationInput) (model.Location, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return model.Location{ID: id, Lat: in.Lat, Lon: in.Lon, Version: in.Version}, f.err
}

func (f *fakeApplier) DeleteVersion(context.Context, string, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dels++
	return f.err
}

type fakeSession struct {
	claims map[string][]int32
}

func (s *fakeSession) Claims() map[string][]int32                  { return s.claims }
func (s *fakeSession) MemberID() string                            { return "member-1" }
func (s *fakeSession) GenerationID() int32                         { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string)     {}
func (s *fakeSession) Commit()                                     {}
func (s *fakeSession) ResetOffset(string, int32, int64, string)    {}
func (s *fakeSession) MarkMessage(*sarama.ConsumerMessage, string) {}
func (s *fakeSession) Context() context.Context                    { return context.Background() }
