package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julianstephens/dietline/internal/models"
	"github.com/julianstephens/dietline/internal/order"
)

type fakeFleet struct {
	snaps     map[string]order.Snapshot
	cancelErr error
	cancelled []string
}

func (f *fakeFleet) Snapshots() []order.Snapshot {
	out := make([]order.Snapshot, 0, len(f.snaps))
	for _, s := range f.snaps {
		out = append(out, s)
	}
	return out
}

func (f *fakeFleet) Snapshot(id string) (order.Snapshot, bool) {
	s, ok := f.snaps[id]
	return s, ok
}

func (f *fakeFleet) Cancel(_ context.Context, id string) (order.Snapshot, error) {
	if _, ok := f.snaps[id]; !ok {
		return order.Snapshot{}, order.ErrUnknownOrder
	}
	if f.cancelErr != nil {
		return f.snaps[id], f.cancelErr
	}
	f.cancelled = append(f.cancelled, id)
	s := order.Snapshot{OrderID: id, Condition: order.ConditionCancelled, Status: models.StatusCancelled}
	f.snaps[id] = s
	return s, nil
}

func newFleet() *fakeFleet {
	return &fakeFleet{snaps: map[string]order.Snapshot{
		"ord-1": {OrderID: "ord-1", Condition: order.ConditionActive, Status: models.StatusActive, Stage: models.StagePreparing},
	}}
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := do(t, NewHandler(newFleet()).Router(), http.MethodGet, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestListAndStatus(t *testing.T) {
	h := NewHandler(newFleet()).Router()

	rec := do(t, h, http.MethodGet, "/orders")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /orders status = %d", rec.Code)
	}
	var list struct {
		Orders []order.Snapshot `json:"orders"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Orders) != 1 || list.Orders[0].Stage != models.StagePreparing {
		t.Errorf("orders = %+v", list.Orders)
	}

	rec = do(t, h, http.MethodGet, "/orders/ord-1/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	var snap order.Snapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.OrderID != "ord-1" || snap.Condition != order.ConditionActive {
		t.Errorf("snapshot = %+v", snap)
	}

	rec = do(t, h, http.MethodGet, "/orders/missing/status")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown order status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestCancel(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		err      error
		wantCode int
	}{
		{name: "success", id: "ord-1", wantCode: http.StatusOK},
		{name: "unknown", id: "nope", wantCode: http.StatusNotFound},
		{name: "already delivered", id: "ord-1", err: order.ErrAlreadyCompleted, wantCode: http.StatusConflict},
		{name: "in flight", id: "ord-1", err: order.ErrCancelInFlight, wantCode: http.StatusConflict},
		{name: "service rejected", id: "ord-1", err: errors.Join(order.ErrCommand, errors.New("502")), wantCode: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFleet()
			f.cancelErr = tt.err
			rec := do(t, NewHandler(f).Router(), http.MethodPost, "/orders/"+tt.id+"/cancel")
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestCancelRequiresPost(t *testing.T) {
	rec := do(t, NewHandler(newFleet()).Router(), http.MethodGet, "/orders/ord-1/cancel")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestServerShutsDownWithContext(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := NewServer(ln.Addr().String(), newFleet())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	res, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Errorf("status = %d", res.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve() did not return after cancel")
	}
}
