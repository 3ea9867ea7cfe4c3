package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/mistakeknot/taskdeck/internal/api"
	"github.com/mistakeknot/taskdeck/internal/task"
)

type fakeStatsGateway struct {
	stats api.Stats
	err   error
	calls int
}

func (g *fakeStatsGateway) Stats(ctx context.Context) (api.Stats, error) {
	g.calls++
	return g.stats, g.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFetchStatsAuthoritative(t *testing.T) {
	gw := &fakeStatsGateway{stats: api.Stats{Total: 5, Completed: 2, Pending: 3}}
	a := New(gw, quietLogger())

	if err := a.FetchStats(context.Background()); err != nil {
		t.Fatalf("FetchStats: %v", err)
	}
	st := a.State()
	if !st.Authoritative {
		t.Error("fetched stats not marked authoritative")
	}
	if st.Stats.Total != st.Stats.Completed+st.Stats.Pending {
		t.Errorf("total != completed+pending: %+v", st.Stats)
	}
}

func TestFetchStatsShapeErrorFallsBackToZeros(t *testing.T) {
	gw := &fakeStatsGateway{err: fmt.Errorf("dashboard stats: %w", api.ErrBadShape)}
	a := New(gw, quietLogger())
	a.ApplyOptimistic([]task.Task{{ID: "1", Completed: true}})

	if err := a.FetchStats(context.Background()); err == nil {
		t.Fatal("expected shape error")
	}
	st := a.State()
	if st.Stats != (api.Stats{}) {
		t.Errorf("stats = %+v, want zeros", st.Stats)
	}
	if st.ErrKind != api.KindShape || st.Err == "" {
		t.Errorf("error not recorded: kind=%s err=%q", st.ErrKind, st.Err)
	}
}

func TestFetchStatsAuthErrorClassified(t *testing.T) {
	gw := &fakeStatsGateway{err: &api.Error{Status: 401, Detail: "expired"}}
	a := New(gw, quietLogger())

	a.FetchStats(context.Background())
	if got := a.State().ErrKind; got != api.KindAuth {
		t.Errorf("kind = %s, want auth", got)
	}
}

func TestOptimisticInvariantHoldsForAnyList(t *testing.T) {
	a := New(&fakeStatsGateway{}, quietLogger())
	lists := [][]task.Task{
		nil,
		{{ID: "1"}},
		{{ID: "1", Completed: true}, {ID: "2"}, {ID: "3", Completed: true}},
	}
	for _, tasks := range lists {
		a.ApplyOptimistic(tasks)
		st := a.State()
		if st.Stats.Total != st.Stats.Completed+st.Stats.Pending {
			t.Errorf("total != completed+pending for %d tasks: %+v", len(tasks), st.Stats)
		}
		if st.Authoritative {
			t.Error("optimistic counts marked authoritative")
		}
	}
}

func TestOptimisticThenAuthoritative(t *testing.T) {
	gw := &fakeStatsGateway{stats: api.Stats{Total: 2, Completed: 1, Pending: 1}}
	a := New(gw, quietLogger())

	a.TasksChanged([]task.Task{{ID: "1", Completed: true}, {ID: "2"}, {ID: "3"}})
	if got := a.State().Stats.Total; got != 3 {
		t.Errorf("optimistic total = %d, want 3", got)
	}

	a.RefreshStats(context.Background())
	st := a.State()
	if !st.Authoritative || st.Stats.Total != 2 {
		t.Errorf("authoritative fetch did not replace optimistic counts: %+v", st)
	}
	if gw.calls != 1 {
		t.Errorf("gateway calls = %d, want 1", gw.calls)
	}
}

func TestNetworkErrorRecordsMessage(t *testing.T) {
	gw := &fakeStatsGateway{err: errors.New("dial tcp: connection refused")}
	a := New(gw, quietLogger())

	a.FetchStats(context.Background())
	st := a.State()
	if st.ErrKind != api.KindNetwork {
		t.Errorf("kind = %s, want network", st.ErrKind)
	}
	if st.Err == "" {
		t.Error("error message not recorded")
	}
}
