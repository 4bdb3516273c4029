package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

type StatsProvider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// StatsUpdater exposes process counters over expvar. Deltas are
// serialized through a channel so callers never contend on the map.
type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan counterDelta
}

type counterDelta struct {
	name  string
	delta int64
}

func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:       expvar.NewMap("umlcollab-stats"),
		updateChan: make(chan counterDelta, 512),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.serveVars))

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return su
}

func (su *StatsUpdater) serveVars(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	snapshot := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		snapshot[kv.Key] = value
	})

	json.NewEncoder(w).Encode(snapshot)
}

func (su *StatsUpdater) applyDeltas() {
	for req := range su.updateChan {
		metric := su.vars.Get(req.name)
		if metric == nil {
			panic("unregistered metric: " + req.name)
		}

		metric.(*expvar.Int).Add(req.delta)
	}
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- counterDelta{name: name, delta: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.updateChan <- counterDelta{name: name, delta: -1}
}

// RegisterMetric must be called before the first Incr or Decr for a
// counter; applyDeltas panics on unknown names.
func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, expvar.NewInt(name))
}

func (su *StatsUpdater) Run() {
	go su.applyDeltas()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
}
