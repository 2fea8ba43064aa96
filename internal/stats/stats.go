// Package stats exposes process counters over expvar.
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

type StatsUpdater struct {
	vars       *expvar.Map
	updateChan chan metricsUpdateReq
	done       chan struct{}
}

type metricsUpdateReq struct {
	name  string
	value int64
}

// NewStatsUpdater registers the expvar handler on mux and starts with
// an Uptime metric.
func NewStatsUpdater(mux *http.ServeMux) *StatsUpdater {
	su := &StatsUpdater{
		vars:       expvar.NewMap("parley-stats"),
		updateChan: make(chan metricsUpdateReq, 512),
		done:       make(chan struct{}),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(su.expvarHandler))

	startTime := time.Now()
	su.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return su
}

func (su *StatsUpdater) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	expvarData := make(map[string]any)
	su.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

func (su *StatsUpdater) RegisterMetric(name string) {
	su.vars.Set(name, new(expvar.Int))
}

func (su *StatsUpdater) Incr(name string) {
	su.updateChan <- metricsUpdateReq{name: name, value: 1}
}

func (su *StatsUpdater) Decr(name string) {
	su.updateChan <- metricsUpdateReq{name: name, value: -1}
}

func (su *StatsUpdater) Run() {
	go func() {
		for req := range su.updateChan {
			metric, ok := su.vars.Get(req.name).(*expvar.Int)
			if !ok {
				// unregistered metric, drop rather than blow up the loop
				continue
			}
			metric.Add(req.value)
		}
		close(su.done)
	}()
}

func (su *StatsUpdater) Stop() {
	close(su.updateChan)
	<-su.done
}
