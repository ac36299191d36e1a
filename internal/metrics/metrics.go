package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_total", Help: "Count of price bars ingested"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Classified signals by direction"},
		[]string{"symbol", "direction"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Order intents submitted"},
		[]string{"symbol", "action"},
	)
	EmergencyStopsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "emergency_stops_total", Help: "Emergency stop activations"},
	)
	SizingRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "sizing_rejections_total", Help: "Entries suppressed because the computed size rounded to zero"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(BarsTotal, SignalsTotal, OrdersTotal, EmergencyStopsTotal, SizingRejectionsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
