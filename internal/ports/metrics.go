package ports

import "github.com/prometheus/client_golang/prometheus"

var portsInUse = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "scribed_ports_in_use",
		Help: "Number of ports currently claimed by bot instances.",
	},
)

func init() {
	prometheus.MustRegister(portsInUse)
}
