package repository

import (
	"github.com/prometheus/client_golang/prometheus"
)

var CacheLookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "todo_task_cache_lookups_total",
		Help: "Recent task list cache lookups by result",
	},
	[]string{"result"},
)

func init() {
	prometheus.MustRegister(CacheLookups)
}
