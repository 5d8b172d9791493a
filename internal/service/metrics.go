package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	batchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamecontent_batch_items_total",
			Help: "Total number of processed batch items.",
		},
		[]string{"operation", "status"}, // status: success или вид ошибки
	)
	batchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamecontent_batch_duration_seconds",
			Help:    "Histogram of whole batch durations.",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600, 900},
		},
		[]string{"operation"},
	)
)
