package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamecontent_ai_requests_total",
			Help: "Total number of requests to generation vendors.",
		},
		[]string{"provider", "model", "status"}, // status: success или вид ошибки
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamecontent_ai_request_duration_seconds",
			Help:    "Histogram of vendor request durations.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60, 90, 120},
		},
		[]string{"provider", "model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamecontent_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"provider", "model", "estimated"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gamecontent_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 20),
		},
		[]string{"provider", "model", "estimated"},
	)
	imageFallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamecontent_image_fallbacks_total",
			Help: "Number of times image generation moved on to a fallback path.",
		},
		[]string{"from_model", "kind"},
	)
)

func observeRequest(provider, model, status string, seconds float64) {
	aiRequestsTotal.With(prometheus.Labels{"provider": provider, "model": model, "status": status}).Inc()
	aiRequestDuration.With(prometheus.Labels{"provider": provider, "model": model}).Observe(seconds)
}

func observeTokens(provider, model string, usage Usage) {
	if usage.TotalTokens() == 0 {
		return
	}
	estimated := "false"
	if usage.Estimated {
		estimated = "true"
	}
	labels := prometheus.Labels{"provider": provider, "model": model, "estimated": estimated}
	aiPromptTokens.With(labels).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.With(labels).Observe(float64(usage.CompletionTokens))
}
