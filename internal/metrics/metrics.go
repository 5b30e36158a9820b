package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	documentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagealign",
			Name:      "documents_processed_total",
			Help:      "Documents processed by outcome (mapped, skipped, failed)",
		},
		[]string{"outcome"},
	)

	documentsByConfidence = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagealign",
			Name:      "documents_confidence_total",
			Help:      "Mapped documents by consensus confidence tier",
		},
		[]string{"confidence"},
	)

	samplesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagealign",
			Name:      "samples_total",
			Help:      "Page samples by result (detected, nodetection, render_failed)",
		},
		[]string{"result"},
	)

	renderLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pagealign",
			Name:      "page_render_duration_seconds",
			Help:      "Duration of page rasterization",
			Buckets:   prometheus.DefBuckets,
		},
	)

	ocrLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pagealign",
			Name:      "ocr_duration_seconds",
			Help:      "Duration of OCR recognition per page",
			Buckets:   prometheus.DefBuckets,
		},
	)

	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagealign",
			Name:      "provider_requests_total",
			Help:      "Total review LLM requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pagealign",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of review LLM requests by provider and model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	reviewCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pagealign",
			Name:      "review_cache_total",
			Help:      "Review LLM cache lookups by result (hit, miss)",
		},
		[]string{"result"},
	)
)

// Init registers collectors.
func Init() {
	prometheus.MustRegister(documentsProcessed, documentsByConfidence, samplesTotal,
		renderLatency, ocrLatency, providerReqs, providerLatency, reviewCacheHits)
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func IncDocument(outcome string)       { documentsProcessed.WithLabelValues(outcome).Inc() }
func IncConfidence(confidence string)  { documentsByConfidence.WithLabelValues(confidence).Inc() }
func IncSample(result string)          { samplesTotal.WithLabelValues(result).Inc() }
func ObserveRender(dur time.Duration)  { renderLatency.Observe(dur.Seconds()) }
func ObserveOCR(dur time.Duration)     { ocrLatency.Observe(dur.Seconds()) }
func IncCacheLookup(result string)     { reviewCacheHits.WithLabelValues(result).Inc() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}
