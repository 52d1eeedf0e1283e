package metrics

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Summary is the JSON response for the metrics summary endpoint.
type Summary struct {
	HTTP      httpSummary   `json:"http"`
	Members   memberSummary `json:"members"`
	ResetFlow resetSummary  `json:"resetFlow"`
	RateLimit rateLimitInfo `json:"rateLimit"`
	Auth      authInfo      `json:"auth"`
	Events    eventsInfo    `json:"events"`
	DB        dbInfo        `json:"db"`
	Server    serverInfo    `json:"server"`
}

type httpSummary struct {
	TotalRequests float64 `json:"totalRequests"`
	ErrorRate     float64 `json:"errorRate"`
	P50Latency    float64 `json:"p50Latency"`
	P95Latency    float64 `json:"p95Latency"`
	P99Latency    float64 `json:"p99Latency"`
}

type memberSummary struct {
	Mutations float64 `json:"mutations"`
	Rejected  float64 `json:"rejected"`
}

type resetSummary struct {
	TokensIssued float64 `json:"tokensIssued"`
	Consumed     float64 `json:"consumed"`
	Failed       float64 `json:"failed"`
}

type rateLimitInfo struct {
	Rejections float64 `json:"rejections"`
}

type authInfo struct {
	Failures  float64 `json:"failures"`
	Successes float64 `json:"successes"`
}

type eventsInfo struct {
	Subscribers float64 `json:"subscribers"`
}

type dbInfo struct {
	TotalConns    float64 `json:"totalConns"`
	IdleConns     float64 `json:"idleConns"`
	AcquiredConns float64 `json:"acquiredConns"`
}

type serverInfo struct {
	StartTime     float64 `json:"startTime"`
	UptimeSeconds float64 `json:"uptimeSeconds"`
}

// ExpositionHandler serves the registry in Prometheus text format.
func (m *Metrics) ExpositionHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// SummaryHandler returns an http.HandlerFunc that serves a condensed JSON
// view of the live metrics.
func (m *Metrics) SummaryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m.handleSummary(w)
	}
}

func (m *Metrics) handleSummary(w http.ResponseWriter) {
	families, err := m.registry.Gather()
	if err != nil {
		http.Error(w, "failed to gather metrics", http.StatusInternalServerError)
		return
	}

	fam := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		fam[f.GetName()] = f
	}

	startTime := sumGauge(fam["rita_server_start_time_seconds"])
	summary := Summary{
		HTTP: httpSummary{
			TotalRequests: sumCounter(fam["rita_http_requests_total"]),
			ErrorRate:     computeErrorRate(fam["rita_http_requests_total"]),
			P50Latency:    histogramPercentile(fam["rita_http_request_duration_seconds"], 0.50),
			P95Latency:    histogramPercentile(fam["rita_http_request_duration_seconds"], 0.95),
			P99Latency:    histogramPercentile(fam["rita_http_request_duration_seconds"], 0.99),
		},
		Members: memberSummary{
			Mutations: sumCounterWithLabel(fam["rita_member_mutations_total"], "outcome", "success"),
			Rejected:  sumCounterWithLabel(fam["rita_member_mutations_total"], "outcome", "rejected"),
		},
		ResetFlow: resetSummary{
			TokensIssued: sumCounter(fam["rita_reset_tokens_issued_total"]),
			Consumed:     sumCounterWithLabel(fam["rita_reset_token_consumptions_total"], "outcome", "success"),
			Failed:       sumCounterWithLabel(fam["rita_reset_token_consumptions_total"], "outcome", "failure"),
		},
		RateLimit: rateLimitInfo{
			Rejections: sumCounter(fam["rita_ratelimit_rejections_total"]),
		},
		Auth: authInfo{
			Failures:  sumCounter(fam["rita_auth_failures_total"]),
			Successes: sumCounter(fam["rita_auth_successes_total"]),
		},
		Events: eventsInfo{
			Subscribers: sumGauge(fam["rita_sse_subscribers"]),
		},
		DB: dbInfo{
			TotalConns:    sumGauge(fam["rita_db_total_conns"]),
			IdleConns:     sumGauge(fam["rita_db_idle_conns"]),
			AcquiredConns: sumGauge(fam["rita_db_acquired_conns"]),
		},
		Server: serverInfo{
			StartTime:     startTime,
			UptimeSeconds: float64(time.Now().Unix()) - startTime,
		},
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(summary)
}

func sumCounter(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return total
}

func sumGauge(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		total += m.GetGauge().GetValue()
	}
	return total
}

func sumCounterWithLabel(f *dto.MetricFamily, label, value string) float64 {
	if f == nil {
		return 0
	}
	var total float64
	for _, m := range f.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == label && lp.GetValue() == value {
				total += m.GetCounter().GetValue()
				break
			}
		}
	}
	return total
}

// computeErrorRate returns the fraction of requests whose status code label
// starts with 5.
func computeErrorRate(f *dto.MetricFamily) float64 {
	if f == nil {
		return 0
	}
	var total, errors float64
	for _, m := range f.GetMetric() {
		v := m.GetCounter().GetValue()
		total += v
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "status_code" && len(lp.GetValue()) > 0 && lp.GetValue()[0] == '5' {
				errors += v
				break
			}
		}
	}
	if total == 0 {
		return 0
	}
	return errors / total
}

// histogramPercentile estimates a percentile from the merged buckets of all
// metrics in the family, interpolating linearly within the winning bucket.
func histogramPercentile(f *dto.MetricFamily, q float64) float64 {
	if f == nil {
		return 0
	}

	merged := make(map[float64]uint64)
	var count uint64
	for _, m := range f.GetMetric() {
		h := m.GetHistogram()
		count += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			merged[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}
	if count == 0 {
		return 0
	}

	bounds := make([]float64, 0, len(merged))
	for ub := range merged {
		bounds = append(bounds, ub)
	}
	sort.Float64s(bounds)

	target := q * float64(count)
	var prevBound float64
	var prevCount uint64
	for _, ub := range bounds {
		c := merged[ub]
		if float64(c) >= target {
			if math.IsInf(ub, 1) {
				return prevBound
			}
			bucketCount := c - prevCount
			if bucketCount == 0 {
				return ub
			}
			frac := (target - float64(prevCount)) / float64(bucketCount)
			return prevBound + (ub-prevBound)*frac
		}
		prevBound = ub
		prevCount = c
	}
	return prevBound
}
