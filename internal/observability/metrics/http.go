package metrics

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

type requestKey struct {
	handler string
	method  string
	code    string
}

type labelKey struct {
	name  string
	label string
}

type histogram struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

// collector is a hand-rolled Prometheus-text registry. Request counters and
// latency histograms come from the HTTP middleware; the labelled counters
// track interpreter outcomes (parses by intent, transfers by status).
type collector struct {
	mu       sync.Mutex
	requests map[requestKey]uint64
	counters map[labelKey]uint64
	latency  map[requestKey]*histogram
}

var reg = &collector{
	requests: make(map[requestKey]uint64),
	counters: make(map[labelKey]uint64),
	latency:  make(map[requestKey]*histogram),
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(handler, method string, status int, duration time.Duration) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	key := requestKey{handler: handler, method: method, code: strconv.Itoa(status)}
	reg.requests[key]++

	latKey := requestKey{handler: handler, method: method}
	hist := reg.latency[latKey]
	if hist == nil {
		hist = newHistogram()
		reg.latency[latKey] = hist
	}
	hist.observe(duration.Seconds())
}

// ObserveParse counts one parsed command by resolved intent.
func ObserveParse(intent string) {
	incr("nlte_commands_parsed_total", "intent", intent)
}

// ObserveTransferOutcome counts one scheduled transfer reaching a status.
func ObserveTransferOutcome(status string) {
	incr("nlte_transfers_total", "status", status)
}

func incr(name, labelName, labelValue string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.counters[labelKey{name: name, label: labelName + "=" + labelValue}]++
}

func newHistogram() *histogram {
	buckets := []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) observe(value float64) {
	h.count++
	h.sum += value
	for idx, bound := range h.buckets {
		if value <= bound {
			for i := idx; i < len(h.counts); i++ {
				h.counts[i]++
			}
			break
		}
	}
}

// Handler exposes the registry in Prometheus text exposition format.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_, _ = fmt.Fprint(w, reg.render())
	})
}

func (c *collector) render() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	var b strings.Builder
	b.Grow(1024)

	b.WriteString("# HELP nlte_http_requests_total Total number of HTTP requests processed.\n")
	b.WriteString("# TYPE nlte_http_requests_total counter\n")
	for _, key := range sortedRequestKeys(c.requests) {
		fmt.Fprintf(&b, "nlte_http_requests_total{handler=%q,method=%q,code=%q} %d\n",
			key.handler, key.method, key.code, c.requests[key])
	}

	names := make([]string, 0, len(c.counters))
	seen := make(map[string]bool)
	for key := range c.counters {
		if !seen[key.name] {
			seen[key.name] = true
			names = append(names, key.name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "# TYPE %s counter\n", name)
		labels := make([]labelKey, 0)
		for key := range c.counters {
			if key.name == name {
				labels = append(labels, key)
			}
		}
		sort.Slice(labels, func(i, j int) bool { return labels[i].label < labels[j].label })
		for _, key := range labels {
			parts := strings.SplitN(key.label, "=", 2)
			fmt.Fprintf(&b, "%s{%s=%q} %d\n", name, parts[0], parts[1], c.counters[key])
		}
	}

	b.WriteString("# HELP nlte_http_request_duration_seconds HTTP request duration in seconds.\n")
	b.WriteString("# TYPE nlte_http_request_duration_seconds histogram\n")
	for _, key := range sortedRequestKeys(c.latency) {
		hist := c.latency[key]
		for idx, bound := range hist.buckets {
			fmt.Fprintf(&b, "nlte_http_request_duration_seconds_bucket{handler=%q,method=%q,le=%q} %d\n",
				key.handler, key.method, formatFloat(bound), hist.counts[idx])
		}
		fmt.Fprintf(&b, "nlte_http_request_duration_seconds_bucket{handler=%q,method=%q,le=\"+Inf\"} %d\n",
			key.handler, key.method, hist.count)
		fmt.Fprintf(&b, "nlte_http_request_duration_seconds_sum{handler=%q,method=%q} %s\n",
			key.handler, key.method, formatFloat(hist.sum))
		fmt.Fprintf(&b, "nlte_http_request_duration_seconds_count{handler=%q,method=%q} %d\n",
			key.handler, key.method, hist.count)
	}

	return b.String()
}

func sortedRequestKeys[V any](m map[requestKey]V) []requestKey {
	keys := make([]requestKey, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].handler != keys[j].handler {
			return keys[i].handler < keys[j].handler
		}
		if keys[i].method != keys[j].method {
			return keys[i].method < keys[j].method
		}
		return keys[i].code < keys[j].code
	})
	return keys
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
