// Package metrics sends station metrics to a statsd agent.
package metrics

import (
	"log"

	"github.com/DataDog/datadog-go/statsd"
)

type sender interface {
	Gauge(name string, value float64, tags []string, rate float64) error
	Incr(name string, tags []string, rate float64) error
	Close() error
}

// Reporter is a statsd client. A nil Reporter discards everything.
type Reporter struct {
	client sender
	tags   []string
}

// New creates a Reporter for the statsd agent at server. An empty server
// disables metrics and returns a nil Reporter.
func New(server string, tags ...string) (*Reporter, error) {
	if server == "" {
		return nil, nil
	}
	client, err := statsd.New(server)
	if err != nil {
		return nil, err
	}
	log.Printf("Got stats server %s stats are enabled", server)
	return &Reporter{client: client, tags: tags}, nil
}

// Gauge sends a gauge value.
func (r *Reporter) Gauge(name string, value float64) {
	if r == nil {
		return
	}
	if err := r.client.Gauge(name, value, r.tags, 1); err != nil {
		log.Printf("Error sending metric %s: %v", name, err)
	}
}

// Count increments a counter.
func (r *Reporter) Count(name string) {
	if r == nil {
		return
	}
	if err := r.client.Incr(name, r.tags, 1); err != nil {
		log.Printf("Error sending metric %s: %v", name, err)
	}
}

// Close flushes and closes the client.
func (r *Reporter) Close() {
	if r == nil {
		return
	}
	if err := r.client.Close(); err != nil {
		log.Printf("Error closing stats client: %v", err)
	}
}
