// Package metrics tracks webhook ingress and delivery counters, exported
// as plain text on the HTTP surface.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"
)

type Counters struct {
	started time.Time

	received       atomic.Uint64
	verified       atomic.Uint64
	rejected       atomic.Uint64
	delivered      atomic.Uint64
	deliveryErrors atomic.Uint64
}

func NewCounters() *Counters {
	return &Counters{started: time.Now()}
}

func (c *Counters) Received()      { c.received.Add(1) }
func (c *Counters) Verified()      { c.verified.Add(1) }
func (c *Counters) Rejected()      { c.rejected.Add(1) }
func (c *Counters) Delivered()     { c.delivered.Add(1) }
func (c *Counters) DeliveryError() { c.deliveryErrors.Add(1) }

func (c *Counters) Uptime() time.Duration {
	return time.Since(c.started)
}

// Export renders all counters as newline-delimited name/value pairs.
func (c *Counters) Export() string {
	return fmt.Sprintf(
		"webhooks_received %d\nwebhooks_verified %d\nwebhooks_rejected %d\nevents_delivered %d\ndelivery_errors %d\nuptime_seconds %d\n",
		c.received.Load(),
		c.verified.Load(),
		c.rejected.Load(),
		c.delivered.Load(),
		c.deliveryErrors.Load(),
		int64(c.Uptime().Seconds()),
	)
}
