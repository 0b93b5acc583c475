package relay

import (
	"fmt"
	"sync"

	"github.com/bwmarrin/discordgo"

	"render-relay/internal/channels"
	"render-relay/internal/logging"
	"render-relay/internal/metrics"
	"render-relay/internal/notifier"
	"render-relay/internal/settings"
)

// Dispatcher routes verified deploy events to every guild the bot serves.
// Failure events go to the errors channel (status as fallback); normal
// events go to the status channel (console-logs as fallback). Every event
// is additionally echoed as a plain-text block to the console-logs channel
// as a redundant audit trail.
type Dispatcher struct {
	sender   notifier.Sender
	resolver *channels.Resolver
	store    *settings.Store
	counters *metrics.Counters

	// guilds enumerates the guild IDs currently served; wired to the
	// session's state cache.
	guilds func() []string
}

func NewDispatcher(sender notifier.Sender, resolver *channels.Resolver, store *settings.Store, counters *metrics.Counters, guilds func() []string) *Dispatcher {
	return &Dispatcher{
		sender:   sender,
		resolver: resolver,
		store:    store,
		counters: counters,
		guilds:   guilds,
	}
}

// Dispatch fans the event out to all guilds and returns immediately. The
// webhook response does not wait on deliveries; failures are logged per
// guild and surface nowhere else.
func (d *Dispatcher) Dispatch(ev *Event) {
	go d.dispatchAll(ev)
}

// dispatchAll delivers to every guild concurrently and waits for all of
// them. A failed delivery never affects its siblings.
func (d *Dispatcher) dispatchAll(ev *Event) {
	var wg sync.WaitGroup
	for _, guildID := range d.guilds() {
		wg.Add(1)
		go func(guildID string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logging.Error("dispatch: panic delivering to guild %s: %v", guildID, r)
				}
			}()
			d.deliver(guildID, ev)
		}(guildID)
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(guildID string, ev *Event) {
	rec := d.store.Get(guildID)
	if rec.ForwardingPaused {
		logging.Debug("dispatch: guild %s paused, skipping %q", guildID, ev.Type)
		return
	}

	target := d.routeTarget(guildID, ev)
	if target != nil {
		if err := notifier.SendDeployEvent(d.sender, target.ID, notifier.DeployEvent{
			Type:      ev.Type,
			Timestamp: ev.Timestamp,
			ServiceID: ev.ServiceID(),
			Service:   ev.ServiceLabel(),
			DeployID:  deployID(ev),
			Region:    region(ev),
			Failure:   ev.IsFailure(),
		}); err != nil {
			d.counters.DeliveryError()
			logging.Warn("dispatch: send to guild %s channel %s failed: %v", guildID, target.ID, err)
		} else {
			d.counters.Delivered()
		}
	} else {
		logging.Warn("dispatch: guild %s has no routable channel for %q", guildID, ev.Type)
	}

	// Secondary audit trail, independent of the primary routing outcome.
	if console := d.resolver.Resolve(guildID, channels.ConsoleLog); console != nil {
		if _, err := d.sender.ChannelMessageSend(console.ID, AuditBlock(ev)); err != nil {
			logging.Warn("dispatch: audit write to guild %s failed: %v", guildID, err)
		}
	}
}

// routeTarget applies the routing rule for the event class.
func (d *Dispatcher) routeTarget(guildID string, ev *Event) *discordgo.Channel {
	if ev.IsFailure() {
		if ch := d.resolver.Resolve(guildID, channels.Errors); ch != nil {
			return ch
		}
		return d.resolver.Resolve(guildID, channels.Status)
	}
	if ch := d.resolver.Resolve(guildID, channels.Status); ch != nil {
		return ch
	}
	return d.resolver.Resolve(guildID, channels.ConsoleLog)
}

// AuditBlock renders the fixed-format plain-text summary written to the
// console-logs channel for every event.
func AuditBlock(ev *Event) string {
	block := "```\n── render event ──\n"
	block += fmt.Sprintf("type:      %s\n", ev.Type)
	if id := ev.ServiceID(); id != "" {
		block += fmt.Sprintf("service:   %s\n", id)
	}
	if ev.Timestamp != "" {
		block += fmt.Sprintf("timestamp: %s\n", ev.Timestamp)
	}
	block += "```"
	return block
}

func deployID(ev *Event) string {
	if ev.Data == nil {
		return ""
	}
	return ev.Data.DeployID
}

func region(ev *Event) string {
	if ev.Data == nil {
		return ""
	}
	return ev.Data.Region
}
