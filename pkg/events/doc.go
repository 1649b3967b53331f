/*
Package events provides an in-process publish/subscribe broker for
supervisor events.

Every consequential decision the watchdog takes (a restart issued, a
rollback ticket armed or fired, a snapshot or backup written, the
network dropping or recovering) is published as a typed Event. The
supervisor attaches a structured-log sink at startup so the event
stream doubles as the audit trail; additional subscribers can be
attached in tests to assert on decision sequences without scraping
logs.

# Core Components

Event:
  - ID (uuid), Type, Timestamp, Message, Metadata map
  - Types follow a "noun.verb" convention: restart.issued,
    ticket.confirmed, rollback.fired, network.recovered, ...

Broker:
  - Buffered fan-out: 100-event intake channel, 50-event buffer per
    subscriber
  - Slow subscribers are skipped, never blocked on; dropping an event
    for one sink must not stall the tick loop

# Usage

	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()

	sub := broker.Subscribe()
	go func() {
		for ev := range sub {
			logger.Info().Str("event", string(ev.Type)).Msg(ev.Message)
		}
	}()

	broker.Emit(events.EventRestartIssued, "gateway restart", map[string]string{
		"reason": "network-recovered",
	})

# Integration Points

  - pkg/health: restart, network and wake events
  - pkg/safeguard: ticket, snapshot and rollback events
  - pkg/backup: archive events
  - pkg/supervisor: owns the broker lifecycle and the log sink
*/
package events
