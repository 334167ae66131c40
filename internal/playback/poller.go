package playback

import "time"

// DefaultPollInterval is the status poll period
const DefaultPollInterval = time.Second

// StatusPoller periodically invokes a tick on the UI-affine context. It
// stands in for engine push notifications.
type StatusPoller interface {
	Start(tick func())
	Stop()
	Running() bool
}

// TickerPoller is a self-rescheduling poller on top of a Scheduler.
// Not safe for concurrent use.
type TickerPoller struct {
	sched    Scheduler
	interval time.Duration
	timer    Timer
	gen      int
	running  bool
}

// NewTickerPoller creates a poller firing every interval.
func NewTickerPoller(sched Scheduler, interval time.Duration) *TickerPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &TickerPoller{sched: sched, interval: interval}
}

// Start begins polling; a running poller is left as is.
func (p *TickerPoller) Start(tick func()) {
	if p.running {
		return
	}
	p.running = true
	p.gen++
	p.schedule(p.gen, tick)
}

func (p *TickerPoller) schedule(gen int, tick func()) {
	p.timer = p.sched.AfterFunc(p.interval, func() {
		if !p.running || gen != p.gen {
			return
		}
		tick()
		if p.running && gen == p.gen {
			p.schedule(gen, tick)
		}
	})
}

// Stop cancels polling.
func (p *TickerPoller) Stop() {
	if !p.running {
		return
	}
	p.running = false
	p.gen++
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

// Running reports whether the poller is active.
func (p *TickerPoller) Running() bool {
	return p.running
}
