package corort

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Scheduler runs a population of Coroutines cooperatively on the calling
// goroutine. It is an explicit, independently constructible value, so
// multiple schedulers may coexist in one process (e.g. one per worker
// goroutine), each still single-threaded internally.
type Scheduler struct {
	ready   []*Coroutine
	waits   map[int]*Coroutine
	sleeps  *sleepHeap
	reactor Reactor
	clock   Clock
	logger  *logiface.Logger[*stumpy.Event]

	stackCeilingBytes int64

	current *Coroutine
	nextID  uint64

	running atomic.Bool

	readyEventBuf []ReadyFD
}

// NewScheduler constructs a Scheduler ready to accept Spawn calls. The
// underlying Reactor is allocated here so construction failures (e.g.
// running on an unsupported platform) surface immediately rather than at
// the first Run call.
func NewScheduler(opts ...SchedulerOption) (*Scheduler, error) {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		return nil, err
	}
	reactor, err := newReactor(cfg.reactorEventBuffer)
	if err != nil {
		return nil, err
	}
	return &Scheduler{
		waits:             make(map[int]*Coroutine),
		sleeps:            &sleepHeap{},
		reactor:           reactor,
		clock:             cfg.clock,
		logger:            cfg.logger,
		stackCeilingBytes: cfg.stackCeilingBytes,
	}, nil
}

// Spawn creates a new Coroutine bound to this Scheduler, enqueues it in
// READY state, and returns it. entry runs on its own goroutine the first
// time the Scheduler resumes it from Run.
func (s *Scheduler) Spawn(entry Entry, param any) *Coroutine {
	s.nextID++
	co := &Coroutine{
		id:        s.nextID,
		entry:     entry,
		param:     param,
		sched:     s,
		exec:      ExecReady,
		waitingFD: -1,
		resumeCh:  make(chan struct{}),
		parkCh:    make(chan struct{}),
	}
	s.enqueueReady(co)
	if s.logger != nil {
		s.logger.Info().Uint64("coroutine_id", co.id).Log("coroutine spawned")
	}
	return co
}

func (s *Scheduler) enqueueReady(co *Coroutine) {
	co.queue = QueueReady
	s.ready = append(s.ready, co)
}

// Run drains the ready queue, processes expired sleeps, and polls the
// reactor for I/O readiness, repeating until no coroutine remains alive
// in any queue:
//
//	while true:
//	  while readys not empty: pop front, reap if dead/expired, else run until it yields/blocks/dies
//	  process_sleeps()          # wake expired sleepers
//	  if readys not empty: continue   # no poll while work is ready
//	  if waits empty and sleeps empty: break
//	  epoll_wait(deadline)      # until the earliest sleeper; -1 (forever) if none
//	  move any now-ready waiters into readys
func (s *Scheduler) Run() error {
	if s.current != nil {
		// A coroutine belonging to this scheduler is mid-resume right now,
		// which is only possible if Run() was called from within a
		// coroutine's own entry function.
		return ErrReentrantRun
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrSchedulerRunning
	}
	defer s.running.Store(false)

	for {
		for len(s.ready) > 0 {
			co := s.ready[0]
			s.ready = s.ready[1:]
			co.queue = QueueHang
			if co.dead || co.isExpired() {
				s.destroy(co)
				continue
			}
			s.runOne(co)
		}

		s.processSleeps()

		if len(s.ready) > 0 {
			continue
		}
		if len(s.waits) == 0 && s.sleeps.Len() == 0 {
			return nil
		}

		if err := s.pollReactor(); err != nil {
			return err
		}
	}
}

// runOne resumes co until it next suspends or finishes, logging a normal
// return or a recovered panic (the trampoline has already marked it dead).
func (s *Scheduler) runOne(co *Coroutine) {
	prev := s.current
	s.current = co
	co.resume()
	s.current = prev

	if co.dead {
		if co.resultPanic != nil {
			if s.logger != nil {
				s.logger.Err().Uint64("coroutine_id", co.id).Err(co.Panic()).Log("coroutine panicked")
			}
		} else if s.logger != nil {
			s.logger.Debug().Uint64("coroutine_id", co.id).Log("coroutine finished")
		}
	}
}

// destroy reaps a coroutine found dead or expired at the moment it was
// popped from ready. Its entry is never (further) resumed: if the
// coroutine's goroutine has never started, it never starts at all; if it
// is already parked in suspend() from an earlier sleep/wait, it is woken
// exactly once more so it can unwind cleanly via the selfTerminate panic
// instead of leaking on its channel forever.
func (s *Scheduler) destroy(co *Coroutine) {
	alreadyDead := co.dead
	co.dead = true
	if co.started && !alreadyDead {
		co.resumeCh <- struct{}{}
		<-co.parkCh
	}
	if s.logger != nil {
		reason := "already dead"
		if !alreadyDead {
			reason = "deadline expired"
		}
		s.logger.Debug().Uint64("coroutine_id", co.id).Str("reason", reason).Log("coroutine reaped without running")
	}
}

// processSleeps wakes every coroutine whose sleep deadline has elapsed.
// A QueueWait coroutine found among the due set had its wait time out
// before its fd became ready: it is unregistered from the reactor and
// flagged via setWaitTimedOut so WaitFD can report the distinction to its
// caller.
func (s *Scheduler) processSleeps() {
	now := s.clock.NowUS()
	for _, co := range s.sleeps.popDue(now) {
		if co.queue == QueueWait {
			delete(s.waits, co.waitingFD)
			s.reactor.Unregister(co.waitingFD)
			co.setWaitTimedOut()
		}
		s.enqueueReady(co)
	}
}

// pollReactor blocks on the reactor for however long it is safe to, then
// moves every now-ready waiter into the ready queue.
func (s *Scheduler) pollReactor() error {
	var timeoutMS int64 = -1
	if deadline, ok := s.sleeps.peekDeadline(); ok {
		now := s.clock.NowUS()
		remainingUS := deadline - now
		if remainingUS < 0 {
			remainingUS = 0
		}
		timeoutMS = (remainingUS + 999) / 1000
	}

	s.readyEventBuf = s.readyEventBuf[:0]
	events, err := s.reactor.Poll(timeoutMS, s.readyEventBuf)
	if err != nil {
		return err
	}
	s.readyEventBuf = events

	for _, ev := range events {
		co, ok := s.waits[ev.FD]
		if !ok {
			continue
		}
		delete(s.waits, ev.FD)
		s.reactor.Unregister(ev.FD)
		if co.hasTimeout {
			s.sleeps.remove(co)
		}
		s.enqueueReady(co)
	}
	return nil
}

// Close releases the Scheduler's reactor. Safe to call after Run returns.
func (s *Scheduler) Close() error {
	return s.reactor.Close()
}

// StackCeilingBytes returns the advisory per-coroutine stack-depth ceiling
// this Scheduler was configured with (see [WithStackCeiling], sizeof.go).
func (s *Scheduler) StackCeilingBytes() int64 {
	return s.stackCeilingBytes
}

// CurrentID returns the id of the coroutine currently running on this
// Scheduler, failing if called while the scheduler is idle. Application
// code that already holds a *Coroutine should prefer [Coroutine.ID],
// which needs no such check; this exists for code that only has the
// Scheduler in scope (e.g. a helper called from several coroutines that
// wants to tag its own logging).
func (s *Scheduler) CurrentID() (uint64, error) {
	if s.current == nil {
		return 0, ErrNoCurrentCoroutine
	}
	return s.current.id, nil
}
