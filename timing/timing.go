// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

// Package timing keeps guest time as a cycle downcounter, and runs
// scheduled events when the dispatcher observes that it has expired.
//
// Compiled code only calls Advance and reads Downcount. Everything else
// is called by the dispatcher between blocks.
package timing

import (
	"container/heap"
	"fmt"
	"log"
	"math"
)

const (
	DEFAULT_MAX_SLICE = 20000 // Default maximum cycles between event checks.
)

// Callback is run when an event is due. Late is the number of cycles
// between the due time and the time the event ran.
type Callback func(userdata uint64, late int64)

// EventType is the handle of a registered event.
type EventType int

// Event is one scheduled occurrence of an EventType.
type Event struct {
	Type     EventType
	Due      int64
	Userdata uint64

	seq uint64
}

type eventKind struct {
	name     string
	callback Callback
}

// eventQueue is a min-heap of events ordered by due time, then by
// scheduling order.
type eventQueue []Event

func (q eventQueue) Len() int { return len(q) }
func (q eventQueue) Less(i, j int) bool {
	if q[i].Due != q[j].Due {
		return q[i].Due < q[j].Due
	}
	return q[i].seq < q[j].seq
}
func (q eventQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x any)   { *q = append(*q, x.(Event)) }
func (q *eventQueue) Pop() (x any) {
	old := *q
	x = old[len(old)-1]
	*q = old[:len(old)-1]
	return
}

// Timing is the guest clock.
type Timing struct {
	Verbose   bool // Set to enable verbose logging.
	MaxSlice  int  // Maximum cycles between dispatcher event checks.
	Downcount int  // Cycles remaining in the current slice.

	ticks int64 // Ticks at the start of the current slice.
	slice int   // Length of the current slice.

	kinds  []eventKind
	queue  eventQueue
	seq    uint64
	events uint64
}

// NewTiming creates a guest clock at tick zero.
func NewTiming(maxSlice int) (tm *Timing) {
	if maxSlice <= 0 {
		maxSlice = DEFAULT_MAX_SLICE
	}
	tm = &Timing{MaxSlice: maxSlice}
	tm.Reset()
	return
}

// Reset rewinds the clock to zero, and drops all scheduled events.
// Registered event types are kept.
func (tm *Timing) Reset() {
	tm.ticks = 0
	tm.slice = tm.MaxSlice
	tm.Downcount = tm.MaxSlice
	tm.queue = tm.queue[:0]
	tm.seq = 0
	tm.events = 0
}

// Advance consumes guest cycles.
func (tm *Timing) Advance(cycles int) {
	tm.Downcount -= cycles
}

// Remaining returns the cycles left before the dispatcher must check events.
func (tm *Timing) Remaining() int {
	return tm.Downcount
}

// Now returns the current guest tick.
func (tm *Timing) Now() int64 {
	return tm.ticks + int64(tm.slice-tm.Downcount)
}

// Fired returns the count of events run since the last Reset.
func (tm *Timing) Fired() uint64 {
	return tm.events
}

// resync starts a new slice of the given length without moving Now.
func (tm *Timing) resync(slice int) {
	tm.ticks = tm.Now()
	tm.slice = slice
	tm.Downcount = slice
}

// RegisterEvent registers a named event callback.
func (tm *Timing) RegisterEvent(name string, callback Callback) EventType {
	tm.kinds = append(tm.kinds, eventKind{name: name, callback: callback})
	return EventType(len(tm.kinds) - 1)
}

// EventName returns the registered name of an event type.
func (tm *Timing) EventName(et EventType) string {
	if int(et) < 0 || int(et) >= len(tm.kinds) {
		return fmt.Sprintf("EventType(%d)", int(et))
	}
	return tm.kinds[et].name
}

// ScheduleEvent schedules an event cycles into the future. If it falls
// inside the current slice, the slice is shortened so that the
// dispatcher checks in time.
func (tm *Timing) ScheduleEvent(cycles int64, et EventType, userdata uint64) {
	if cycles < 0 {
		cycles = 0
	}
	tm.seq++
	heap.Push(&tm.queue, Event{Type: et, Due: tm.Now() + cycles, Userdata: userdata, seq: tm.seq})

	if cycles < int64(tm.Downcount) {
		tm.resync(int(cycles))
	}
}

// UnscheduleEvent removes every pending event of a type and userdata,
// and returns the cycles until the first one would have been due.
func (tm *Timing) UnscheduleEvent(et EventType, userdata uint64) (cycles int64) {
	cycles = -1
	now := tm.Now()
	kept := tm.queue[:0]
	for _, ev := range tm.queue {
		if ev.Type == et && ev.Userdata == userdata {
			if cycles < 0 || ev.Due-now < cycles {
				cycles = ev.Due - now
			}
			continue
		}
		kept = append(kept, ev)
	}
	tm.queue = kept
	heap.Init(&tm.queue)
	return
}

// PopDueEvents removes and returns every event due at or before now,
// in due order.
func (tm *Timing) PopDueEvents(now int64) (due []Event) {
	for len(tm.queue) > 0 && tm.queue[0].Due <= now {
		due = append(due, heap.Pop(&tm.queue).(Event))
	}
	return
}

// TimeUntilNextEvent returns the cycles until the next scheduled event,
// or math.MaxInt64 if nothing is scheduled.
func (tm *Timing) TimeUntilNextEvent() int64 {
	if len(tm.queue) == 0 {
		return math.MaxInt64
	}
	return tm.queue[0].Due - tm.Now()
}

// ForceCheck ends the current slice, so that the dispatcher regains
// control at its next check.
func (tm *Timing) ForceCheck() {
	tm.resync(0)
}

// ProcessEvents runs every due event, then starts a new slice that
// ends no later than the next scheduled event.
func (tm *Timing) ProcessEvents() {
	now := tm.Now()
	for _, ev := range tm.PopDueEvents(now) {
		tm.events++
		if tm.Verbose {
			log.Printf("timing: %v at %v (late %v)", tm.EventName(ev.Type), now, now-ev.Due)
		}
		if int(ev.Type) >= 0 && int(ev.Type) < len(tm.kinds) && tm.kinds[ev.Type].callback != nil {
			tm.kinds[ev.Type].callback(ev.Userdata, now-ev.Due)
		}
	}

	slice := int64(tm.MaxSlice)
	if next := tm.TimeUntilNextEvent(); next < slice {
		slice = next
	}
	if slice < 1 {
		slice = 1
	}
	tm.resync(int(slice))
}
