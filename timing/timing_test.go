package timing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimingAdvance(t *testing.T) {
	assert := assert.New(t)

	tm := NewTiming(0)
	assert.Equal(DEFAULT_MAX_SLICE, tm.MaxSlice)
	assert.Equal(DEFAULT_MAX_SLICE, tm.Downcount)
	assert.Equal(int64(0), tm.Now())

	tm.Advance(3)
	assert.Equal(DEFAULT_MAX_SLICE-3, tm.Remaining())
	assert.Equal(int64(3), tm.Now())

	tm.ForceCheck()
	assert.Equal(0, tm.Downcount)
	assert.Equal(int64(3), tm.Now())

	tm.ProcessEvents()
	assert.Equal(DEFAULT_MAX_SLICE, tm.Downcount)
	assert.Equal(int64(3), tm.Now())
	assert.Equal(int64(math.MaxInt64), tm.TimeUntilNextEvent())
}

func TestTimingEvents(t *testing.T) {
	assert := assert.New(t)

	tm := NewTiming(1000)

	type fired struct {
		userdata uint64
		at       int64
		late     int64
	}
	var log []fired
	var et EventType
	et = tm.RegisterEvent("tick", func(userdata uint64, late int64) {
		log = append(log, fired{userdata, tm.Now(), late})
		if userdata == 1 {
			tm.ScheduleEvent(50, et, 2)
		}
	})
	assert.Equal("tick", tm.EventName(et))
	assert.Equal("EventType(9)", tm.EventName(9))

	tm.ScheduleEvent(100, et, 1)
	assert.Equal(100, tm.Downcount)
	assert.Equal(int64(100), tm.TimeUntilNextEvent())

	// Overshoot the slice, as a block would.
	tm.Advance(104)
	assert.True(tm.Downcount <= 0)
	tm.ProcessEvents()

	assert.Equal([]fired{{1, 104, 4}}, log)
	assert.Equal(int64(104), tm.Now())
	assert.Equal(50, tm.Downcount)

	tm.Advance(50)
	tm.ProcessEvents()
	assert.Equal(fired{2, 154, 0}, log[1])
	assert.Equal(1000, tm.Downcount)
	assert.Equal(uint64(2), tm.Fired())

	// Events outside the slice do not shorten it.
	tm.ScheduleEvent(5000, et, 3)
	assert.Equal(1000, tm.Downcount)

	tm.ScheduleEvent(10, et, 4)
	tm.ScheduleEvent(10, et, 5)
	due := tm.PopDueEvents(tm.Now() + 10)
	assert.Len(due, 2)
	assert.Equal(uint64(4), due[0].Userdata)
	assert.Equal(uint64(5), due[1].Userdata)

	assert.Equal(int64(5000), tm.UnscheduleEvent(et, 3))
	assert.Equal(int64(-1), tm.UnscheduleEvent(et, 3))
	assert.Equal(int64(math.MaxInt64), tm.TimeUntilNextEvent())

	tm.Reset()
	assert.Equal(int64(0), tm.Now())
	assert.Equal(uint64(0), tm.Fired())
}
