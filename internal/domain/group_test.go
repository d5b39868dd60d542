package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupStationEvents(t *testing.T) {
	at := func(station string, c Component, offset time.Duration) WaveformRecord {
		rec := accelRecord(station, c, 100, zeros(10))
		rec.StartTime = testStart.Add(offset)
		return rec
	}

	records := []WaveformRecord{
		at("ST02", ComponentNorthSouth, 0),
		at("ST01", ComponentVertical, 3*time.Millisecond),
		at("ST01", ComponentNorthSouth, 0),
		at("ST01", ComponentNorthSouth, 5*time.Minute),
		at("ST01", ComponentEastWest, time.Millisecond),
	}

	events := GroupStationEvents(records, DefaultGroupWindow)
	require.Len(t, events, 3)

	assert.Equal(t, "ST01", events[0].StationID)
	assert.Equal(t, testStart, events[0].StartTime)
	assert.Empty(t, events[0].Missing())
	require.NoError(t, events[0].Err)

	assert.Equal(t, "ST01", events[1].StationID)
	assert.Equal(t, testStart.Add(5*time.Minute), events[1].StartTime)
	assert.Equal(t, []Component{ComponentEastWest, ComponentVertical}, events[1].Missing())

	assert.Equal(t, "ST02", events[2].StationID)
	assert.NotEqual(t, events[0].EventID, events[1].EventID)
}

func TestGroupStationEvents_DuplicateInWindow(t *testing.T) {
	a := accelRecord("ST01", ComponentNorthSouth, 100, zeros(10))
	b := accelRecord("ST01", ComponentNorthSouth, 100, zeros(10))

	events := GroupStationEvents([]WaveformRecord{a, b}, DefaultGroupWindow)
	require.Len(t, events, 1)
	assert.ErrorIs(t, events[0].Err, ErrInvalidRecord)
}

func TestGroupStationEvents_Empty(t *testing.T) {
	assert.Empty(t, GroupStationEvents(nil, DefaultGroupWindow))
}

func TestAggregate(t *testing.T) {
	results := []IntensityResult{
		{StationID: "ST03", EventID: "c", Status: StatusSuccess, IntensityClass: 5},
		{StationID: "ST01", EventID: "b", StartTime: testStart.Add(time.Hour), Status: StatusPartial, IntensityClass: 7},
		{StationID: "ST02", EventID: "x", Status: StatusFailed, ErrorKind: KindInvalidRecord},
		{StationID: "ST01", EventID: "a", StartTime: testStart, Status: StatusSuccess, IntensityClass: 6},
	}

	got := Aggregate(results)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.EventID
	}
	assert.Equal(t, []string{"a", "b", "x", "c"}, ids)
	assert.Equal(t, "c", results[0].EventID, "input order untouched")

	s := Summarize(got)
	assert.Equal(t, Summary{
		Total:          4,
		Succeeded:      2,
		Partial:        1,
		Failed:         1,
		MaxClass:       7,
		MaxStationID:   "ST01",
		FailuresByKind: map[ErrorKind]int{KindInvalidRecord: 1},
	}, s)
}
