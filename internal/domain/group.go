package domain

import (
	"sort"
	"time"
)

// DefaultGroupWindow is how far apart the start times of one station's
// channels may be and still belong to the same event.
const DefaultGroupWindow = 60 * time.Second

// GroupStationEvents groups decoded records into station events: by station
// ID, then by start-time proximity. A record opens a new event when it starts
// more than window after the first record of the current one. The returned
// events are ordered by station ID and start time.
func GroupStationEvents(records []WaveformRecord, window time.Duration) []StationEvent {
	byStation := make(map[string][]WaveformRecord)
	for _, rec := range records {
		byStation[rec.StationID] = append(byStation[rec.StationID], rec)
	}

	stations := make([]string, 0, len(byStation))
	for id := range byStation {
		stations = append(stations, id)
	}
	sort.Strings(stations)

	var events []StationEvent
	for _, id := range stations {
		recs := byStation[id]
		sort.SliceStable(recs, func(i, j int) bool {
			if !recs[i].StartTime.Equal(recs[j].StartTime) {
				return recs[i].StartTime.Before(recs[j].StartTime)
			}
			return recs[i].Component.rank() < recs[j].Component.rank()
		})

		var cluster []WaveformRecord
		for _, rec := range recs {
			if len(cluster) > 0 && rec.StartTime.Sub(cluster[0].StartTime) > window {
				events = append(events, NewStationEvent(id, cluster...))
				cluster = nil
			}
			cluster = append(cluster, rec)
		}
		if len(cluster) > 0 {
			events = append(events, NewStationEvent(id, cluster...))
		}
	}
	return events
}
