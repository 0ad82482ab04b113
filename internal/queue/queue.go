// Package queue decides which auto-managed torrents should be running.
package queue

import "sort"

// Limits on the number of running auto-managed torrents. Negative values mean unlimited.
type Limits struct {
	ActiveDownloads int
	ActiveSeeds     int
	ActiveLimit     int
}

// Entry is the queue's view of a single torrent.
type Entry struct {
	ID            string
	QueuePosition int
	AutoManaged   bool
	Running       bool
	Seeding       bool
	// Errored torrents are left stopped until the user resumes them.
	Errored bool
}

// Plan returns the torrents that must be started and stopped to satisfy the limits.
// Torrents that are not auto-managed are not touched and do not use a slot.
func Plan(entries []Entry, limits Limits) (start, stop []string) {
	managed := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.AutoManaged && !e.Errored {
			managed = append(managed, e)
		}
	}
	sort.SliceStable(managed, func(i, j int) bool {
		if managed[i].Seeding != managed[j].Seeding {
			return !managed[i].Seeding
		}
		return managed[i].QueuePosition < managed[j].QueuePosition
	})

	var downloads, seeds, total int
	run := make(map[string]bool, len(managed))
	for _, e := range managed {
		if !below(total, limits.ActiveLimit) {
			break
		}
		if e.Seeding {
			if !below(seeds, limits.ActiveSeeds) {
				continue
			}
			seeds++
		} else {
			if !below(downloads, limits.ActiveDownloads) {
				continue
			}
			downloads++
		}
		total++
		run[e.ID] = true
	}

	sort.SliceStable(managed, func(i, j int) bool { return managed[i].QueuePosition < managed[j].QueuePosition })
	for _, e := range managed {
		switch {
		case run[e.ID] && !e.Running:
			start = append(start, e.ID)
		case !run[e.ID] && e.Running:
			stop = append(stop, e.ID)
		}
	}
	return
}

func below(n, limit int) bool {
	return limit < 0 || n < limit
}
