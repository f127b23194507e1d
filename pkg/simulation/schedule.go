package simulation

import (
	"container/heap"
	"time"
)

type scheduleEntry struct {
	timeStamp time.Time
	names     map[string]struct{}
}

// scheduleHeap keeps the earliest timestamp on top.
type scheduleHeap []*scheduleEntry

func (h scheduleHeap) Len() int           { return len(h) }
func (h scheduleHeap) Less(i, j int) bool { return h[i].timeStamp.Before(h[j].timeStamp) }
func (h scheduleHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *scheduleHeap) Push(x interface{}) {
	*h = append(*h, x.(*scheduleEntry))
}

func (h *scheduleHeap) Pop() interface{} {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// schedule maps timestamps to the rule names enabled exactly at them and
// hands them out smallest timestamp first.
type schedule struct {
	entries scheduleHeap
	index   map[int64]*scheduleEntry
}

func newSchedule() *schedule {
	return &schedule{
		index: make(map[int64]*scheduleEntry),
	}
}

func (s *schedule) add(timeStamp time.Time, name string) {
	key := timeStamp.UnixNano()
	if entry, ok := s.index[key]; ok {
		entry.names[name] = struct{}{}
		return
	}

	entry := &scheduleEntry{
		timeStamp: timeStamp,
		names:     map[string]struct{}{name: {}},
	}
	s.index[key] = entry
	heap.Push(&s.entries, entry)
}

func (s *schedule) peek() (time.Time, bool) {
	if len(s.entries) == 0 {
		return time.Time{}, false
	}
	return s.entries[0].timeStamp, true
}

func (s *schedule) pop() (time.Time, map[string]struct{}, bool) {
	if len(s.entries) == 0 {
		return time.Time{}, nil, false
	}
	entry := heap.Pop(&s.entries).(*scheduleEntry)
	delete(s.index, entry.timeStamp.UnixNano())
	return entry.timeStamp, entry.names, true
}

func (s *schedule) len() int {
	return len(s.entries)
}
