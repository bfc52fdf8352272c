package attendance

import (
	"hash/fnv"
	"sync"
)

// lockStripes bounds the number of mutexes used to serialize record
// updates. Two different (employee, date) pairs may share a stripe, which
// only costs contention, never correctness.
const lockStripes = 64

// stripedLocks serializes read-modify-write cycles on attendance records
// per (employee, date), so a live recognition and a presence escalation
// cannot interleave on the same record.
type stripedLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (s *stripedLocks) lock(employeeKey, date string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(employeeKey))
	h.Write([]byte{'|'})
	h.Write([]byte(date))
	return &s.stripes[h.Sum32()%lockStripes]
}
