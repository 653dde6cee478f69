package echo

import (
	"golang.org/x/sync/semaphore"
)

// Admission limits the number of concurrently served connections. A nil
// semaphore means no limit.
type Admission struct {
	max int64
	sem *semaphore.Weighted
}

// NewAdmission creates an admission policy. max <= 0 admits everything.
func NewAdmission(max int64) *Admission {
	if max <= 0 {
		return &Admission{}
	}
	return &Admission{
		max: max,
		sem: semaphore.NewWeighted(max),
	}
}

// Limit returns the configured maximum, 0 if unbounded
func (a *Admission) Limit() int64 {
	return a.max
}

// TryAdmit reserves a slot without blocking
func (a *Admission) TryAdmit() bool {
	if a.sem == nil {
		return true
	}
	return a.sem.TryAcquire(1)
}

// Release frees a slot reserved by TryAdmit
func (a *Admission) Release() {
	if a.sem == nil {
		return
	}
	a.sem.Release(1)
}
