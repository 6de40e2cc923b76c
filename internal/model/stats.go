package model

import "time"

// RuntimeStats are the job-pump counters, reset on each startService.
type RuntimeStats struct {
	Claimed    int        `json:"claimed"`
	Printed    int        `json:"printed"`
	Failed     int        `json:"failed"`
	LastRunAt  *time.Time `json:"lastRunAt"`
	LastError  string     `json:"lastError"`
}

// Reset zeroes the counters, as performed at every startService.
func (s *RuntimeStats) Reset() {
	*s = RuntimeStats{}
}
