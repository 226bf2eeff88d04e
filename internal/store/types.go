package store

import "time"

// UploadRecord captures the result of one upload attempt.
type UploadRecord struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Source    string    `json:"source"`
	Dest      string    `json:"dest"`
	Artifact  string    `json:"artifact,omitempty"`
	Lines     int       `json:"lines"`
	Bytes     int       `json:"bytes"`
	Append    bool      `json:"append,omitempty"`
	Compile   bool      `json:"compile,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
}

// WipeRecord captures a wipe and the files it removed.
type WipeRecord struct {
	ID        string    `json:"id"`
	Target    string    `json:"target"`
	Removed   []string  `json:"removed"`
	Timestamp time.Time `json:"timestamp"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
}
