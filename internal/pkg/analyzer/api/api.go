package api

import "time"

// Analysis is the structured meeting insight extracted by the model
type Analysis struct {
	Title       string
	Summary     string
	KeyPoints   []string
	Task        string
	Responsible string
	Deadline    *time.Time
}
