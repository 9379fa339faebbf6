package status

// Status represents transcript pipeline step status
// used for both processing and embedding fields
type Status int

const (
	// None - embedding not scheduled yet
	None Status = iota + 1
	// Pending - job enqueued
	Pending
	// Working - job owns the record
	Working
	// Completed - final step
	Completed
	// Failed - final step with error
	Failed
)

var (
	statusName = map[Status]string{None: "NONE", Pending: "PENDING",
		Working: "PROCESSING", Completed: "COMPLETED", Failed: "FAILED"}
	nameStatus = map[string]Status{"NONE": None, "PENDING": Pending,
		"PROCESSING": Working, "COMPLETED": Completed, "FAILED": Failed}
)

func (st Status) String() string {
	return statusName[st]
}

// From returns status obj from string
func From(st string) Status {
	return nameStatus[st]
}
