package api

const (
	// PrmMeeting - meeting ID form param
	PrmMeeting = "meeting"
	// PrmText - raw transcript text form param
	PrmText = "text"
	// PrmEmail - email form param
	PrmEmail = "email"
	// PrmFile - transcript file form param
	PrmFile = "file"
)
