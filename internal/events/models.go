package events

// NotificationEvent is emitted every time the notifier records a scheduling
// outcome, so the UI channel learns about it without polling the job row.
type NotificationEvent struct {
	JobID   string `json:"job_id"`
	UserID  string `json:"user_id"`
	Status  string `json:"status"`
	Title   string `json:"title"`
	Message string `json:"message"`
}
