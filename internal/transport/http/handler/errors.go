package handler

const (
	errInternalServer        = "Internal server error"
	errChecklistNotFound     = "Checklist not found"
	errChecklistNameConflict = "Checklist with this name already exists"
	errChecklistPaused       = "Checklist is already paused"
	errChecklistNotPaused    = "Checklist is not paused"
	errReminderNotFound      = "Reminder not found"
	errDuplicateReminder     = "Reminder with this idempotency key already exists"
	errInvalidCursor         = "Invalid pagination cursor"
	errInvalidStatus         = "Invalid status filter"
)
