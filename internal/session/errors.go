package session

import "fmt"

// ConflictError reports that a learner already has an active session
type ConflictError struct {
	LearnerID int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("learner %d already has an active session", e.LearnerID)
}

// NotFoundError reports an unknown or already answered session item
type NotFoundError struct {
	SessionID string
	ItemID    string
}

func (e *NotFoundError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("item %s not found in session %s", e.ItemID, e.SessionID)
	}
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// ExpiredError reports an answer arriving after the session deadline
type ExpiredError struct {
	SessionID string
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("session %s has expired", e.SessionID)
}
