package service

// StatusMessage is the status observation pushed to the originating
// connection on the request path.
type StatusMessage struct {
	Status      string `json:"status"`
	TokenID     int64  `json:"token_id,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Message     string `json:"message,omitempty"`
}

// AnswerMessage is pushed to the originating connection when a worker
// response is routed back.
type AnswerMessage struct {
	Status   string `json:"status"`
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer"`
}

// Status values carried by outbound messages.
const (
	StatusQueued   = "queued"
	StatusAnswered = "answered"
	StatusError    = "error"
)

// QueuedStatus builds the status observation for an accepted request.
func QueuedStatus(tokenID int64, accessToken string) *StatusMessage {
	return &StatusMessage{
		Status:      StatusQueued,
		TokenID:     tokenID,
		AccessToken: accessToken,
	}
}

// ErrorStatus builds the status observation for a rejected or failed
// request.
func ErrorStatus(reason, message string) *StatusMessage {
	return &StatusMessage{
		Status:  StatusError,
		Reason:  reason,
		Message: message,
	}
}
