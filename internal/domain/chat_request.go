package domain

import "time"

// RequestStatus lifecycle state of a chat request
type RequestStatus string

const (
	RequestRequested RequestStatus = "REQUESTED"
	RequestAccepted  RequestStatus = "ACCEPTED"
	RequestRejected  RequestStatus = "REJECTED"
)

// Valid reports whether s is a known status
func (s RequestStatus) Valid() bool {
	switch s {
	case RequestRequested, RequestAccepted, RequestRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s
func (s RequestStatus) Terminal() bool {
	return s == RequestAccepted || s == RequestRejected
}

// ChatRequest is a requester's ask to chat with the owner of a listing (applications table).
// At most one exists per (listing, requester).
type ChatRequest struct {
	ID          uint64        `gorm:"column:id;primaryKey;autoIncrement"`
	ListingID   uint64        `gorm:"column:job_post_id;not null;uniqueIndex:uq_application_job_student,priority:1"`
	RequesterID uint64        `gorm:"column:student_id;not null;uniqueIndex:uq_application_job_student,priority:2;index"`
	ResponderID uint64        `gorm:"column:company_id;not null;index"`
	Status      RequestStatus `gorm:"column:status;size:10;not null;default:REQUESTED"`
	CreatedAt   time.Time     `gorm:"column:created_at;not null"`
	RespondedAt *time.Time    `gorm:"column:responded_at"`

	Listing *Listing `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChatRequest) TableName() string { return "applications" }

// IsParticipant reports whether userID is the requester or the responder
func (r *ChatRequest) IsParticipant(userID uint64) bool {
	return r.RequesterID == userID || r.ResponderID == userID
}

// SubmitChatRequest represents a submit request body
type SubmitChatRequest struct {
	ListingID uint64 `json:"listing_id" binding:"required"`
}

// ChatRequestResponse represents a chat request in API responses
type ChatRequestResponse struct {
	ID          uint64        `json:"id"`
	ListingID   uint64        `json:"listing_id"`
	RequesterID uint64        `json:"requester_id"`
	ResponderID uint64        `json:"responder_id"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	RespondedAt *time.Time    `json:"responded_at"`
}

// ToResponse converts ChatRequest to ChatRequestResponse
func (r *ChatRequest) ToResponse() *ChatRequestResponse {
	return &ChatRequestResponse{
		ID:          r.ID,
		ListingID:   r.ListingID,
		RequesterID: r.RequesterID,
		ResponderID: r.ResponderID,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		RespondedAt: r.RespondedAt,
	}
}
