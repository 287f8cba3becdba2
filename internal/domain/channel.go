package domain

import "time"

// Channel is the conversation opened by an accepted ChatRequest (chat_rooms table).
// Participant ids are copied from the request so authorization needs no join.
type Channel struct {
	ID             uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID      uint64    `gorm:"column:application_id;not null;uniqueIndex:uq_chat_room_application"`
	ListingID      uint64    `gorm:"column:job_post_id;not null;index"`
	ResponderID    uint64    `gorm:"column:company_id;not null;index"`
	RequesterID    uint64    `gorm:"column:student_id;not null;index"`
	LastActivityAt time.Time `gorm:"column:last_message_at;not null;index"`
	CreatedAt      time.Time `gorm:"column:created_at;not null"`

	Request *ChatRequest `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Channel) TableName() string { return "chat_rooms" }

// IsParticipant reports whether userID is one of the two participants
func (ch *Channel) IsParticipant(userID uint64) bool {
	return ch.RequesterID == userID || ch.ResponderID == userID
}

// Counterpart returns the other participant's id
func (ch *Channel) Counterpart(userID uint64) uint64 {
	if ch.RequesterID == userID {
		return ch.ResponderID
	}
	return ch.RequesterID
}

// NewChannelFor builds the channel owned by an accepted request
func NewChannelFor(req *ChatRequest, at time.Time) *Channel {
	return &Channel{
		RequestID:      req.ID,
		ListingID:      req.ListingID,
		ResponderID:    req.ResponderID,
		RequesterID:    req.RequesterID,
		LastActivityAt: at,
		CreatedAt:      at,
	}
}

// ChannelResponse represents a channel in API responses
type ChannelResponse struct {
	ID             uint64    `json:"id"`
	RequestID      uint64    `json:"request_id"`
	ListingID      uint64    `json:"listing_id"`
	ResponderID    uint64    `json:"responder_id"`
	RequesterID    uint64    `json:"requester_id"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// ToResponse converts Channel to ChannelResponse
func (ch *Channel) ToResponse() *ChannelResponse {
	return &ChannelResponse{
		ID:             ch.ID,
		RequestID:      ch.RequestID,
		ListingID:      ch.ListingID,
		ResponderID:    ch.ResponderID,
		RequesterID:    ch.RequesterID,
		LastActivityAt: ch.LastActivityAt,
	}
}
