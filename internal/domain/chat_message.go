package domain

import "time"

// ChatMessage is an immutable message in a channel (chat_messages table).
// Order within a channel is (CreatedAt, ID).
type ChatMessage struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	ChannelID uint64    `gorm:"column:chat_room_id;not null;index:idx_chat_messages_order,priority:1"`
	SenderID  uint64    `gorm:"column:sender_id;not null"`
	Content   string    `gorm:"column:content;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_chat_messages_order,priority:2"`

	Channel *Channel `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// ReadMarker is a participant's read high-water mark for a channel (chat_read_status table)
type ReadMarker struct {
	UserID     uint64    `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"user_id"`
	ChannelID  uint64    `gorm:"column:chat_room_id;primaryKey;autoIncrement:false" json:"channel_id"`
	LastReadAt time.Time `gorm:"column:last_read_at;not null" json:"last_read_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`

	Channel *Channel `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ReadMarker) TableName() string { return "chat_read_status" }

// ChatMessageResponse represents a message in API responses
type ChatMessageResponse struct {
	ID        uint64    `json:"id"`
	ChannelID uint64    `json:"channel_id"`
	SenderID  uint64    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts ChatMessage to ChatMessageResponse
func (m *ChatMessage) ToResponse() *ChatMessageResponse {
	return &ChatMessageResponse{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		SenderID:  m.SenderID,
		Content:   m.Content,
		CreatedAt: m.CreatedAt,
	}
}

// MarkReadRequest represents a mark-read request body
type MarkReadRequest struct {
	At *time.Time `json:"at"`
}
