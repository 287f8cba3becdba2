package domain

import "time"

// ListingStatus job post status
type ListingStatus string

const (
	ListingOpen   ListingStatus = "OPEN"
	ListingClosed ListingStatus = "CLOSED"
)

// Listing is a job post owned by a responder (job_posts table)
type Listing struct {
	ID          uint64        `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	OwnerID     uint64        `gorm:"column:company_id;not null;index" json:"owner_id"`
	Title       string        `gorm:"column:title;size:200;not null" json:"title"`
	Wage        *int          `gorm:"column:wage" json:"wage,omitempty"`
	Description string        `gorm:"column:description;type:text" json:"description"`
	Region      string        `gorm:"column:region;size:100" json:"region"`
	Status      ListingStatus `gorm:"column:status;size:10;not null;default:OPEN" json:"status"`
	IsDeleted   bool          `gorm:"column:is_deleted;not null;default:false" json:"-"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Listing) TableName() string { return "job_posts" }
