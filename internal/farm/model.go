package farm

import (
	"time"

	"github.com/google/uuid"
)

// Profile is a farmer's profile snapshot, keyed by the caller-supplied
// user id rather than an internal uuid.
type Profile struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Village   string    `json:"village,omitempty"`
	District  string    `json:"district,omitempty"`
	State     string    `json:"state,omitempty"`
	Pincode   string    `json:"pincode,omitempty"`
	Lat       float64   `json:"lat,omitempty"`
	Lon       float64   `json:"lon,omitempty"`
	Language  string    `json:"language,omitempty"`
	LandAcres float64   `json:"land_acres,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Crop is a crop the farmer is currently growing or has registered.
type Crop struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Name      string     `json:"name"`
	Variety   string     `json:"variety,omitempty"`
	AreaAcres float64    `json:"area_acres,omitempty"`
	SownAt    *time.Time `json:"sown_at,omitempty"`
	Status    string     `json:"status"` // planned, sown, growing, harvested
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Task is a farm task with an optional due date.
type Task struct {
	ID        uuid.UUID  `json:"id"`
	UserID    string     `json:"user_id"`
	Title     string     `json:"title"`
	Details   string     `json:"details,omitempty"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Completed bool       `json:"completed"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Notification is a stored message for later delivery to the farmer.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Priority  string    `json:"priority"` // high, medium, low
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// HealthLog records a crop health observation and any diagnosis made.
type HealthLog struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	CropName  string    `json:"crop_name"`
	Symptoms  string    `json:"symptoms"`
	Diagnosis string    `json:"diagnosis,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateCropRequest is the HTTP payload for registering a crop.
type CreateCropRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=100"`
	Variety   string  `json:"variety" validate:"max=100"`
	AreaAcres float64 `json:"area_acres" validate:"gte=0"`
	Status    string  `json:"status" validate:"omitempty,oneof=planned sown growing harvested"`
}

// CreateTaskRequest is the HTTP payload for creating a task.
type CreateTaskRequest struct {
	Title   string     `json:"title" validate:"required,min=1,max=255"`
	Details string     `json:"details" validate:"max=2000"`
	DueAt   *time.Time `json:"due_at"`
}

// UpsertProfileRequest is the HTTP payload for creating or updating a profile.
type UpsertProfileRequest struct {
	Name      string  `json:"name" validate:"required,min=1,max=255"`
	Village   string  `json:"village" validate:"max=255"`
	District  string  `json:"district" validate:"max=255"`
	State     string  `json:"state" validate:"max=255"`
	Pincode   string  `json:"pincode" validate:"omitempty,len=6,numeric"`
	Lat       float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64 `json:"lon" validate:"gte=-180,lte=180"`
	Language  string  `json:"language" validate:"max=16"`
	LandAcres float64 `json:"land_acres" validate:"gte=0"`
}
