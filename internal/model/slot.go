package model

import "time"

// Slot status values. A slot is booked exactly when UserID is non-empty;
// the store enforces that both fields change together.
const (
	SlotAvailable = "available"
	SlotBooked    = "booked"
)

// Slot is one bookable machine-hour. The ID is fully deterministic from
// (date, hour, machine), e.g. "2024-12-25_T08-09_M001", and is the only
// key used for lookup and mutation.
type Slot struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Date      string    `gorm:"size:10;index;not null" json:"date"`
	MachineID string    `gorm:"size:16;index;not null" json:"machineId"`
	StartAt   time.Time `gorm:"not null" json:"startAt"`
	EndAt     time.Time `gorm:"not null" json:"endAt"`
	UserID    string    `gorm:"size:64;index;not null;default:''" json:"userId"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
