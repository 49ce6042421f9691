package model

import "time"

// Machine status values.
const (
	MachineOperational = "operational"
	MachineRepair      = "repair"
)

// ValidMachineStatus reports whether s is an accepted machine status.
func ValidMachineStatus(s string) bool {
	return s == MachineOperational || s == MachineRepair
}

// Machine is one physical washer in the hall. The catalog is a fixed small
// set seeded on first registry read; usage counts are derived from booked
// slots at read time and never stored here.
type Machine struct {
	MachineID string    `gorm:"primaryKey;size:16" json:"machineId"`
	Status    string    `gorm:"size:16;not null" json:"status"`
	Type      string    `gorm:"size:32;not null" json:"type"`
	Model     string    `gorm:"size:64;not null" json:"model"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}
