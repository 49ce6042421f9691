package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"hall-laundry-backend/config"
	"hall-laundry-backend/internal/model"
	"hall-laundry-backend/internal/slotid"
)

// Store defines the persistence operations behind the laundry API.
type Store interface {
	DB() *gorm.DB

	// Slot catalog
	ListSlots(ctx context.Context, date string) ([]model.Slot, error)
	BookSlot(ctx context.Context, date, clock, machineID, userID string) (*model.Slot, error)
	UserSlots(ctx context.Context, userID string) ([]model.Slot, error)

	// Machine registry
	ListMachines(ctx context.Context) ([]MachineUsage, error)
	SetMachineStatus(ctx context.Context, machineID, status string) error
}

// MachineUsage is a machine annotated with its live usage count: the number
// of booked slots across all dates, computed at read time.
type MachineUsage struct {
	model.Machine
	TotalUsage int64 `json:"totalUsage"`
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db      *gorm.DB
	laundry config.LaundryConfig
	loc     *time.Location
}

// NewGormStore creates a new GORM-backed store for the given laundry
// parameters (daily window, machine catalog, timezone).
func NewGormStore(db *gorm.DB, laundry config.LaundryConfig) (Store, error) {
	loc, err := laundry.Location()
	if err != nil {
		return nil, err
	}
	return &gormStore{db: db, laundry: laundry, loc: loc}, nil
}

// DB exposes the underlying connection for handlers that operate on
// associations directly (push subscriptions).
func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// ListSlots returns every slot of the given date, generating the day's grid
// on first access. Ordering is machine-major, hour-ascending, matching
// generation order.
func (s *gormStore) ListSlots(ctx context.Context, date string) ([]model.Slot, error) {
	day, err := slotid.NormalizeDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if err := s.ensureSlots(ctx, day); err != nil {
		return nil, fmt.Errorf("slot generation for %s failed: %w", day, err)
	}

	var slots []model.Slot
	if err := s.db.WithContext(ctx).
		Where("date = ?", day).
		Order("machine_id, start_at").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// ensureSlots makes sure the full grid for a date exists. A day counts as
// generated only when exactly machines x slotsPerDay rows are present;
// fewer rows means a previous generation failed partway (or the date has
// never been seen), and the conflict-ignoring insert below tops up the gaps
// without touching existing rows, booked ones included.
func (s *gormStore) ensureSlots(ctx context.Context, date string) error {
	expected := int64(len(s.laundry.Machines) * s.laundry.SlotsPerDay())

	var n int64
	if err := s.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("date = ?", date).
		Count(&n).Error; err != nil {
		return err
	}
	if n == expected {
		return nil
	}

	if n > 0 {
		log.Printf("found %d of %d slots for %s, repairing grid", n, expected, date)
	}

	slots := s.buildGrid(date)
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&slots).Error
}

// buildGrid synthesizes the full day's slot records, machine-major then
// hour-ascending. date must already be canonical.
func (s *gormStore) buildGrid(date string) []model.Slot {
	d, _ := time.ParseInLocation(slotid.DateLayout, date, s.loc)
	slots := make([]model.Slot, 0, len(s.laundry.Machines)*s.laundry.SlotsPerDay())
	for _, m := range s.laundry.Machines {
		for h := s.laundry.OpenHour; h < s.laundry.CloseHour; h++ {
			start := time.Date(d.Year(), d.Month(), d.Day(), h, 0, 0, 0, s.loc)
			slots = append(slots, model.Slot{
				ID:        slotid.Build(date, h, m.ID),
				Date:      date,
				MachineID: m.ID,
				StartAt:   start,
				EndAt:     start.Add(time.Hour),
				UserID:    "",
				Status:    model.SlotAvailable,
			})
		}
	}
	return slots
}

// BookSlot resolves the deterministic identifier for (date, clock, machine)
// and flips the slot to booked for userID. Past-dated slots are not
// rejected here; that filtering stays a display concern.
func (s *gormStore) BookSlot(ctx context.Context, date, clock, machineID, userID string) (*model.Slot, error) {
	day, err := slotid.NormalizeDate(date)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hour, err := slotid.HourFromClock(clock)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if machineID == "" || userID == "" {
		return nil, fmt.Errorf("%w: machineId and userId are required", ErrInvalidInput)
	}

	id := slotid.Build(day, hour, machineID)

	// The check-and-set must be a single conditional UPDATE: two callers
	// racing for the same identifier resolve to exactly one winner at the
	// database, never a read followed by an unconditional write.
	res := s.db.WithContext(ctx).
		Model(&model.Slot{}).
		Where("id = ? AND status = ? AND user_id = ''", id, model.SlotAvailable).
		Updates(map[string]any{"user_id": userID, "status": model.SlotBooked})
	if res.Error != nil {
		return nil, res.Error
	}

	if res.RowsAffected == 0 {
		// Distinguish "no such slot" from "someone beat you to it".
		var existing model.Slot
		err := s.db.WithContext(ctx).First(&existing, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSlotNotFound, id)
		}
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s", ErrSlotTaken, id)
	}

	var slot model.Slot
	if err := s.db.WithContext(ctx).First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

// UserSlots returns every slot booked by the given user, across all dates,
// ordered by start time.
func (s *gormStore) UserSlots(ctx context.Context, userID string) ([]model.Slot, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	var slots []model.Slot
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.SlotBooked).
		Order("start_at").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

// ListMachines returns the machine catalog, seeding it on first read, with
// each machine's usage count aggregated from booked slots.
func (s *gormStore) ListMachines(ctx context.Context) ([]MachineUsage, error) {
	if err := s.ensureMachines(ctx); err != nil {
		return nil, fmt.Errorf("machine seeding failed: %w", err)
	}

	var machines []model.Machine
	if err := s.db.WithContext(ctx).
		Order("machine_id").
		Find(&machines).Error; err != nil {
		return nil, err
	}

	type usageRow struct {
		MachineID string
		Total     int64
	}
	var rows []usageRow
	if err := s.db.WithContext(ctx).
		Model(&model.Slot{}).
		Select("machine_id, COUNT(*) AS total").
		Where("status = ?", model.SlotBooked).
		Group("machine_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	usageMap := make(map[string]int64, len(rows))
	for _, r := range rows {
		usageMap[r.MachineID] = r.Total
	}

	result := make([]MachineUsage, 0, len(machines))
	for _, m := range machines {
		result = append(result, MachineUsage{Machine: m, TotalUsage: usageMap[m.MachineID]})
	}
	return result, nil
}

// ensureMachines seeds the fixed catalog when the table is empty. The
// conflict-ignoring insert keeps a concurrent double-seed harmless.
func (s *gormStore) ensureMachines(ctx context.Context) error {
	var n int64
	if err := s.db.WithContext(ctx).
		Model(&model.Machine{}).
		Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	seed := make([]model.Machine, 0, len(s.laundry.Machines))
	for _, m := range s.laundry.Machines {
		seed = append(seed, model.Machine{
			MachineID: m.ID,
			Status:    m.Status,
			Type:      m.Type,
			Model:     m.Model,
		})
	}

	log.Printf("seeding machine catalog with %d machines", len(seed))
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&seed).Error
}

// SetMachineStatus updates a machine's status. Unknown statuses are
// rejected, and a miss on the machine identifier surfaces as not-found
// rather than a silent no-op.
func (s *gormStore) SetMachineStatus(ctx context.Context, machineID, status string) error {
	if !model.ValidMachineStatus(status) {
		return fmt.Errorf("%w: unknown machine status %q", ErrInvalidInput, status)
	}

	res := s.db.WithContext(ctx).
		Model(&model.Machine{}).
		Where("machine_id = ?", machineID).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrMachineNotFound, machineID)
	}
	return nil
}
