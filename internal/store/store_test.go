package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"hall-laundry-backend/config"
	"hall-laundry-backend/internal/model"
	"hall-laundry-backend/internal/slotid"
)

var testDBSeq atomic.Int64

// newTestStore spins up an isolated in-memory SQLite database with the
// default laundry configuration (M001-M004, 08:00-22:00).
func newTestStore(t *testing.T) (Store, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared", testDBSeq.Add(1))
	gormDB, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, _ := gormDB.DB()
		sqlDB.Close()
	})

	require.NoError(t, gormDB.AutoMigrate(&model.Machine{}, &model.Slot{}, &model.PushSubscription{}))

	s, err := NewGormStore(gormDB, config.DefaultLaundry())
	require.NoError(t, err)
	return s, gormDB
}

func TestListSlotsGeneratesFullGrid(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	slots, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	require.Len(t, slots, 56) // 4 machines x 14 hourly slots

	assert.Equal(t, "2025-06-10_T08-09_M001", slots[0].ID)
	assert.Equal(t, "2025-06-10_T21-22_M001", slots[13].ID)
	assert.Equal(t, "2025-06-10_T08-09_M002", slots[14].ID)
	assert.Equal(t, "2025-06-10_T21-22_M004", slots[55].ID)

	for _, slot := range slots {
		assert.Equal(t, model.SlotAvailable, slot.Status)
		assert.Empty(t, slot.UserID)
		assert.Equal(t, "2025-06-10", slot.Date)
		assert.Equal(t, 1.0, slot.EndAt.Sub(slot.StartAt).Hours())
	}
}

func TestListSlotsIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	first, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)

	// Book one slot between the two reads; regeneration must not clobber it.
	_, err = s.BookSlot(ctx, "2025-06-10", "10:00", "M002", "u1")
	require.NoError(t, err)

	second, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	require.Len(t, second, len(first))

	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID)
	}

	var booked model.Slot
	require.NoError(t, s.DB().First(&booked, "id = ?", "2025-06-10_T10-11_M002").Error)
	assert.Equal(t, "u1", booked.UserID)
	assert.Equal(t, model.SlotBooked, booked.Status)
}

func TestListSlotsRepairsPartialGrid(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	_, err = s.BookSlot(ctx, "2025-06-10", "09:00", "M001", "u1")
	require.NoError(t, err)

	// Simulate a generation that failed partway: drop one machine's rows,
	// the booked slot excepted.
	require.NoError(t, db.
		Where("date = ? AND machine_id = ?", "2025-06-10", "M003").
		Delete(&model.Slot{}).Error)

	slots, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	assert.Len(t, slots, 56)

	var booked model.Slot
	require.NoError(t, db.First(&booked, "id = ?", "2025-06-10_T09-10_M001").Error)
	assert.Equal(t, "u1", booked.UserID)
	assert.Equal(t, model.SlotBooked, booked.Status)
}

func TestListSlotsRejectsBadDate(t *testing.T) {
	s, _ := newTestStore(t)

	for _, bad := range []string{"", "junk", "10-06-2025", "2025-13-40"} {
		_, err := s.ListSlots(context.Background(), bad)
		assert.ErrorIs(t, err, ErrInvalidInput, "date %q", bad)
	}
}

func TestBookSlot(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)

	slot, err := s.BookSlot(ctx, "2025-06-10", "10:00", "M002", "u1")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10_T10-11_M002", slot.ID)
	assert.Equal(t, "u1", slot.UserID)
	assert.Equal(t, model.SlotBooked, slot.Status)

	// Second caller loses and the winner's booking is untouched.
	_, err = s.BookSlot(ctx, "2025-06-10", "10:00", "M002", "u2")
	assert.ErrorIs(t, err, ErrSlotTaken)

	var final model.Slot
	require.NoError(t, s.DB().First(&final, "id = ?", "2025-06-10_T10-11_M002").Error)
	assert.Equal(t, "u1", final.UserID)
}

func TestBookSlotConcurrentCallers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)

	// N callers race for the same identifier; the conditional UPDATE must
	// admit exactly one.
	const callers = 8
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(user string) {
			defer wg.Done()
			_, err := s.BookSlot(ctx, "2025-06-10", "10:00", "M002", user)
			results <- err
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrSlotTaken):
			conflicts++
		default:
			t.Fatalf("unexpected booking error: %v", err)
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, callers-1, conflicts)

	// The slot's final owner is the single winner.
	var final model.Slot
	require.NoError(t, s.DB().First(&final, "id = ?", "2025-06-10_T10-11_M002").Error)
	assert.Equal(t, model.SlotBooked, final.Status)
	assert.NotEmpty(t, final.UserID)
}

func TestBookSlotNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// Date never generated.
	_, err := s.BookSlot(ctx, "2031-01-01", "10:00", "M001", "u1")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	// Generated date but unknown machine and out-of-window hour.
	_, err = s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	_, err = s.BookSlot(ctx, "2025-06-10", "10:00", "M999", "u1")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	_, err = s.BookSlot(ctx, "2025-06-10", "23:00", "M001", "u1")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestBookSlotRejectsBadInput(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	cases := []struct {
		name                       string
		date, clock, machine, user string
	}{
		{"bad date", "junk", "10:00", "M001", "u1"},
		{"bad clock", "2025-06-10", "10am", "M001", "u1"},
		{"empty machine", "2025-06-10", "10:00", "", "u1"},
		{"empty user", "2025-06-10", "10:00", "M001", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.BookSlot(ctx, tc.date, tc.clock, tc.machine, tc.user)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestSlotInvariantHolds(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	_, err = s.ListSlots(ctx, "2025-06-11")
	require.NoError(t, err)

	_, err = s.BookSlot(ctx, "2025-06-10", "10:00", "M002", "u1")
	require.NoError(t, err)
	_, err = s.BookSlot(ctx, "2025-06-11", "08:00", "M004", "u2")
	require.NoError(t, err)
	_, _ = s.BookSlot(ctx, "2025-06-10", "10:00", "M002", "u3") // losing attempt

	// status == booked must hold exactly when user_id is non-empty.
	var violations int64
	require.NoError(t, db.Model(&model.Slot{}).
		Where("(status = ? AND user_id = '') OR (status = ? AND user_id <> '')",
			model.SlotBooked, model.SlotAvailable).
		Count(&violations).Error)
	assert.Zero(t, violations)
}

func TestUserSlots(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListSlots(ctx, "2025-06-10")
	require.NoError(t, err)
	_, err = s.ListSlots(ctx, "2025-06-11")
	require.NoError(t, err)

	_, err = s.BookSlot(ctx, "2025-06-11", "12:00", "M001", "u1")
	require.NoError(t, err)
	_, err = s.BookSlot(ctx, "2025-06-10", "10:00", "M002", "u1")
	require.NoError(t, err)
	_, err = s.BookSlot(ctx, "2025-06-10", "11:00", "M003", "someone-else")
	require.NoError(t, err)

	slots, err := s.UserSlots(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	// Ordered by start time, across dates.
	assert.Equal(t, "2025-06-10_T10-11_M002", slots[0].ID)
	assert.Equal(t, "2025-06-11_T12-13_M001", slots[1].ID)

	none, err := s.UserSlots(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.UserSlots(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListMachinesSeedsOnce(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 4)

	assert.Equal(t, "M001", machines[0].MachineID)
	assert.Equal(t, "M004", machines[3].MachineID)
	assert.Equal(t, model.MachineRepair, machines[3].Status)
	for _, m := range machines[:3] {
		assert.Equal(t, model.MachineOperational, m.Status)
	}
	assert.Equal(t, "AquaForce W75", machines[0].Model)
	assert.Equal(t, "SpinMaster 900", machines[2].Model)

	// Second read must not re-seed.
	again, err := s.ListMachines(ctx)
	require.NoError(t, err)
	assert.Len(t, again, 4)
}

func TestListMachinesAggregatesUsage(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	for _, date := range []string{"2025-06-10", "2025-06-11"} {
		_, err := s.ListSlots(ctx, date)
		require.NoError(t, err)
	}

	_, err := s.BookSlot(ctx, "2025-06-10", "10:00", "M002", "u1")
	require.NoError(t, err)
	_, err = s.BookSlot(ctx, "2025-06-11", "15:00", "M002", "u2")
	require.NoError(t, err)
	_, err = s.BookSlot(ctx, "2025-06-10", "08:00", "M004", "u3")
	require.NoError(t, err)

	machines, err := s.ListMachines(ctx)
	require.NoError(t, err)
	require.Len(t, machines, 4)

	byID := make(map[string]MachineUsage, len(machines))
	for _, m := range machines {
		byID[m.MachineID] = m
	}
	assert.EqualValues(t, 0, byID["M001"].TotalUsage)
	assert.EqualValues(t, 2, byID["M002"].TotalUsage)
	assert.EqualValues(t, 0, byID["M003"].TotalUsage)
	assert.EqualValues(t, 1, byID["M004"].TotalUsage)

	// The aggregate equals the raw booked-slot count per machine.
	var raw int64
	require.NoError(t, db.Model(&model.Slot{}).
		Where("machine_id = ? AND status = ?", "M002", model.SlotBooked).
		Count(&raw).Error)
	assert.EqualValues(t, raw, byID["M002"].TotalUsage)
}

func TestSetMachineStatus(t *testing.T) {
	s, db := newTestStore(t)
	ctx := context.Background()

	_, err := s.ListMachines(ctx) // seed
	require.NoError(t, err)

	require.NoError(t, s.SetMachineStatus(ctx, "M001", model.MachineRepair))
	var m model.Machine
	require.NoError(t, db.First(&m, "machine_id = ?", "M001").Error)
	assert.Equal(t, model.MachineRepair, m.Status)

	require.NoError(t, s.SetMachineStatus(ctx, "M001", model.MachineOperational))
	require.NoError(t, db.First(&m, "machine_id = ?", "M001").Error)
	assert.Equal(t, model.MachineOperational, m.Status)

	assert.ErrorIs(t, s.SetMachineStatus(ctx, "M001", "broken"), ErrInvalidInput)
	assert.ErrorIs(t, s.SetMachineStatus(ctx, "M999", model.MachineRepair), ErrMachineNotFound)
}

func TestGeneratedSlotTimesMatchIdentifier(t *testing.T) {
	s, _ := newTestStore(t)

	slots, err := s.ListSlots(context.Background(), "2025-06-10")
	require.NoError(t, err)

	laundry := config.DefaultLaundry()
	loc, err := laundry.Location()
	require.NoError(t, err)

	for _, slot := range slots {
		want, err := slotid.StartOfSlot(slot.Date, slot.StartAt.In(loc).Hour(), loc)
		require.NoError(t, err)
		assert.True(t, slot.StartAt.Equal(want), "slot %s start %v", slot.ID, slot.StartAt)
		assert.Equal(t, slotid.Build(slot.Date, slot.StartAt.In(loc).Hour(), slot.MachineID), slot.ID)
	}
}
