package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/clock"
)

var (
	// errors
	ErrNotFound   = core.NewNotFoundError(errors.New("slot_not_found"))
	ErrSlotExists = core.NewConflictError(errors.New("a slot already starts at this time in this room on this weekday"))
)

type (
	// Repository is the Schedule Catalog's storage.
	Repository interface {
		ListSlotsByWeekday(ctx context.Context, weekday time.Weekday) ([]Slot, error)
		QuerySlots(ctx context.Context, filter QueryFilter) ([]Slot, error)
		GetSlot(ctx context.Context, id string) (Slot, error)
		// CreateSlot returns ErrSlotExists when (room, weekday, start) is taken.
		CreateSlot(ctx context.Context, slot Slot) (Slot, error)
		DeleteSlotsByID(ctx context.Context, ids ...string) (int, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListForWeekday returns the weekday's slots in tie-break order.
func (svc *Service) ListForWeekday(ctx context.Context, weekday time.Weekday) ([]Slot, error) {
	slots, err := svc.repo.ListSlotsByWeekday(ctx, weekday)
	if err != nil {
		return nil, errors.Wrap(err, "listing slots by weekday")
	}
	Sort(slots)
	return slots, nil
}

// FindSlot returns the slot of room starting at start on weekday.
func (svc *Service) FindSlot(ctx context.Context, room string, weekday time.Weekday, start clock.TimeOfDay) (Slot, error) {
	slots, err := svc.ListForWeekday(ctx, weekday)
	if err != nil {
		return Slot{}, err
	}
	for _, s := range slots {
		if s.InRoom(room) && s.StartTime == start {
			return s, nil
		}
	}
	return Slot{}, ErrNotFound
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]Slot, error) {
	filter.Clean()
	slots, err := svc.repo.QuerySlots(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "querying slots")
	}
	sortByDay(slots)
	return slots, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Slot, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Slot{}, ErrNotFound
	}
	return svc.repo.GetSlot(ctx, id)
}

// Create expects a validated NewSlot.
func (svc *Service) Create(ctx context.Context, ns NewSlot) (Slot, error) {
	slot := ns.slot()
	slot.ID = uuid.New().String()
	slot.CreatedAt = time.Now().UTC()
	return svc.repo.CreateSlot(ctx, slot)
}

// Import creates every slot, skipping those already in the catalog.
func (svc *Service) Import(ctx context.Context, slots []NewSlot) (created, skipped int, err error) {
	for _, ns := range slots {
		if _, err = svc.Create(ctx, ns); err != nil {
			if errors.Is(err, ErrSlotExists) {
				skipped++
				err = nil
				continue
			}
			return created, skipped, errors.Wrapf(err, "importing slot %s %d %s", ns.RoomCode, *ns.Weekday, ns.StartTime)
		}
		created++
	}
	return created, skipped, nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) (int, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return 0, nil
	}
	return svc.repo.DeleteSlotsByID(ctx, valid...)
}

// sortByDay orders a week's catalog: weekday, then the usual tie-break.
func sortByDay(slots []Slot) {
	Sort(slots)
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Weekday < slots[j].Weekday })
}
