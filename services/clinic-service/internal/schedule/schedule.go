// Package schedule holds the pure scheduling logic: interval conflict
// detection and the grouping of slot rows into day-level schedule views.
package schedule

import (
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/apperr"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/clock"
	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

// Overlaps reports whether two half-open intervals [start, start+mins)
// overlap.
func Overlaps(aStart time.Time, aMins int, bStart time.Time, bMins int) bool {
	aEnd := aStart.Add(time.Duration(aMins) * time.Minute)
	bEnd := bStart.Add(time.Duration(bMins) * time.Minute)
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// FirstConflict returns the first slot in slots that overlaps the candidate
// interval, or nil. Callers pass slots ordered by start time ascending so the
// reported conflict is deterministic.
func FirstConflict(slots []model.Slot, start time.Time, durationMins int) *model.Slot {
	for i := range slots {
		if Overlaps(start, durationMins, slots[i].StartAt, slots[i].DurationMins) {
			return &slots[i]
		}
	}
	return nil
}

// ConflictError describes an overlap with an existing slot, naming its
// formatted start/end time and date.
func ConflictError(s model.Slot) error {
	return apperr.Conflict("slot overlaps existing schedule from %s to %s on %s",
		clock.FormatClock(s.StartAt), clock.FormatClock(s.EndAt()), clock.FormatDate(s.StartAt))
}

// Row is a slot joined with the display names the schedule views expose.
type Row struct {
	Slot        model.Slot
	DoctorName  string
	ServiceName string
}

// GroupKey selects which dimensions form the grouping key. The dimension a
// listing already fixes (the doctor of a by-doctor listing, the service of a
// by-service listing) is left out of the key.
type GroupKey int

const (
	GroupByDoctorServiceDate GroupKey = iota
	GroupByServiceDate
	GroupByDoctorDate
)

type groupKey struct {
	doctorID  string
	serviceID string
	date      string
}

// Group folds slot rows into schedule views. Rows must arrive ordered by
// start time ascending; groups keep their first-seen order and each view's
// identity fields come from the first row of its group.
func Group(rows []Row, by GroupKey) []model.ScheduleView {
	views := make([]model.ScheduleView, 0, len(rows))
	index := make(map[groupKey]int, len(rows))

	for _, row := range rows {
		date := clock.FormatDate(row.Slot.StartAt)
		key := groupKey{date: date}
		switch by {
		case GroupByServiceDate:
			key.serviceID = row.Slot.ServiceID
		case GroupByDoctorDate:
			key.doctorID = row.Slot.DoctorID
		default:
			key.doctorID = row.Slot.DoctorID
			key.serviceID = row.Slot.ServiceID
		}

		i, ok := index[key]
		if !ok {
			i = len(views)
			index[key] = i
			views = append(views, model.ScheduleView{
				ServiceID:   row.Slot.ServiceID,
				ServiceName: row.ServiceName,
				DoctorID:    row.Slot.DoctorID,
				DoctorName:  row.DoctorName,
				Date:        date,
			})
		}
		views[i].Slots = append(views[i].Slots, model.SlotDetail{
			SlotID:       row.Slot.ID,
			Time:         clock.FormatClock(row.Slot.StartAt),
			DurationMins: row.Slot.DurationMins,
			Status:       row.Slot.Status,
		})
	}
	return views
}
