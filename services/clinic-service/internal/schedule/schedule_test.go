package schedule

import (
	"testing"
	"time"

	"github.com/clinicdesk/clinicdesk/services/clinic-service/internal/model"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("bad time %q: %v", value, err)
	}
	return ts
}

func TestOverlaps(t *testing.T) {
	start := at(t, "2026-09-12T09:00:00Z")

	cases := []struct {
		name  string
		bStart string
		bMins int
		want  bool
	}{
		{"identical", "2026-09-12T09:00:00Z", 30, true},
		{"candidate inside longer slot", "2026-09-12T08:30:00Z", 120, true},
		{"existing starts inside candidate", "2026-09-12T09:15:00Z", 30, true},
		{"touching before", "2026-09-12T08:30:00Z", 30, false},
		{"touching after", "2026-09-12T09:30:00Z", 30, false},
		{"same doctor other day", "2026-09-13T09:00:00Z", 30, false},
	}
	for _, tc := range cases {
		if got := Overlaps(start, 30, at(t, tc.bStart), tc.bMins); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestFirstConflict_Deterministic(t *testing.T) {
	slots := []model.Slot{
		{ID: "a", StartAt: at(t, "2026-09-12T09:00:00Z"), DurationMins: 30},
		{ID: "b", StartAt: at(t, "2026-09-12T09:30:00Z"), DurationMins: 30},
	}
	hit := FirstConflict(slots, at(t, "2026-09-12T09:15:00Z"), 30)
	if hit == nil || hit.ID != "a" {
		t.Fatalf("expected first conflicting slot a, got %+v", hit)
	}
	if FirstConflict(slots, at(t, "2026-09-12T10:00:00Z"), 30) != nil {
		t.Fatal("expected no conflict after last slot ends")
	}
}

func TestConflictError_Message(t *testing.T) {
	err := ConflictError(model.Slot{
		StartAt:      at(t, "2026-09-12T09:00:00Z"),
		DurationMins: 45,
	})
	want := "slot overlaps existing schedule from 09:00 to 09:45 on 2026-09-12"
	if err.Error() != want {
		t.Fatalf("expected %q, got %q", want, err.Error())
	}
}

func groupRows(t *testing.T) []Row {
	t.Helper()
	return []Row{
		{Slot: model.Slot{ID: "s1", DoctorID: "d1", ServiceID: "svc1", StartAt: at(t, "2026-09-12T09:00:00Z"), DurationMins: 30, Status: model.SlotAvailable}, DoctorName: "Dr. Adler", ServiceName: "Checkup"},
		{Slot: model.Slot{ID: "s2", DoctorID: "d1", ServiceID: "svc1", StartAt: at(t, "2026-09-12T09:30:00Z"), DurationMins: 30, Status: model.SlotBooked}, DoctorName: "Dr. Adler", ServiceName: "Checkup"},
		{Slot: model.Slot{ID: "s3", DoctorID: "d2", ServiceID: "svc1", StartAt: at(t, "2026-09-12T10:00:00Z"), DurationMins: 30, Status: model.SlotAvailable}, DoctorName: "Dr. Brook", ServiceName: "Checkup"},
		{Slot: model.Slot{ID: "s4", DoctorID: "d1", ServiceID: "svc1", StartAt: at(t, "2026-09-13T09:00:00Z"), DurationMins: 30, Status: model.SlotAvailable}, DoctorName: "Dr. Adler", ServiceName: "Checkup"},
	}
}

func TestGroup_ByDoctorServiceDate(t *testing.T) {
	views := Group(groupRows(t), GroupByDoctorServiceDate)
	if len(views) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(views))
	}
	// First-seen order, not key order.
	if views[0].DoctorID != "d1" || views[0].Date != "2026-09-12" {
		t.Fatalf("unexpected first group: %+v", views[0])
	}
	if len(views[0].Slots) != 2 {
		t.Fatalf("expected 2 slots in first group, got %d", len(views[0].Slots))
	}
	if views[0].Slots[0].Time != "09:00" || views[0].Slots[1].Time != "09:30" {
		t.Fatalf("slot order not preserved: %+v", views[0].Slots)
	}
	if views[1].DoctorID != "d2" {
		t.Fatalf("expected second group for d2, got %+v", views[1])
	}
	if views[2].Date != "2026-09-13" {
		t.Fatalf("expected third group on next day, got %+v", views[2])
	}
	if views[0].DoctorName != "Dr. Adler" || views[0].ServiceName != "Checkup" {
		t.Fatalf("identity fields not taken from first slot: %+v", views[0])
	}
}

func TestGroup_ByDoctorDate_MergesServicesOut(t *testing.T) {
	rows := groupRows(t)
	// A by-service listing groups on (doctor, date): two doctors on the 12th,
	// one on the 13th.
	views := Group(rows, GroupByDoctorDate)
	if len(views) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(views))
	}
}

func TestGroup_ByServiceDate(t *testing.T) {
	rows := groupRows(t)
	// A by-doctor listing groups on (service, date): both doctors' slots on
	// the 12th fold into one view.
	views := Group(rows, GroupByServiceDate)
	if len(views) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(views))
	}
	if len(views[0].Slots) != 3 {
		t.Fatalf("expected 3 slots in first group, got %d", len(views[0].Slots))
	}
}

func TestGroup_Empty(t *testing.T) {
	if got := Group(nil, GroupByDoctorServiceDate); len(got) != 0 {
		t.Fatalf("expected no views, got %d", len(got))
	}
}
