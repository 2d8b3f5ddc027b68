package moniteurs

import (
	"time"

	"permisconnect/internal/models"
)

const unknownInstructor = "Unknown Instructor"

// the backend serialises LocalDateTime without a zone
var timeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// clock renders HH:MM, falling back to the raw characters at that offset.
func clock(raw string, t time.Time, ok bool) string {
	if ok {
		return t.Format("15:04")
	}
	if len(raw) >= 16 {
		return raw[11:16]
	}
	return ""
}

// ToSlot converts a wire time slot into its display form. Available is
// derived from the status; BookedBy is left for the caller to annotate.
func ToSlot(d models.TimeSlotDTO) models.Slot {
	start, startOK := parseTime(d.StartTime)
	end, endOK := parseTime(d.EndTime)

	instructor := unknownInstructor
	switch {
	case d.Instructor != "":
		instructor = d.Instructor
	case d.Moniteur != nil && d.Moniteur.FullName() != "":
		instructor = d.Moniteur.FullName()
	}

	moniteurID := d.MoniteurID
	if moniteurID == 0 && d.Moniteur != nil {
		moniteurID = d.Moniteur.ID
	}

	date := ""
	if startOK {
		date = start.Format("2006-01-02")
	} else if len(d.StartTime) >= 10 {
		date = d.StartTime[:10]
	}

	return models.Slot{
		ID:         d.ID,
		MoniteurID: moniteurID,
		Instructor: instructor,
		Start:      start,
		End:        end,
		Date:       date,
		Time:       clock(d.StartTime, start, startOK) + " - " + clock(d.EndTime, end, endOK),
		Status:     d.Status,
		Available:  d.Status == models.SlotAvailable,
	}
}
