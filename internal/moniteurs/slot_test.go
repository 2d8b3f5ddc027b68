package moniteurs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"permisconnect/internal/models"
)

func TestToSlot(t *testing.T) {
	tests := []struct {
		name string
		in   models.TimeSlotDTO
		want models.Slot
	}{
		{
			name: "named instructor",
			in: models.TimeSlotDTO{ID: 1, MoniteurID: 4, StartTime: "2025-06-02T09:00:00", EndTime: "2025-06-02T10:00:00",
				Status: models.SlotAvailable, Instructor: "Paul Durand", ClientID: 9},
			want: models.Slot{ID: 1, MoniteurID: 4, Instructor: "Paul Durand", Date: "2025-06-02", Time: "09:00 - 10:00",
				Status: models.SlotAvailable, Available: true},
		},
		{
			name: "nested moniteur",
			in: models.TimeSlotDTO{ID: 2, StartTime: "2025-06-02T14:30:00.000", EndTime: "2025-06-02T15:30:00.000",
				Status: models.SlotBooked, Moniteur: &models.Moniteur{ID: 6, Prenom: "Anne", Nom: "Roux"}},
			want: models.Slot{ID: 2, MoniteurID: 6, Instructor: "Anne Roux", Date: "2025-06-02", Time: "14:30 - 15:30",
				Status: models.SlotBooked},
		},
		{
			name: "unparseable times fall back to raw offsets",
			in:   models.TimeSlotDTO{ID: 3, StartTime: "2025-06-02 08:15:00x", EndTime: "2025-06-02 09:15:00x", Status: models.SlotCancelled},
			want: models.Slot{ID: 3, Instructor: "Unknown Instructor", Date: "2025-06-02", Time: "08:15 - 09:15",
				Status: models.SlotCancelled},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			got := ToSlot(tt.in)
			got.Start, got.End = tt.want.Start, tt.want.End
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToSlot_ParsesTimes(t *testing.T) {
	s := ToSlot(models.TimeSlotDTO{StartTime: "2025-06-02T09:00:00", EndTime: "2025-06-02T10:00:00"})
	assert.Equal(t, 9, s.Start.Hour())
	assert.Equal(t, 10, s.End.Hour())
}
