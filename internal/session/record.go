package session

import (
	"slices"

	"permisconnect/internal/models"
)

// RecordVersion is bumped whenever Record changes shape. A stored record
// with another version is discarded on load.
const RecordVersion = 1

// Record is everything the client persists on the device. It is always
// written as a whole so related fields cannot drift apart.
type Record struct {
	Version           int               `json:"version"`
	Token             string            `json:"token,omitempty"`
	Profile           *models.Profile   `json:"profile,omitempty"`
	SelectedAutoEcole *models.AutoEcole `json:"selectedAutoEcole,omitempty"`
	PaidCourses       []int64           `json:"paidCourses,omitempty"`
	HasPaid           bool              `json:"hasPaid,omitempty"`
	Courses           []models.Course   `json:"courses,omitempty"`
	LastTestScore     *float64          `json:"lastTestScore,omitempty"`
}

func newRecord() Record {
	return Record{Version: RecordVersion}
}

// clone deep-copies r so a failed save never leaks a half-applied mutation.
func (r Record) clone() Record {
	out := r
	if r.Profile != nil {
		p := *r.Profile
		if p.AutoEcole != nil {
			ae := *p.AutoEcole
			p.AutoEcole = &ae
		}
		out.Profile = &p
	}
	if r.SelectedAutoEcole != nil {
		ae := *r.SelectedAutoEcole
		out.SelectedAutoEcole = &ae
	}
	if r.LastTestScore != nil {
		s := *r.LastTestScore
		out.LastTestScore = &s
	}
	out.PaidCourses = slices.Clone(r.PaidCourses)
	out.Courses = slices.Clone(r.Courses)
	return out
}
