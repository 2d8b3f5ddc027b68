package models

import "strings"

// Moniteur is a driving instructor attached to an auto-école.
type Moniteur struct {
	ID          int64  `json:"id"`
	Nom         string `json:"nom"`
	Prenom      string `json:"prenom"`
	Email       string `json:"email,omitempty"`
	Telephone   string `json:"telephone,omitempty"`
	AutoEcoleID int64  `json:"autoEcoleId"`
}

// FullName is "Prenom Nom", trimmed.
func (m Moniteur) FullName() string {
	return joinName(m.Prenom, m.Nom)
}

func joinName(first, last string) string {
	return strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
}
