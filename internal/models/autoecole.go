package models

// AutoEcole is a driving school from the directory.
type AutoEcole struct {
	ID          int64  `json:"id"`
	Nom         string `json:"nom"`
	Adresse     string `json:"adresse"`
	Telephone   string `json:"telephone"`
	Email       string `json:"email,omitempty"`
	Siret       string `json:"siret,omitempty"`
	CodePostal  string `json:"codePostal,omitempty"`
	Ville       string `json:"ville,omitempty"`
	SiteWeb     string `json:"siteWeb,omitempty"`
	Description string `json:"description,omitempty"`
	Horaires    string `json:"horaires,omitempty"`
}

// AutoEcoleRef is the short form embedded in a profile.
type AutoEcoleRef struct {
	ID  int64  `json:"id"`
	Nom string `json:"nom"`
}

// AssignAutoEcoleRequest is the body for PUT /clients/{id}/auto-ecole.
type AssignAutoEcoleRequest struct {
	AutoEcoleID int64 `json:"autoEcoleId"`
}
