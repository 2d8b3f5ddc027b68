package models

// Profile is the cached identity of the logged-in client.
type Profile struct {
	ID            int64         `json:"id"`
	Nom           string        `json:"nom"`
	Prenom        string        `json:"prenom"`
	Email         string        `json:"email"`
	Telephone     string        `json:"telephone"`
	Adresse       string        `json:"adresse"`
	DateNaissance string        `json:"dateNaissance,omitempty"`
	NumeroPermis  string        `json:"numeroPermis,omitempty"`
	TypePermis    string        `json:"typePermis,omitempty"`
	AutoEcole     *AutoEcoleRef `json:"autoEcole,omitempty"`
}

// FullName is "Prenom Nom", trimmed.
func (p Profile) FullName() string {
	return joinName(p.Prenom, p.Nom)
}

// ClientRequest is the body for POST /clients and PUT /clients/{id}.
type ClientRequest struct {
	Nom           string `json:"nom" validate:"required,min=2,max=200"`
	Prenom        string `json:"prenom" validate:"required,min=2,max=200"`
	Email         string `json:"email" validate:"required,email,max=200"`
	Password      string `json:"password,omitempty" validate:"required,min=6,max=100"`
	Telephone     string `json:"telephone" validate:"required,phone"`
	Adresse       string `json:"adresse" validate:"required"`
	DateNaissance string `json:"dateNaissance" validate:"required,datetime=2006-01-02"`
	NumeroPermis  string `json:"numeroPermis,omitempty"`
	TypePermis    string `json:"typePermis,omitempty"`
}

// ProfileUpdate is the editable subset of a profile.
type ProfileUpdate struct {
	Nom       string `json:"nom,omitempty" validate:"omitempty,min=2,max=200"`
	Prenom    string `json:"prenom,omitempty" validate:"omitempty,min=2,max=200"`
	Email     string `json:"email,omitempty" validate:"omitempty,email,max=200"`
	Telephone string `json:"telephone,omitempty" validate:"omitempty,phone"`
	Adresse   string `json:"adresse,omitempty"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginResponse is returned by POST /auth/login.
type LoginResponse struct {
	Token         string        `json:"token"`
	ID            int64         `json:"id"`
	User          LoginUser     `json:"user"`
	DateNaissance string        `json:"dateNaissance,omitempty"`
	NumeroPermis  string        `json:"numeroPermis,omitempty"`
	TypePermis    string        `json:"typePermis,omitempty"`
	AutoEcole     *AutoEcoleRef `json:"autoEcole,omitempty"`
}

// LoginUser is the nested user block of a login response.
type LoginUser struct {
	ID        int64  `json:"id"`
	Nom       string `json:"nom"`
	Prenom    string `json:"prenom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Adresse   string `json:"adresse"`
}

// Profile flattens the login response into the cached profile.
func (r LoginResponse) Profile() Profile {
	id := r.ID
	if id == 0 {
		id = r.User.ID
	}
	return Profile{
		ID:            id,
		Nom:           r.User.Nom,
		Prenom:        r.User.Prenom,
		Email:         r.User.Email,
		Telephone:     r.User.Telephone,
		Adresse:       r.User.Adresse,
		DateNaissance: r.DateNaissance,
		NumeroPermis:  r.NumeroPermis,
		TypePermis:    r.TypePermis,
		AutoEcole:     r.AutoEcole,
	}
}
