package models

import "time"

// Participant is one stored registration. Rows are created by the
// registration flow and removed by admin actions, never updated.
type Participant struct {
	ID           int64
	FirstName    string
	LastName     string
	Address      string
	City         string
	Email        string
	Phone        string
	Age          int
	HeightCm     int
	WeightKg     float64
	RegisteredAt time.Time
}

// ParticipantInput is the raw sign-up form as submitted, one string per field.
type ParticipantInput struct {
	FirstName string
	LastName  string
	Address   string
	City      string
	Email     string
	Phone     string
	Age       string
	HeightCm  string
	WeightKg  string
}

// Map returns the input keyed by form field name, for re-populating the form.
func (in ParticipantInput) Map() map[string]string {
	return map[string]string{
		"first_name": in.FirstName,
		"last_name":  in.LastName,
		"address":    in.Address,
		"city":       in.City,
		"email":      in.Email,
		"phone":      in.Phone,
		"age":        in.Age,
		"height_cm":  in.HeightCm,
		"weight_kg":  in.WeightKg,
	}
}

// ParticipantInputFromMap is the inverse of Map. Missing keys read as empty.
func ParticipantInputFromMap(m map[string]string) ParticipantInput {
	return ParticipantInput{
		FirstName: m["first_name"],
		LastName:  m["last_name"],
		Address:   m["address"],
		City:      m["city"],
		Email:     m["email"],
		Phone:     m["phone"],
		Age:       m["age"],
		HeightCm:  m["height_cm"],
		WeightKg:  m["weight_kg"],
	}
}

// PublicEntry is what the public list shows about a participant.
type PublicEntry struct {
	FirstName       string
	LastNameInitial string
	City            string
}
