package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipantInput_MapRoundTrip(t *testing.T) {
	in := ParticipantInput{
		FirstName: "Anna", LastName: "Nowak", Address: "ul. Długa 1", City: "Kraków",
		Email: "anna@example.com", Phone: "+48 600 100 200", Age: "31", HeightCm: "170", WeightKg: "62,5",
	}
	m := in.Map()
	assert.Len(t, m, 9)
	assert.Equal(t, "62,5", m["weight_kg"])
	assert.Equal(t, in, ParticipantInputFromMap(m))
}

func TestParticipantInputFromMap_Missing(t *testing.T) {
	assert.Equal(t, ParticipantInput{City: "Zakopane"}, ParticipantInputFromMap(map[string]string{"city": "Zakopane"}))
	assert.Equal(t, ParticipantInput{}, ParticipantInputFromMap(nil))
}
