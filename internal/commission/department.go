package commission

import "strings"

// Metropole is the department bucket for every postal code outside the
// overseas prefixes below.
const Metropole = "Métropole"

// overseasPrefixes maps the first three postal-code digits of the French
// overseas territories to their display name.
var overseasPrefixes = map[string]string{
	"974": "La Réunion",
	"972": "Martinique",
	"973": "Guyane",
	"971": "Guadeloupe",
	"976": "Mayotte",
	"987": "Polynésie Française",
	"988": "Nouvelle-Calédonie",
}

// Department derives the department bucket from a postal code.
func Department(postalCode string) string {
	pc := strings.TrimSpace(postalCode)
	if len(pc) < 3 {
		return Metropole
	}
	if name, ok := overseasPrefixes[pc[:3]]; ok {
		return name
	}
	return Metropole
}
