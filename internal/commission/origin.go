package commission

import "github.com/sells-group/commission-cli/internal/model"

var (
	facebookMarkers     = []string{"fb", "facebook", "site"}
	tiktokMarkers       = []string{"tiktok", "tik"}
	prescriptionMarkers = []string{"prescription", "medecin", "docteur", "hopital", "clinique", "pharmacie"}
)

// NormalizeOrigin maps a free-text lead source onto the four-channel taxonomy.
// Rules are evaluated in order and the first match wins; anything unmatched,
// including empty and "Non spécifié", is Backoffice.
func NormalizeOrigin(raw string) model.Origin {
	s := fold(raw)
	switch {
	case containsAny(s, facebookMarkers...):
		return model.OriginFacebook
	case containsAny(s, tiktokMarkers...):
		return model.OriginTikTok
	case containsAny(s, prescriptionMarkers...):
		return model.OriginPrescription
	default:
		return model.OriginBackoffice
	}
}
