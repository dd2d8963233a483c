package dto

import (
	"github.com/confcentral/confcentral/internal/model"
	"github.com/confcentral/confcentral/internal/service"
)

// ProfileRequest represents the request body for saving a profile.
type ProfileRequest struct {
	DisplayName  *string `json:"displayName,omitempty"`
	TeeShirtSize *string `json:"teeShirtSize,omitempty"`
}

// ProfileResponse represents a profile in API responses.
type ProfileResponse struct {
	DisplayName            string             `json:"displayName"`
	MainEmail              string             `json:"mainEmail"`
	TeeShirtSize           model.TeeShirtSize `json:"teeShirtSize"`
	ConferenceKeysToAttend []string           `json:"conferenceKeysToAttend"`
}

// ToUpdate converts the request into a service profile update.
func (r ProfileRequest) ToUpdate() service.ProfileUpdate {
	return service.ProfileUpdate{
		DisplayName:  r.DisplayName,
		TeeShirtSize: r.TeeShirtSize,
	}
}

// ToProfileResponse converts a profile to a response DTO.
func ToProfileResponse(p *model.Profile) ProfileResponse {
	keys := p.ConferenceKeysToAttend
	if keys == nil {
		keys = []string{}
	}
	return ProfileResponse{
		DisplayName:            p.DisplayName,
		MainEmail:              p.MainEmail,
		TeeShirtSize:           p.TeeShirtSize,
		ConferenceKeysToAttend: keys,
	}
}
