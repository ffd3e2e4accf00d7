package models

// Prediction is one ranked autocomplete suggestion.
type Prediction struct {
	PlaceID       string `json:"place_id"`
	MainText      string `json:"main_text"`
	SecondaryText string `json:"secondary_text"`
}

// PlaceDetails is the resolved form of a selected prediction.
type PlaceDetails struct {
	Name             string  `json:"name"`
	FormattedAddress string  `json:"formatted_address"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
}

// LatLng is a coordinate pair.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// FinalDestination is the ephemeral, client-only navigation target.
// It is never persisted; it only seeds a navigation request.
type FinalDestination struct {
	Name     string `json:"name"`
	Location LatLng `json:"location"`
}
