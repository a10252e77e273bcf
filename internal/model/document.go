package model

// Document is a raw place returned by a place-search source, before validation.
// Coordinates stay as strings because upstream APIs send them that way.
type Document struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category,omitempty"`
	RoadAddress string `json:"road_address,omitempty"`
	Address     string `json:"address,omitempty"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

// SearchPage is one page of place-search results
type SearchPage struct {
	Documents  []Document `json:"documents"`
	IsLastPage bool       `json:"is_last_page"`
}
