package venue

const (
	NoPhone      = "no phone"
	NoCategory   = "no category"
	NoHoursInfo  = "no info"
	NoDistance   = "000"
	ListNoAddr   = "Exact address unspecified"
	DetailNoAddr = "No address"
)

// Tip is one user tip attached to a venue.
type Tip struct {
	Text     string `json:"text"`
	PhotoURL string `json:"photo_url,omitempty"`
}

// HasPhoto reports whether the tip should be delivered as a photo.
func (t Tip) HasPhoto() bool {
	return t.PhotoURL != ""
}

// Summary is the normalized view of one explore result.
//
// Phone, Category, OpenHours and Distance always carry a value once mapped.
// Address stays empty when unknown because the listing and the detail view
// use different fallback labels.
type Summary struct {
	Name      string  `json:"name"`
	Address   string  `json:"address,omitempty"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Phone     string  `json:"phone"`
	Category  string  `json:"category"`
	OpenHours string  `json:"open_hours"`
	Distance  string  `json:"distance"`
	Tips      []Tip   `json:"tips,omitempty"`
}

// SearchResult is an ordered venue list addressed 1..N by display position.
type SearchResult []Summary

// At resolves a 1-based display index.
func (r SearchResult) At(index int) (Summary, bool) {
	if index < 1 || index > len(r) {
		return Summary{}, false
	}

	return r[index-1], true
}
