package app

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntryRequest is the body of an add-entry call.
type EntryRequest struct {
	// CDN URLs of the uploaded images, in display order. Accepts a single
	// string or a list.
	ImageURLs ImageURLs `json:"imageUrls"`

	Caption string `json:"caption"`

	// Free text body, optional.
	Description string `json:"description"`

	// Where the entry is shown, e.g. "feed".
	Category string `json:"category"`
}

type ImageURLs []string

// Registration is what a successful Register returns.
type Registration struct {
	ID      int64 `json:"id"`
	IsAlbum bool  `json:"isAlbum"`
}

// Entry is one stored row as the listing endpoint shows it. Every field is
// the cell's display text.
type Entry struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Platform string `json:"platform"`
	Author   string `json:"author"`
	Date     string `json:"date"`

	// First image, used as the cover.
	ImageURL string `json:"imageUrl"`

	// All images joined with commas.
	Images  string `json:"images"`
	Caption string `json:"caption"`

	// "TRUE" when more than one image was registered.
	IsAlbum string `json:"isAlbum"`
}

func (u *ImageURLs) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*u = nil
		} else {
			*u = ImageURLs{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("imageUrls must be a string or a list of strings")
	}
	*u = many
	return nil
}

// Validate checks the required fields. Blank URLs inside the list count as
// missing.
func (r EntryRequest) Validate() error {
	var missing []string
	if len(r.ImageURLs) == 0 {
		missing = append(missing, "imageUrls")
	}
	for _, u := range r.ImageURLs {
		if strings.TrimSpace(u) == "" {
			missing = append(missing, "imageUrls")
			break
		}
	}
	if strings.TrimSpace(r.Caption) == "" {
		missing = append(missing, "caption")
	}
	if strings.TrimSpace(r.Category) == "" {
		missing = append(missing, "category")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
