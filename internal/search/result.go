package search

// Result is the provider-independent shape of one playable search hit.
// Every provider maps its own output to this record.
type Result struct {
	URL         string
	Title       string
	Duration    string
	Thumbnail   string
	Author      string
	Description string
}

// Label returns a short human readable name for the result.
func (r Result) Label() string {
	if r.Title != "" {
		return r.Title
	}
	return r.URL
}
