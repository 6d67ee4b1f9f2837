package crawler

// PageMap represents the analyzed structure of a web page
type PageMap struct {
	URL      string   `json:"url"`
	Title    string   `json:"title"`
	Elements []Target `json:"elements"`
}

// Target is an element a macro step could address
type Target struct {
	Selector string `json:"selector"`
	Type     string `json:"type"` // button, link, checkbox, radio, region, iframe
	Text     string `json:"text,omitempty"`
}
