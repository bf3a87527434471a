package helpdesk

// Source is a help-desk article cited by a synthesized answer.
type Source struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Answer is the result of a remote search-and-answer request.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
	Query   string   `json:"query,omitempty"`
}
