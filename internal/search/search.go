package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Owner   string `json:"owner"`
	Verdict string `json:"verdict,omitempty"`
	Score   int    `json:"score,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text          string
	FilterOwner   string
	FilterVerdict string // GO, REFINE, or PIVOT; empty = all
	Limit         int
	Offset        int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search over ideas.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// IdeaRecord is the data we index for an idea.
type IdeaRecord struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Market   string `json:"market"`
	Owner    string `json:"owner"`
	Verdict  string `json:"verdict"`
	Score    int    `json:"score"`
}
