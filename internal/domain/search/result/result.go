package result

// Result is a single search hit.
type Result struct {
	id      string
	score   float64
	title   *string
	content *string
}

// New creates a search result. Nil title or content means the field is absent.
func New(id string, score float64, title, content *string) Result {
	return Result{id: id, score: score, title: title, content: content}
}

// ID returns the decision identifier.
func (r *Result) ID() string { return r.id }

// Score returns the relevance score.
func (r *Result) Score() float64 { return r.score }

// Title returns the decision title or nil.
func (r *Result) Title() *string { return r.title }

// Content returns the decision text or nil.
func (r *Result) Content() *string { return r.content }

// Hit is the search response projection.
type Hit struct {
	ID      string  `json:"id"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
	Score   float64 `json:"score"`
}

// Hit projects the result for transport.
func (r *Result) Hit() Hit {
	return Hit{ID: r.id, Title: r.title, Content: r.content, Score: r.score}
}
