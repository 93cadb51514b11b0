package decision

import (
	"fmt"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
)

// MaxIDLength bounds the identifier so it stays usable as a store key suffix.
const MaxIDLength = 512

// Decision is one court decision (immutable value object).
// Optional fields are nil when the record did not carry them.
type Decision struct {
	id        string
	title     *string
	formation *string
	content   *string
}

// New validates and creates a Decision. The id must be non-empty.
func New(id string, title, formation, content *string) (Decision, error) {
	d := Reconstruct(id, title, formation, content)
	if err := d.Validate(); err != nil {
		return Decision{}, err
	}
	return d, nil
}

// Reconstruct creates a Decision without validation (parser output, storage hydration).
func Reconstruct(id string, title, formation, content *string) Decision {
	return Decision{
		id:        id,
		title:     clonePtr(title),
		formation: clonePtr(formation),
		content:   clonePtr(content),
	}
}

// ID returns the upstream identifier. Empty when the record had none.
func (d *Decision) ID() string { return d.id }

// Title returns the title or nil.
func (d *Decision) Title() *string { return d.title }

// Formation returns the court formation or nil.
func (d *Decision) Formation() *string { return d.formation }

// Content returns the decision text or nil.
func (d *Decision) Content() *string { return d.content }

// HasID reports whether the decision can be persisted.
func (d *Decision) HasID() bool { return d.id != "" }

// Validate reports whether the decision can be persisted under its id.
func (d *Decision) Validate() error {
	if d.id == "" {
		return domain.ErrMissingID
	}
	if len(d.id) > MaxIDLength {
		return fmt.Errorf("%w: %d bytes, max %d", domain.ErrIDTooLong, len(d.id), MaxIDLength)
	}
	return nil
}

// Summary projects the decision to {id, title}.
func (d *Decision) Summary() Summary {
	return Summary{ID: d.id, Title: clonePtr(d.title)}
}

// Full projects the decision to {id, title, content}.
func (d *Decision) Full() Full {
	return Full{ID: d.id, Title: clonePtr(d.title), Content: clonePtr(d.content)}
}

// Summary is the list projection.
type Summary struct {
	ID    string  `json:"id"`
	Title *string `json:"title"`
}

// Full is the detail projection.
type Full struct {
	ID      string  `json:"id"`
	Title   *string `json:"title"`
	Content *string `json:"content"`
}

// Ptr returns a pointer to s, or nil when s is empty.
func Ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
