// Package parser turns one decision XML record into a decision.Decision.
package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
	"github.com/kailas-cloud/jurisdoc/internal/domain/decision"
)

// Element names read from a record.
const (
	ElemTitle     = "TITRE"
	ElemFormation = "FORMATION"
	ElemID        = "ID"
	ElemContent   = "CONTENU"
)

var lineBreaks = strings.NewReplacer("<br/>", "", "<br />", "", "<br>", "")

// Error reports a malformed record.
type Error struct {
	Offset int64
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s at byte %d: %v", domain.ErrParse, e.Offset, e.Err)
}

func (e *Error) Unwrap() []error { return []error{domain.ErrParse, e.Err} }

// Parser extracts title, formation, id and content from record blobs.
// It holds no state between calls and is safe for concurrent use.
type Parser struct{}

// New creates a Parser.
func New() *Parser { return &Parser{} }

// Parse decodes one record. See package Parse.
func (*Parser) Parse(blob []byte) (decision.Decision, error) { return Parse(blob) }

// leading captures the text of an element that precedes its first child.
type leading struct {
	seen  bool
	open  bool
	depth int
	text  strings.Builder
}

func (l *leading) start(depth int) {
	if l.seen {
		return
	}
	l.seen, l.open, l.depth = true, true, depth
}

func (l *leading) value() *string {
	return decision.Ptr(l.text.String())
}

// Parse decodes one record.
//
// The first TITRE, FORMATION and ID anywhere in the tree give their leading text.
// Each CONTENU gives its own and descendant text in document order with line-break
// markers removed; a later CONTENU replaces an earlier one. Empty values are absent.
func Parse(blob []byte) (decision.Decision, error) {
	dec := xml.NewDecoder(bytes.NewReader(blob))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		title, formation, id leading
		fields               = map[string]*leading{ElemTitle: &title, ElemFormation: &formation, ElemID: &id}
		depth                int
		sawRoot              bool
		contents             []*strings.Builder // open CONTENU captures, innermost last
		lastContent          *strings.Builder   // most recently started CONTENU
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return decision.Decision{}, &Error{Offset: dec.InputOffset(), Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if sawRoot && depth == 0 {
				return decision.Decision{}, &Error{
					Offset: dec.InputOffset(),
					Err:    fmt.Errorf("element <%s> after the root element", t.Name.Local),
				}
			}
			sawRoot = true
			depth++
			for _, f := range fields {
				f.open = false // a child element ends every leading capture
			}
			if f, ok := fields[t.Name.Local]; ok {
				f.start(depth)
			}
			if t.Name.Local == ElemContent {
				b := &strings.Builder{}
				contents = append(contents, b)
				lastContent = b
			}

		case xml.EndElement:
			for _, f := range fields {
				if f.open && f.depth == depth {
					f.open = false
				}
			}
			if t.Name.Local == ElemContent && len(contents) > 0 {
				contents = contents[:len(contents)-1]
			}
			depth--

		case xml.CharData:
			if sawRoot && depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return decision.Decision{}, &Error{Offset: dec.InputOffset(), Err: errors.New("text after the root element")}
			}
			for _, f := range fields {
				if f.open {
					f.text.Write(t)
				}
			}
			for _, b := range contents {
				b.Write(t)
			}
		}
	}

	if !sawRoot {
		return decision.Decision{}, &Error{Offset: dec.InputOffset(), Err: errors.New("no element found")}
	}

	var content *string
	if lastContent != nil {
		content = decision.Ptr(lineBreaks.Replace(lastContent.String()))
	}

	return decision.Reconstruct(id.text.String(), title.value(), formation.value(), content), nil
}
