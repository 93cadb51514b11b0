// Package archive streams record files out of gzip-compressed tar bundles.
package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/kailas-cloud/jurisdoc/internal/domain"
)

// Defaults for NewReader.
const (
	DefaultMemberSuffix  = ".xml"
	DefaultMaxMemberSize = 64 << 20
)

// Member is one record file extracted from a bundle.
type Member struct {
	Name string
	Data []byte
}

// Error reports an unreadable bundle. Iteration stops after it.
type Error struct {
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("%s: %v", domain.ErrArchive, e.Err) }

func (e *Error) Unwrap() []error { return []error{domain.ErrArchive, e.Err} }

// MemberError reports a single member that could not be returned. Iteration may continue.
type MemberError struct {
	Name string
	Err  error
}

func (e *MemberError) Error() string { return fmt.Sprintf("member %s: %v", e.Name, e.Err) }

func (e *MemberError) Unwrap() error { return e.Err }

// ErrMemberTooLarge is wrapped by MemberError for members over the size cap.
var ErrMemberTooLarge = errors.New("member exceeds size limit")

// Option configures a Reader.
type Option func(*Reader)

// WithSuffix selects members by case-insensitive name suffix.
func WithSuffix(suffix string) Option {
	return func(r *Reader) { r.suffix = strings.ToLower(suffix) }
}

// WithMaxMemberSize caps the bytes read for one member.
func WithMaxMemberSize(n int64) Option {
	return func(r *Reader) {
		if n > 0 {
			r.maxSize = n
		}
	}
}

// Reader yields matching regular-file members lazily, one at a time.
// It is not restartable and not safe for concurrent use.
type Reader struct {
	gz      *gzip.Reader
	tr      *tar.Reader
	suffix  string
	maxSize int64
	err     error
}

// NewReader opens a gzip stream over r. An invalid gzip header returns *Error.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, &Error{Err: err}
	}
	rd := &Reader{
		gz:      gz,
		tr:      tar.NewReader(gz),
		suffix:  DefaultMemberSuffix,
		maxSize: DefaultMaxMemberSize,
	}
	for _, o := range opts {
		o(rd)
	}
	return rd, nil
}

// Next returns the next matching member, io.EOF at the end, *MemberError for a
// skipped member, or *Error once the stream is corrupt (sticky).
func (r *Reader) Next() (Member, error) {
	if r.err != nil {
		return Member{}, r.err
	}
	for {
		hdr, err := r.tr.Next()
		if errors.Is(err, io.EOF) {
			r.err = io.EOF
			return Member{}, io.EOF
		}
		if err != nil {
			r.err = &Error{Err: err}
			return Member{}, r.err
		}

		if !hdr.FileInfo().Mode().IsRegular() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(hdr.Name), r.suffix) {
			continue
		}
		if hdr.Size > r.maxSize {
			return Member{}, &MemberError{Name: hdr.Name, Err: ErrMemberTooLarge}
		}

		data, err := io.ReadAll(io.LimitReader(r.tr, r.maxSize))
		if err != nil {
			r.err = &Error{Err: fmt.Errorf("read %s: %w", hdr.Name, err)}
			return Member{}, r.err
		}
		return Member{Name: hdr.Name, Data: data}, nil
	}
}

// All iterates the remaining members. Member errors are yielded and iteration
// continues; a stream error is yielded last.
func (r *Reader) All() iter.Seq2[Member, error] {
	return func(yield func(Member, error) bool) {
		for {
			m, err := r.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(m, err) {
				return
			}
			var merr *MemberError
			if err != nil && !errors.As(err, &merr) {
				return
			}
		}
	}
}

// Close releases the gzip stream. It does not close the underlying reader.
func (r *Reader) Close() error {
	return r.gz.Close()
}
