package drive

import "strings"

// FolderMimeType is the mime type Drive uses for folders.
const FolderMimeType = "application/vnd.google-apps.folder"

// RootFolderID is the alias Drive accepts for the root of My Drive.
const RootFolderID = "root"

type field int

const (
	fieldName field = iota
	fieldParent
	fieldMimeType
	fieldTrashed
)

// Predicate is one equality condition of a Drive search query.
type Predicate struct {
	field field
	value string
	flag  bool
}

// NameEquals matches files with exactly this name.
func NameEquals(name string) Predicate {
	return Predicate{field: fieldName, value: name}
}

// ParentEquals matches files directly inside folder id.
func ParentEquals(id string) Predicate {
	return Predicate{field: fieldParent, value: id}
}

// MimeTypeEquals matches files of this mime type.
func MimeTypeEquals(mimeType string) Predicate {
	return Predicate{field: fieldMimeType, value: mimeType}
}

// TrashedIs matches files by trash state.
func TrashedIs(trashed bool) Predicate {
	return Predicate{field: fieldTrashed, flag: trashed}
}

// String renders the predicate in Drive query syntax.
func (p Predicate) String() string {
	switch p.field {
	case fieldName:
		return "name = " + quote(p.value)
	case fieldParent:
		return quote(p.value) + " in parents"
	case fieldMimeType:
		return "mimeType = " + quote(p.value)
	case fieldTrashed:
		if p.flag {
			return "trashed = true"
		}
		return "trashed = false"
	default:
		return ""
	}
}

// Matches evaluates the predicate against file metadata.
func (p Predicate) Matches(f RemoteFile) bool {
	switch p.field {
	case fieldName:
		return f.Name == p.value
	case fieldParent:
		for _, parent := range f.Parents {
			if parent == p.value {
				return true
			}
		}
		return false
	case fieldMimeType:
		return f.MimeType == p.value
	case fieldTrashed:
		return f.Trashed == p.flag
	default:
		return false
	}
}

// Query is a conjunction of predicates.
type Query struct {
	preds []Predicate
}

// NewQuery joins predicates with "and".
func NewQuery(preds ...Predicate) Query {
	return Query{preds: preds}
}

// String renders the query in Drive query syntax.
func (q Query) String() string {
	parts := make([]string, 0, len(q.preds))
	for _, p := range q.preds {
		parts = append(parts, p.String())
	}
	return strings.Join(parts, " and ")
}

// Matches reports whether f satisfies every predicate.
func (q Query) Matches(f RemoteFile) bool {
	for _, p := range q.preds {
		if !p.Matches(f) {
			return false
		}
	}
	return true
}

var literalEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// quote renders s as a Drive query string literal.
func quote(s string) string {
	return "'" + literalEscaper.Replace(s) + "'"
}
