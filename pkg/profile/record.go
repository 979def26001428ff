package profile

import (
	"fmt"
	"strings"
	"time"

	errs "profilesync/pkg/errors"
)

// Record is one subject's normalized attributes, held in declared field
// order. Link fields carry their raw URLs; presentation values are derived
// when a row tuple is built.
type Record struct {
	values []string
}

// NewRecord normalizes a raw field-value mapping into a Record. Every
// declared field is present afterwards (empty string if absent). Unknown
// raw keys are rejected here, at the normalization boundary. The reference
// instant is captured once per record and all relative dates resolve
// against it. Pure function of its inputs.
func NewRecord(raw map[string]string, ref time.Time) (*Record, error) {
	for key := range raw {
		if _, ok := fieldIndex[key]; !ok {
			return nil, errs.Newf(errs.ErrorTypeParsing, "unknown field %q", key)
		}
	}

	values := make([]string, len(Schema))
	for i, f := range Schema {
		v := raw[f.Name]
		switch f.Kind {
		case FieldIdentity, FieldCapture:
			values[i] = CleanText(v)
		case FieldDate:
			values[i] = ResolveRelativeDate(CleanValue(v), ref)
		default:
			values[i] = CleanValue(v)
		}
	}

	return &Record{values: values}, nil
}

// Identity returns the case-normalized unique key, empty if missing
func (r *Record) Identity() string {
	i, _ := IndexOf(FieldNickname)
	return strings.ToLower(strings.TrimSpace(r.values[i]))
}

// DisplayIdentity returns the nickname as scraped
func (r *Record) DisplayIdentity() string {
	i, _ := IndexOf(FieldNickname)
	return r.values[i]
}

// Value returns the normalized value of a declared field
func (r *Record) Value(name string) (string, bool) {
	i, ok := IndexOf(name)
	if !ok {
		return "", false
	}
	return r.values[i], true
}

// SetValue overwrites the value of a declared field
func (r *Record) SetValue(name, value string) error {
	i, ok := IndexOf(name)
	if !ok {
		return errs.Newf(errs.ErrorTypeParsing, "unknown field %q", name)
	}
	r.values[i] = value
	return nil
}

// Values returns a copy of the normalized values in field order
func (r *Record) Values() []string {
	out := make([]string, len(r.values))
	copy(out, r.values)
	return out
}

// RowValues returns the presentation tuple written to the profiles table.
// Link fields do not hold their URLs in the cell: IMAGE stays empty until
// the formula pass, PROFILE LINK and LAST POST hold short labels.
func (r *Record) RowValues() []string {
	out := make([]string, len(Schema))
	for i, f := range Schema {
		v := r.values[i]
		if f.Kind != FieldLink {
			out[i] = v
			continue
		}
		switch f.Name {
		case FieldImage:
			out[i] = ""
		case FieldProfileLink:
			if v != "" {
				out[i] = "Profile"
			}
		case FieldLastPost:
			if v != "" {
				out[i] = "Post"
			}
		}
	}
	return out
}

// Links returns the non-empty raw URLs of the link-bearing fields
func (r *Record) Links() map[string]string {
	links := make(map[string]string)
	for i, f := range Schema {
		if f.Kind == FieldLink && r.values[i] != "" {
			links[f.Name] = r.values[i]
		}
	}
	return links
}

// LinkFormula builds the cell formula for a link-bearing field
func LinkFormula(name, url string) string {
	switch name {
	case FieldImage:
		return fmt.Sprintf(`=IMAGE(%q, 4, 50, 50)`, url)
	case FieldLastPost:
		return fmt.Sprintf(`=HYPERLINK(%q, "Post")`, url)
	default:
		return fmt.Sprintf(`=HYPERLINK(%q, "Profile")`, url)
	}
}
