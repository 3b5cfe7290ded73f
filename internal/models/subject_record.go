package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

// SubjectRecord maps subject names to grades. It represents either a
// student's academic record or a course's minimum-grade requirements.
// Subject lookups are case-insensitive; CanonicalizeSubjects produces the
// lowercase form used for comparison.
type SubjectRecord map[string]Grade

// CanonicalSubject returns the single casing used for subject comparison.
func CanonicalSubject(subject string) string {
	return strings.ToLower(strings.TrimSpace(subject))
}

// Canonicalize returns a copy of the record with case-folded subject keys.
// Two distinct keys collapsing into one is corrupt input, not something to
// merge silently.
func (r SubjectRecord) Canonicalize() (SubjectRecord, error) {
	if r == nil {
		return nil, nil
	}
	out := make(SubjectRecord, len(r))
	for subject, grade := range r {
		key := CanonicalSubject(subject)
		if _, seen := out[key]; seen {
			return nil, appErrors.Clone(appErrors.ErrSubjectCollision, fmt.Sprintf("subject %q appears more than once after normalization", key))
		}
		out[key] = grade
	}
	return out, nil
}

// Value implements driver.Valuer so records persist as JSONB.
func (r SubjectRecord) Value() (driver.Value, error) {
	if r == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB columns.
func (r *SubjectRecord) Scan(src interface{}) error {
	if src == nil {
		*r = SubjectRecord{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported subject record source type %T", src)
	}
	return json.Unmarshal(raw, r)
}
