package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/careerplatform/admissions-api/pkg/errors"
)

func TestCanonicalizeFoldsCase(t *testing.T) {
	record := SubjectRecord{"Maths": "B", " English ": "C"}

	canonical, err := record.Canonicalize()
	require.NoError(t, err)
	assert.Equal(t, SubjectRecord{"maths": "B", "english": "C"}, canonical)
}

func TestCanonicalizeNilStaysNil(t *testing.T) {
	var record SubjectRecord

	canonical, err := record.Canonicalize()
	require.NoError(t, err)
	assert.Nil(t, canonical)
}

func TestCanonicalizeRejectsCollision(t *testing.T) {
	record := SubjectRecord{"Maths": "A", "maths": "B"}

	_, err := record.Canonicalize()
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrSubjectCollision.Code, appErrors.FromError(err).Code)
}

func TestSubjectRecordRoundTrip(t *testing.T) {
	record := SubjectRecord{"maths": "B", "science": "C"}

	raw, err := record.Value()
	require.NoError(t, err)

	var decoded SubjectRecord
	require.NoError(t, decoded.Scan(raw))
	assert.Equal(t, record, decoded)

	var fromNil SubjectRecord
	require.NoError(t, fromNil.Scan(nil))
	assert.Equal(t, SubjectRecord{}, fromNil)
}
