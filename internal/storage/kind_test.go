package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		input string
		want  ContentKind
	}{
		{"notes", KindNotes},
		{"practice-tests", KindPracticeTests},
		{"practicals", KindPracticals},
		{"assignments", KindAssignments},
		{"  notes  ", KindNotes},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			kind, err := ParseKind(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, kind)
		})
	}
}

func TestParseKind_Invalid(t *testing.T) {
	for _, input := range []string{"", "lectures", "Notes", "practice_tests"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseKind(input)
			require.Error(t, err)
			assert.Equal(t, CodeInvalidKind, ErrCode(err))
		})
	}
}

func TestRequiresUnit(t *testing.T) {
	assert.True(t, KindNotes.RequiresUnit())
	assert.False(t, KindPracticeTests.RequiresUnit())
	assert.False(t, KindPracticals.RequiresUnit())
	assert.False(t, KindAssignments.RequiresUnit())
}

func TestKindSegments(t *testing.T) {
	assert.Equal(t, "notes", KindNotes.Segment())
	assert.Equal(t, "practice-tests", KindPracticeTests.Segment())
	assert.Equal(t, "practicals", KindPracticals.Segment())
	assert.Equal(t, "assignments", KindAssignments.Segment())
}
