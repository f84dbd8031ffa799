package reference

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name          string
		input         string
		expectedOwner string
		expectedName  string
	}{
		{
			name:          "owner and name",
			input:         "https://github.com/acme/widget",
			expectedOwner: "acme",
			expectedName:  "widget",
		},
		{
			name:          "trailing slash",
			input:         "https://github.com/acme/widget/",
			expectedOwner: "acme",
			expectedName:  "widget",
		},
		{
			name:          "trailing segments",
			input:         "https://github.com/acme/widget/tree/main/docs",
			expectedOwner: "acme",
			expectedName:  "widget",
		},
		{
			name:          "query string and fragment",
			input:         "https://github.com/acme/widget?tab=readme#install",
			expectedOwner: "acme",
			expectedName:  "widget",
		},
		{
			name:          "repeated slashes",
			input:         "https://github.com//acme//widget",
			expectedOwner: "acme",
			expectedName:  "widget",
		},
		{
			name:          "other host",
			input:         "https://gitlab.example.com/team/project",
			expectedOwner: "team",
			expectedName:  "project",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedOwner, ref.Owner)
			assert.Equal(t, tc.expectedName, ref.Name)
			assert.Equal(t, tc.input, ref.Raw)
			assert.Equal(t, tc.expectedOwner+"/"+tc.expectedName, ref.Slug())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "not a url", input: "not-a-url"},
		{name: "empty", input: ""},
		{name: "host only", input: "https://github.com"},
		{name: "root path", input: "https://github.com/"},
		{name: "one segment", input: "https://github.com/acme"},
		{name: "one segment with slashes", input: "https://github.com//acme//"},
		{name: "bad escape", input: "https://github.com/%zz/widget"},
		{name: "missing scheme", input: "://github.com/acme/widget"},
		{name: "relative path", input: "acme/widget"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := Parse(tc.input)
			require.Error(t, err)
			assert.Empty(t, ref.Owner)
			assert.Empty(t, ref.Name)
			assert.ErrorIs(t, err, ErrInvalidReference)

			var refErr *InvalidReferenceError
			require.True(t, errors.As(err, &refErr))
			assert.Equal(t, tc.input, refErr.Input)
			assert.NotEmpty(t, refErr.Reason)
		})
	}
}
