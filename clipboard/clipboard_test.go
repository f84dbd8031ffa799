package clipboard

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockClipboard struct {
	mock.Mock
}

func (m *MockClipboard) Copy(text string) (bool, error) {
	args := m.Called(text)
	return args.Bool(0), args.Error(1)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("closed") }

func TestOSC52Copy(t *testing.T) {
	const url = "https://github.com/acme/widget"
	encoded := base64.StdEncoding.EncodeToString([]byte(url))

	for _, mode := range []string{"", "tmux", "screen"} {
		t.Run("mode="+mode, func(t *testing.T) {
			var buf bytes.Buffer
			copied, err := NewOSC52(&buf, mode).Copy(url)
			require.NoError(t, err)
			assert.True(t, copied)

			out := buf.String()
			assert.Contains(t, out, "]52;")
			assert.Contains(t, out, encoded)
			switch mode {
			case "tmux":
				assert.True(t, strings.HasPrefix(out, "\x1bPtmux;"))
			case "screen":
				assert.True(t, strings.HasPrefix(out, "\x1bP"))
			default:
				assert.True(t, strings.HasPrefix(out, "\x1b]52;"))
			}
		})
	}
}

func TestOSC52CopyWriteError(t *testing.T) {
	copied, err := NewOSC52(failingWriter{}, "").Copy("https://github.com/acme/widget")
	assert.False(t, copied)
	assert.Error(t, err)
}

func TestActionCopy(t *testing.T) {
	testCases := []struct {
		name       string
		copied     bool
		err        error
		expected   bool
		expectNote bool
	}{
		{name: "copied", copied: true, expected: true, expectNote: true},
		{name: "clipboard unavailable", copied: false, expected: false},
		{name: "write failure is swallowed", copied: false, err: assert.AnError, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clip := &MockClipboard{}
			clip.On("Copy", "https://github.com/acme/widget").Return(tc.copied, tc.err).Once()

			var notes []string
			action := NewAction(clip, NotifierFunc(func(msg string) { notes = append(notes, msg) }))

			assert.Equal(t, tc.expected, action.Copy(context.Background(), "https://github.com/acme/widget"))
			if tc.expectNote {
				assert.Equal(t, []string{Confirmation}, notes)
			} else {
				assert.Empty(t, notes)
			}
			clip.AssertExpectations(t)
		})
	}
}

func TestActionCopyCancelled(t *testing.T) {
	clip := &MockClipboard{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.False(t, NewAction(clip, nil).Copy(ctx, "https://github.com/acme/widget"))
	clip.AssertNotCalled(t, "Copy", mock.Anything)
}

func TestActionCopyWithoutNotifier(t *testing.T) {
	clip := &MockClipboard{}
	clip.On("Copy", mock.Anything).Return(true, nil)
	assert.True(t, NewAction(clip, nil).Copy(context.Background(), "https://github.com/acme/widget"))
}
