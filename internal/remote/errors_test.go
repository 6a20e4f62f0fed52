package remote

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	testCases := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "full",
			err:  &Error{Status: 404, Code: "object_not_found", Message: "Could not find database"},
			want: "Notion API Error (404): Could not find database (object_not_found)",
		},
		{
			name: "fallbacks",
			err:  &Error{Status: 502},
			want: "Notion API Error (502): Unknown Notion API Error (Unknown Code)",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestIsNotFound(t *testing.T) {
	wrapped := fmt.Errorf("fetch schema: %w", NotFound("table %q", "tasks"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(Invalid("bad")))
	assert.False(t, IsNotFound(fmt.Errorf("plain")))

	re, ok := AsError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeObjectNotFound, re.Code)
}
