package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/meetsight/internal/core/domain"
)

func TestExtensions(t *testing.T) {
	assert.Equal(t, []string{".txt"}, New().Extensions())
}

func TestNormalise(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "unchanged", raw: "Ana: hello\nBen: hi", want: "Ana: hello\nBen: hi"},
		{name: "byte order mark", raw: "\xEF\xBB\xBFAna: hello", want: "Ana: hello"},
		{name: "windows line endings", raw: "Ana: hello\r\nBen: hi\r\n", want: "Ana: hello\nBen: hi"},
		{name: "old mac line endings", raw: "Ana: hello\rBen: hi", want: "Ana: hello\nBen: hi"},
		{name: "trailing spaces", raw: "Ana: hello   \nBen: hi\t", want: "Ana: hello\nBen: hi"},
		{name: "blank line runs", raw: "Ana: hello\n\n\n\nBen: hi", want: "Ana: hello\n\nBen: hi"},
		{name: "only whitespace", raw: " \n\n \t", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New().Normalise(context.Background(), []byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalise_RejectsBinary(t *testing.T) {
	_, err := New().Normalise(context.Background(), []byte{'R', 'I', 'F', 'F', 0, 0, 1, 2})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Normalise(context.Background(), []byte{0xff, 0xfe, 'a'})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
