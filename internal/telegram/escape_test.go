package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "hello", want: "hello"},
		{name: "spaces and newline", in: "a b\nc", want: "a%20b%0Ac"},
		{name: "quotes and ampersand", in: `say "a&b"`, want: "say%20%22a%26b%22"},
		{name: "percent escaped before its own escapes", in: "50% off\n", want: "50%25%20off%0A"},
		{name: "literal escape sequence survives", in: "%20", want: "%2520"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeText(tt.in))
		})
	}
}
