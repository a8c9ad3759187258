package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	t.Parallel()
	p := NewTelegramPolicy()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: "  hi there ", want: "hi there"},
		{name: "empty", in: "   ", want: ""},
		{name: "emphasis", in: "this is **bold** and _soft_", want: "this is bold and soft"},
		{name: "persian", in: "**سلام** دوست من", want: "سلام دوست من"},
		{name: "heading and paragraph", in: "# Title\n\nBody text", want: "Title\n\nBody text"},
		{name: "list", in: "- one\n- two", want: "• one\n• two"},
		{name: "html is dropped", in: "<script>alert(1)</script>safe", want: "safe"},
		{name: "inline html", in: "hello <b>x</b>", want: "hello x"},
		{name: "entities", in: "a & b < c", want: "a & b < c"},
		{name: "link keeps text", in: "see [docs](https://example.com)", want: "see docs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, p.Text(tt.in))
		})
	}
}
