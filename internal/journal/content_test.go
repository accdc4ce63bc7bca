package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	c := newCleaner()
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "plain text untouched", input: "Slept well, 8h.", want: "Slept well, 8h."},
		{name: "tags stripped", input: "<h1>Day</h1><p>good</p>", want: "Daygood"},
		{name: "entities decoded", input: "fish &amp; chips", want: "fish & chips"},
		{name: "invalid utf-8 dropped", input: "ok\xff\xfeok", want: "okok"},
		{name: "unicode kept", input: "Müde, aber glücklich ☀", want: "Müde, aber glücklich ☀"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Clean(tt.input))
		})
	}
}
