package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePermutation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		n     int
		want  []int
	}{
		{"clean", "3,1,2", 3, []int{2, 0, 1}},
		{"spaces and prose", "The best order is: 2, 1", 2, []int{1, 0}},
		{"out of range dropped", "5,1,2", 3, []int{0, 1}},
		{"zero dropped", "0,1", 2, []int{0}},
		{"duplicates keep first", "1,1,2", 2, []int{0, 1}},
		{"empty reply", "", 3, nil},
		{"no digits", "I cannot rank these.", 3, nil},
		{"all invalid", "9,8,7", 3, nil},
		{"partial is fine", "2", 3, []int{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePermutation(tt.reply, tt.n))
		})
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		reply string
		want  QueryKind
		ok    bool
	}{
		{"expert", KindDirectExpert, true},
		{"project", KindProjectBased, true},
		{"This is a PROJECT search.", KindProjectBased, true},
		{"definitely an expert lookup", KindDirectExpert, true},
		{"", "", false},
		{"banana", "", false},
	}

	for _, tt := range tests {
		kind, ok := parseKind(tt.reply)
		assert.Equal(t, tt.ok, ok, tt.reply)
		if ok {
			assert.Equal(t, tt.want, kind, tt.reply)
		}
	}
}

func TestParseLines(t *testing.T) {
	reply := "1. senior fintech advisor\n- payments compliance lead\n\n\"regtech strategist\"\n"

	lines := parseLines(reply, 3)

	assert.Equal(t, []string{
		"senior fintech advisor",
		"payments compliance lead",
		"regtech strategist",
	}, lines)
}

func TestParseLines_CapsAtMax(t *testing.T) {
	lines := parseLines("a\nb\nc\nd", 2)

	assert.Len(t, lines, 2)
}

func TestParseCommaList(t *testing.T) {
	keywords := parseCommaList("supply chain, logistics,  ports \nfreight", 10)

	assert.Equal(t, []string{"supply chain", "logistics", "ports", "freight"}, keywords)
}
