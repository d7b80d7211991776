package moderation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterCheck(t *testing.T) {
	f := NewFilter([]string{"  Spam Link ", "", "casino"})

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"clean", "Weeknight pasta and sourdough experiments", nil},
		{"case insensitive", "Win at the CASINO tonight", []string{"casino"}},
		{"word bounded", "casinoroyale fan and escortee", nil},
		{"phrase across punctuation", "get FREE-money now", []string{"free money"}},
		{"extra keyword", "click my spam_link", []string{"spam link"}},
		{"multiple sorted", "xxx casino", []string{"casino", "xxx"}},
		{"empty", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.Check(tt.text))
		})
	}
}

func TestNilFilter(t *testing.T) {
	var f *Filter
	assert.Nil(t, f.Check("casino"))
}
