package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorTag(t *testing.T) {
	tests := []struct {
		name   string
		label  string
		tag    string
		tagged bool
	}{
		{name: "yellow is the default", label: "yellow", tagged: false},
		{name: "default is case insensitive", label: " Yellow ", tagged: false},
		{name: "chinese yellow is the default", label: "黄色", tagged: false},
		{name: "empty label", label: "", tagged: false},
		{name: "blue", label: "blue", tag: ".blue", tagged: true},
		{name: "chinese label kept as is", label: "蓝色", tag: ".蓝色", tagged: true},
		{name: "multi word label", label: "light blue", tag: ".light-blue", tagged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, ok := ColorTag(tt.label)
			assert.Equal(t, tt.tagged, ok)
			assert.Equal(t, tt.tag, tag)
		})
	}
}
