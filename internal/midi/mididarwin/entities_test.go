package mididarwin

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntityIndex(t *testing.T) {
	index := entityIndex[uint32]{}
	index.add("Port 1", 10, 11)
	index.add("Port 2", 12)
	index.add("Port 3", 11)

	tests := []struct {
		name     string
		endpoint uint32
		want     string
	}{
		{"first endpoint", 10, "Port 1"},
		{"shared endpoint keeps first owner", 11, "Port 1"},
		{"second entity", 12, "Port 2"},
		{"virtual destination", 99, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, index.name(tt.endpoint))
		})
	}
}
