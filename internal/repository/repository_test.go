package repository

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffset(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        int64
	}{
		{"first page", 1, 10, 0},
		{"third page", 3, 10, 20},
		{"page zero", 0, 10, 0},
		{"no limit", 5, 0, 0},
		{"overflow saturates", math.MaxInt, 100, math.MaxInt64},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Offset(tt.page, tt.limit))
		})
	}
}
