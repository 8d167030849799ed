package es

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/LouYuanbo1/socialagent/internal/domain/model"
)

func TestStale(t *testing.T) {
	window := 30 * 24 * time.Hour

	tests := []struct {
		name  string
		doc   *model.ContactDoc
		found bool
		want  bool
	}{
		{
			name:  "记录不存在",
			doc:   nil,
			found: false,
			want:  true,
		},
		{
			name:  "存在但未评估",
			doc:   &model.ContactDoc{ProfileID: "a", Evaluated: false, UpdatedAt: time.Now()},
			found: true,
			want:  true,
		},
		{
			name:  "已评估且在窗口内",
			doc:   &model.ContactDoc{ProfileID: "b", Evaluated: true, UpdatedAt: time.Now().Add(-10 * 24 * time.Hour)},
			found: true,
			want:  false,
		},
		{
			name:  "已评估但超出窗口",
			doc:   &model.ContactDoc{ProfileID: "c", Evaluated: true, UpdatedAt: time.Now().Add(-31 * 24 * time.Hour)},
			found: true,
			want:  true,
		},
		{
			name:  "刚好在窗口边缘之内",
			doc:   &model.ContactDoc{ProfileID: "d", Evaluated: true, UpdatedAt: time.Now().Add(-29 * 24 * time.Hour)},
			found: true,
			want:  false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Stale(tt.doc, tt.found, window))
		})
	}
}
