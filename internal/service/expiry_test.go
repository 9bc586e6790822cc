package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeExpiry(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		class   int
		want    *time.Time
		wantErr error
	}{
		{
			name:  "never expires",
			class: 0,
			want:  nil,
		},
		{
			name:  "one day",
			class: 1,
			want:  timePtr(now.Add(24 * time.Hour)),
		},
		{
			name:  "seven days",
			class: 7,
			want:  timePtr(now.Add(7 * 24 * time.Hour)),
		},
		{
			name:  "thirty days",
			class: 30,
			want:  timePtr(now.Add(30 * 24 * time.Hour)),
		},
		{
			name:    "unknown positive class",
			class:   14,
			wantErr: ErrInvalidExpiration,
		},
		{
			name:    "negative class",
			class:   -1,
			wantErr: ErrInvalidExpiration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeExpiry(tt.class, now)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			assert.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
			} else {
				require.NotNil(t, got)
				assert.True(t, got.Equal(*tt.want), "want %v, got %v", *tt.want, *got)
			}
		})
	}
}

func TestComputeExpiry_Deterministic(t *testing.T) {
	now := time.Now().UTC()

	a, err := ComputeExpiry(7, now)
	require.NoError(t, err)
	b, err := ComputeExpiry(7, now)
	require.NoError(t, err)

	assert.True(t, a.Equal(*b))
}

func timePtr(t time.Time) *time.Time { return &t }
