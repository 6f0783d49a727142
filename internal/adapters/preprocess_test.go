package adapters

import (
	"errors"
	"testing"

	apperrors "github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreprocess(t *testing.T) {
	tests := []struct {
		name  string
		image []byte
	}{
		{"upscales small png", testPNG(t, 10, 10)},
		{"downscales large png", testPNG(t, 600, 400)},
		{"grayscale jpeg", testJPEG(t, 150, 150)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tensor, err := Preprocess(tt.image)
			require.NoError(t, err)
			require.Len(t, tensor, InputSize)
			for _, row := range tensor {
				require.Len(t, row, InputSize)
				for _, px := range row {
					for _, ch := range px {
						assert.GreaterOrEqual(t, ch, float32(0))
						assert.LessOrEqual(t, ch, float32(1))
					}
				}
			}
		})
	}
}

func TestPreprocess_KeepsLayout(t *testing.T) {
	tensor, err := Preprocess(testPNG(t, 20, 20))
	require.NoError(t, err)

	assert.Equal(t, [3]float32{1, 0, 0}, tensor[75][0])
	assert.Equal(t, [3]float32{0, 0, 1}, tensor[75][InputSize-1])
}

func TestPreprocess_Undecodable(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"garbage": []byte("definitely not an image"),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Preprocess(data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrAdapter))

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, apperrors.AdapterUndecodable, appErr.Kind)
		})
	}
}
