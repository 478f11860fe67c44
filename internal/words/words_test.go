package words

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticPick(t *testing.T) {
	picker := NewStatic([]Word{{Theme: "동물", Text: "고양이"}, {Theme: "음식", Text: "피자"}})
	picker.intn = func(n int) int { return n - 1 }

	word, err := picker.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Word{Theme: "음식", Text: "피자"}, word)
}

func TestStaticPickEmpty(t *testing.T) {
	_, err := NewStatic(nil).Pick(context.Background())
	assert.ErrorIs(t, err, ErrEmptyLibrary)
}

func TestLibraryWithoutDatabaseUsesFallback(t *testing.T) {
	library := NewLibrary(nil, NewStatic(Defaults[:1]))
	word, err := library.Pick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Defaults[0], word)

	_, err = NewLibrary(nil, nil).Pick(context.Background())
	assert.ErrorIs(t, err, ErrEmptyLibrary)
}
