package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSplitter(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
		wantErr       bool
	}{
		{name: "OK", size: 512, overlap: 50, wantErr: false},
		{name: "No overlap", size: 10, overlap: 0, wantErr: false},
		{name: "Zero size", size: 0, overlap: 0, wantErr: true},
		{name: "Overlap eq size", size: 10, overlap: 10, wantErr: true},
		{name: "Negative overlap", size: 10, overlap: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSplitter(tt.size, tt.overlap)
			assert.Equal(t, tt.wantErr, err != nil)
		})
	}
}

func TestSplit_Empty(t *testing.T) {
	s, err := NewSplitter(10, 2)
	require.Nil(t, err)
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split("   \n\t  "))
}

func TestSplit_Short(t *testing.T) {
	s, err := NewSplitter(100, 10)
	require.Nil(t, err)
	res := s.Split("one two three")
	assert.Equal(t, []string{"one two three"}, res)
}

func TestSplit_SizeBound(t *testing.T) {
	s, err := NewSplitter(20, 5)
	require.Nil(t, err)
	text := strings.Repeat("word five ", 30)
	res := s.Split(text)
	require.Greater(t, len(res), 1)
	for _, ch := range res {
		assert.LessOrEqual(t, len([]rune(ch)), 20)
		assert.NotEmpty(t, ch)
	}
}

func TestSplit_WordBoundary(t *testing.T) {
	s, err := NewSplitter(10, 2)
	require.Nil(t, err)
	res := s.Split("aaa bbb ccc ddd eee")
	require.Greater(t, len(res), 1)
	assert.Equal(t, "aaa bbb", res[0])
}

func TestSplit_HardCut(t *testing.T) {
	s, err := NewSplitter(10, 2)
	require.Nil(t, err)
	res := s.Split(strings.Repeat("a", 25))
	require.Equal(t, 3, len(res))
	assert.Equal(t, strings.Repeat("a", 10), res[0])
}

func TestSplit_Overlap(t *testing.T) {
	s, err := NewSplitter(10, 3)
	require.Nil(t, err)
	res := s.Split("abcdefghijklmnopqrst")
	require.Greater(t, len(res), 1)
	// consecutive chunks share the window tail
	assert.Equal(t, res[0][10-3:], res[1][:3])
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := NewSplitter(15, 4)
	require.Nil(t, err)
	text := strings.Repeat("kažkoks tekstas čia ", 20)
	assert.Equal(t, s.Split(text), s.Split(text))
}

func TestSplit_Unicode(t *testing.T) {
	s, err := NewSplitter(10, 2)
	require.Nil(t, err)
	res := s.Split(strings.Repeat("ąčęėįšųū ", 10))
	for _, ch := range res {
		assert.LessOrEqual(t, len([]rune(ch)), 10)
	}
}
