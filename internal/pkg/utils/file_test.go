package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupportTranscriptExt(t *testing.T) {
	assert.True(t, SupportTranscriptExt(".txt"))
	assert.True(t, SupportTranscriptExt(".text"))
	assert.True(t, SupportTranscriptExt(".md"))
	assert.True(t, SupportTranscriptExt(".srt"))
	assert.True(t, SupportTranscriptExt(".vtt"))
	assert.False(t, SupportTranscriptExt(".wav"))
	assert.False(t, SupportTranscriptExt(""))
	assert.False(t, SupportTranscriptExt("txt"))
}

func TestMakeFileName(t *testing.T) {
	assert.Equal(t, "id1/olia.txt", MakeFileName("id1", "olia.txt"))
}

func TestMakeValidateFileName(t *testing.T) {
	tests := []struct {
		name     string
		id, file string
		want     string
		wantErr  bool
	}{
		{name: "OK", id: "id1", file: "olia.txt", want: "id1/olia.txt"},
		{name: "No ID", id: "", file: "olia.txt", want: "olia.txt"},
		{name: "Strips path", id: "id1", file: "/tmp/olia.txt", want: "id1/olia.txt"},
		{name: "Dots", id: "id1", file: "..", wantErr: true},
		{name: "Star", id: "id1", file: "olia*.txt", wantErr: true},
		{name: "Question", id: "id1", file: "olia?.txt", wantErr: true},
		{name: "Colon", id: "id1", file: "olia:txt", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MakeValidateFileName(tt.id, tt.file)
			assert.Equal(t, tt.wantErr, err != nil)
			if !tt.wantErr {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
