package feishu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContent(t *testing.T) {
	tests := []struct {
		name     string
		msgType  string
		content  string
		wantText string
		wantKey  string
		wantFile string
	}{
		{"text is trimmed", "text", `{"text":"  /menu \n"}`, "/menu", "", ""},
		{"image key", "image", `{"image_key":"img_v2_abc"}`, "", "img_v2_abc", ""},
		{"media file key", "media", `{"file_key":"file_v2_x","image_key":"cover","file_name":"hi.mp4"}`, "", "file_v2_x", "hi.mp4"},
		{"file key", "file", `{"file_key":"file_v2_y","file_name":"clip.mov"}`, "", "file_v2_y", "clip.mov"},
		{"broken json", "text", `{"text":`, "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{MsgType: tt.msgType}
			parseContent(msg, tt.content)
			assert.Equal(t, tt.wantText, msg.Content)
			assert.Equal(t, tt.wantKey, msg.ResourceKey)
			assert.Equal(t, tt.wantFile, msg.FileName)
		})
	}
}

func TestParseEventWithoutMessage(t *testing.T) {
	assert.Nil(t, parseEvent(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
