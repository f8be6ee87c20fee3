package domain

import "time"

// MsgType is the kind of an incoming chat message
type MsgType string

const (
	MsgTypeText  MsgType = "text"
	MsgTypeImage MsgType = "image"
	MsgTypeMedia MsgType = "media" // video / video note
	MsgTypeFile  MsgType = "file"
)

// Message represents a message received from a user
type Message struct {
	ID          string
	ChatID      string
	SenderID    string
	MsgType     MsgType
	Content     string // text content, trimmed
	ResourceKey string // image_key or file_key for media messages
	CreateTime  time.Time
}

// IsCommand reports whether the text is a slash command
func (m *Message) IsCommand() bool {
	return m.MsgType == MsgTypeText && len(m.Content) > 1 && m.Content[0] == '/'
}

// HasMedia reports whether the message carries a downloadable resource
func (m *Message) HasMedia() bool {
	return m.ResourceKey != "" && (m.MsgType == MsgTypeImage || m.MsgType == MsgTypeMedia || m.MsgType == MsgTypeFile)
}
