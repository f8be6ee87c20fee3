package repo

import (
	"context"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
)

// MessageRepo is the outbound messaging interface
// Responsible for delivering notifications and media over Feishu
type MessageRepo interface {
	// SendText sends a text message to a user
	SendText(ctx context.Context, userID, text string) error

	// SendImage uploads a local image and sends it to a user
	SendImage(ctx context.Context, userID, path string) error

	// SendVideo uploads a local video and sends it to a user
	SendVideo(ctx context.Context, userID, path string) error

	// DownloadResource saves the media attached to msg at dest
	DownloadResource(ctx context.Context, msg *domain.Message, dest string) error
}

// Notifier is the subset of MessageRepo the scheduler needs
type Notifier interface {
	SendText(ctx context.Context, userID, text string) error
}
