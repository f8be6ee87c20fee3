package data

import (
	"context"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
	"github.com/ldrbot/feishu-companion-bot/internal/biz/repo"
	"github.com/ldrbot/feishu-companion-bot/internal/infra/feishu"
)

// feishuRepo implements the Feishu message repository
type feishuRepo struct {
	client *feishu.Client
}

// NewFeishuRepo creates a new Feishu repository
func NewFeishuRepo(client *feishu.Client) repo.MessageRepo {
	return &feishuRepo{client: client}
}

// SendText sends a text message
func (r *feishuRepo) SendText(ctx context.Context, userID, text string) error {
	return r.client.SendText(ctx, userID, text)
}

// SendImage uploads and sends an image
func (r *feishuRepo) SendImage(ctx context.Context, userID, path string) error {
	return r.client.SendImage(ctx, userID, path)
}

// SendVideo uploads and sends a video
func (r *feishuRepo) SendVideo(ctx context.Context, userID, path string) error {
	return r.client.SendVideo(ctx, userID, path)
}

// DownloadResource saves the media of msg at dest
func (r *feishuRepo) DownloadResource(ctx context.Context, msg *domain.Message, dest string) error {
	return r.client.DownloadResource(ctx, msg.ID, msg.ResourceKey, resourceType(msg.MsgType), dest)
}

// resourceType maps a message type to the resource API's type parameter
func resourceType(t domain.MsgType) string {
	if t == domain.MsgTypeImage {
		return "image"
	}
	return "file"
}
