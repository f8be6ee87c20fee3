package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
	"go.uber.org/zap"
)

// Message represents a received Feishu message
type Message struct {
	ChatID      string
	MsgID       string
	MsgType     string // text, image, media, file
	ChatType    string // p2p (private), group
	Content     string // Text content; empty for media
	ResourceKey string // image_key or file_key for downloading
	FileName    string
	SenderID    string // open_id
	SenderType  string // user, app
	CreateTime  int64  // Message creation time (milliseconds Unix timestamp from Feishu)
}

// Feishu message types the bot handles
const (
	msgTypeText  = "text"
	msgTypeImage = "image"
	msgTypeMedia = "media"
	msgTypeFile  = "file"
)

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// Client is the Feishu API client
type Client struct {
	appID     string
	appSecret string
	larkCli   *lark.Client
	wsCli     *larkws.Client
	onMessage MessageHandler
	logger    *zap.Logger
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
		logger:    logger.Named("feishu"),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// Start connects to Feishu via WebSocket and blocks while connected
func (c *Client) Start(ctx context.Context) error {
	// Must return quickly so the SDK can ACK, otherwise Feishu redelivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(_ context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	c.logger.Info("starting websocket connection")
	return c.wsCli.Start(ctx)
}

// handleMessage converts an event and hands it to the handler
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	msg := parseEvent(event)
	if msg == nil {
		return
	}
	// Messages sent by the bot itself would loop
	if msg.SenderType == "app" {
		return
	}

	switch msg.MsgType {
	case msgTypeText, msgTypeImage, msgTypeMedia, msgTypeFile:
	default:
		c.logger.Debug("unsupported message type", zap.String("type", msg.MsgType))
		return
	}

	c.logger.Debug("message received",
		zap.String("type", msg.MsgType),
		zap.String("sender", msg.SenderID),
		zap.String("content", truncate(msg.Content, 50)),
	)

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// parseEvent flattens the SDK event; nil when the event carries no message
func parseEvent(event *larkim.P2MessageReceiveV1) *Message {
	if event == nil || event.Event == nil || event.Event.Message == nil {
		return nil
	}
	raw := event.Event.Message

	msg := &Message{
		ChatID:   deref(raw.ChatId),
		MsgID:    deref(raw.MessageId),
		MsgType:  deref(raw.MessageType),
		ChatType: deref(raw.ChatType),
	}
	if raw.CreateTime != nil {
		if ts, err := strconv.ParseInt(*raw.CreateTime, 10, 64); err == nil {
			msg.CreateTime = ts
		}
	}
	if sender := event.Event.Sender; sender != nil {
		msg.SenderType = deref(sender.SenderType)
		if sender.SenderId != nil {
			msg.SenderID = deref(sender.SenderId.OpenId)
		}
	}

	parseContent(msg, deref(raw.Content))
	return msg
}

// parseContent fills text or resource fields from the JSON message body
func parseContent(msg *Message, content string) {
	var parsed struct {
		Text     string `json:"text"`
		ImageKey string `json:"image_key"`
		FileKey  string `json:"file_key"`
		FileName string `json:"file_name"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return
	}

	switch msg.MsgType {
	case msgTypeText:
		msg.Content = strings.TrimSpace(parsed.Text)
	case msgTypeImage:
		msg.ResourceKey = parsed.ImageKey
	case msgTypeMedia, msgTypeFile:
		msg.ResourceKey = parsed.FileKey
		msg.FileName = parsed.FileName
	}
}

// SendText sends a text message to a user by open_id
func (c *Client) SendText(ctx context.Context, openID, text string) error {
	content, _ := json.Marshal(map[string]string{"text": text})
	if err := c.send(ctx, openID, msgTypeText, string(content)); err != nil {
		return fmt.Errorf("send text failed: %w", err)
	}
	return nil
}

// SendImage uploads a local image and sends it to a user
func (c *Client) SendImage(ctx context.Context, openID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	req := larkim.NewCreateImageReqBuilder().
		Body(larkim.NewCreateImageReqBodyBuilder().
			ImageType("message").
			Image(f).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Image.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("upload image failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("upload image error: %s", resp.Msg)
	}

	content, _ := json.Marshal(map[string]string{"image_key": deref(resp.Data.ImageKey)})
	if err := c.send(ctx, openID, msgTypeImage, string(content)); err != nil {
		return fmt.Errorf("send image failed: %w", err)
	}
	return nil
}

// SendVideo uploads a local video as a file message and sends it to a user
func (c *Client) SendVideo(ctx context.Context, openID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open video: %w", err)
	}
	defer f.Close()

	fileType := "stream"
	if strings.EqualFold(filepath.Ext(path), ".mp4") {
		fileType = "mp4"
	}

	req := larkim.NewCreateFileReqBuilder().
		Body(larkim.NewCreateFileReqBodyBuilder().
			FileType(fileType).
			FileName(filepath.Base(path)).
			File(f).
			Build()).
		Build()

	resp, err := c.larkCli.Im.File.Create(ctx, req)
	if err != nil {
		return fmt.Errorf("upload video failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("upload video error: %s", resp.Msg)
	}

	content, _ := json.Marshal(map[string]string{"file_key": deref(resp.Data.FileKey)})
	if err := c.send(ctx, openID, msgTypeFile, string(content)); err != nil {
		return fmt.Errorf("send video failed: %w", err)
	}
	return nil
}

// DownloadResource saves the image or file attached to a message at dest
func (c *Client) DownloadResource(ctx context.Context, messageID, key, resourceType, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create download dir: %w", err)
	}

	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(key).
		Type(resourceType).
		Build()

	resp, err := c.larkCli.Im.MessageResource.Get(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to get resource: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("get resource error: %s", resp.Msg)
	}

	file, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, resp.File); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	c.logger.Info("resource downloaded", zap.String("path", dest))
	return nil
}

func (c *Client) send(ctx context.Context, openID, msgType, content string) error {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeOpenId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(openID).
			MsgType(msgType).
			Content(content).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return err
	}
	if !resp.Success() {
		return fmt.Errorf("code %d: %s", resp.Code, resp.Msg)
	}

	c.logger.Debug("message sent", zap.String("to", openID), zap.String("type", msgType))
	return nil
}

// Helper functions

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
