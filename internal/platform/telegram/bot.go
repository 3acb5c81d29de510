package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/fatflowers/tgpass/pkg/config"
	"github.com/fatflowers/tgpass/pkg/tool"
)

var ErrMissingChat = errors.New("telegram: channel chat id is required")

// Bot is the channel-side collaborator used to admit and remove members.
type Bot interface {
	// CreateInviteLink returns a new invite link for chatID limited to memberLimit joins.
	CreateInviteLink(ctx context.Context, chatID string, memberLimit int, expireAt *time.Time) (string, error)
	RemoveMember(ctx context.Context, chatID string, userID int64) error
	Simulated() bool
}

// RealBot calls the Bot API through tgbotapi.
type RealBot struct {
	api *tgbotapi.BotAPI
	log *zap.SugaredLogger
}

func NewRealBot(token, endpoint string, timeout time.Duration, log *zap.SugaredLogger) (*RealBot, error) {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	api, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram bot: %w", err)
	}
	log.Infow("telegram bot authorized", "username", api.Self.UserName)
	return &RealBot{api: api, log: log}, nil
}

func (b *RealBot) Simulated() bool { return false }

func (b *RealBot) CreateInviteLink(ctx context.Context, chatID string, memberLimit int, expireAt *time.Time) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	chat, err := chatConfig(chatID)
	if err != nil {
		return "", err
	}
	c := tgbotapi.CreateChatInviteLinkConfig{ChatConfig: chat, MemberLimit: memberLimit}
	if expireAt != nil {
		c.ExpireDate = int(expireAt.Unix())
	}
	resp, err := b.api.Request(c)
	if err != nil {
		return "", fmt.Errorf("createChatInviteLink %s: %w", chatID, err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return "", fmt.Errorf("createChatInviteLink %s: empty link", chatID)
	}
	return link.InviteLink, nil
}

// RemoveMember bans userID from chatID. A user already gone or an
// administrator is not treated as a failure.
func (b *RealBot) RemoveMember(ctx context.Context, chatID string, userID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	chat, err := chatConfig(chatID)
	if err != nil {
		return err
	}
	c := tgbotapi.BanChatMemberConfig{ChatMemberConfig: tgbotapi.ChatMemberConfig{
		ChatID:             chat.ChatID,
		SuperGroupUsername: chat.SuperGroupUsername,
		UserID:             userID,
	}}
	if _, err := b.api.Request(c); err != nil {
		msg := err.Error()
		if strings.Contains(msg, "user not found") || strings.Contains(msg, "member is administrator") {
			b.log.Warnw("telegram_remove_member_skipped", "chat_id", chatID, "telegram_user_id", userID, "reason", msg)
			return nil
		}
		return fmt.Errorf("banChatMember %s: %w", chatID, err)
	}
	return nil
}

func chatConfig(chatID string) (tgbotapi.ChatConfig, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return tgbotapi.ChatConfig{}, ErrMissingChat
	}
	if strings.HasPrefix(chatID, "@") {
		return tgbotapi.ChatConfig{SuperGroupUsername: chatID}, nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return tgbotapi.ChatConfig{}, fmt.Errorf("telegram: invalid chat id %q", chatID)
	}
	return tgbotapi.ChatConfig{ChatID: id}, nil
}

// SimulatedBot logs instead of calling Telegram. Used when no token is configured.
type SimulatedBot struct {
	log *zap.SugaredLogger
}

func NewSimulatedBot(log *zap.SugaredLogger) *SimulatedBot { return &SimulatedBot{log: log} }

func (b *SimulatedBot) Simulated() bool { return true }

func (b *SimulatedBot) CreateInviteLink(_ context.Context, chatID string, _ int, _ *time.Time) (string, error) {
	if chatID == "" {
		return "", ErrMissingChat
	}
	link := "https://t.me/joinchat/SIMULATED_" + tool.CompactID()
	b.log.Warnw("telegram_invite_link_simulated", "chat_id", chatID, "link", link)
	return link, nil
}

func (b *SimulatedBot) RemoveMember(_ context.Context, chatID string, userID int64) error {
	b.log.Warnw("telegram_remove_member_simulated", "chat_id", chatID, "telegram_user_id", userID)
	return nil
}

// New returns a real bot when a token is configured and a simulated one otherwise.
func New(cfg *cfgpkg.Config, log *zap.SugaredLogger) (Bot, error) {
	tc := cfg.Telegram
	if tc.BotToken == "" {
		log.Warnw("telegram bot token not set, channel actions are simulated")
		return NewSimulatedBot(log), nil
	}
	return NewRealBot(tc.BotToken, tc.APIEndpoint, tc.Timeout, log)
}

var Module = fx.Options(
	fx.Provide(New),
)
