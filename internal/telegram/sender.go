package telegram

import (
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tk22kalal/chatbot/internal/models"
)

// Sender implements the relay's delivery capability over the Bot API.
// Every outbound item is built fresh from the payload reference, so
// nothing Telegram attaches to the original message can leak through.
type Sender struct {
	bot *tgbotapi.BotAPI
}

func NewSender(bot *tgbotapi.BotAPI) *Sender {
	return &Sender{bot: bot}
}

// Send delivers one content item to a user. An error means the recipient
// is unreachable (blocked the bot, deleted the account, ...).
func (s *Sender) Send(userID int64, content models.Content) error {
	// Typing hint first; failures here are irrelevant to delivery.
	action := tgbotapi.NewChatAction(userID, tgbotapi.ChatTyping)
	if _, err := s.bot.Request(action); err != nil {
		log.Printf("Chat action to %d failed: %v", userID, err)
	}

	var msg tgbotapi.Chattable
	switch content.Kind {
	case models.ContentText:
		msg = tgbotapi.NewMessage(userID, content.Text)
	case models.ContentPhoto:
		photo := tgbotapi.NewPhoto(userID, tgbotapi.FileID(content.FileID))
		photo.Caption = content.Caption
		msg = photo
	case models.ContentVideo:
		video := tgbotapi.NewVideo(userID, tgbotapi.FileID(content.FileID))
		video.Caption = content.Caption
		msg = video
	case models.ContentAudio:
		audio := tgbotapi.NewAudio(userID, tgbotapi.FileID(content.FileID))
		audio.Caption = content.Caption
		msg = audio
	case models.ContentVoice:
		voice := tgbotapi.NewVoice(userID, tgbotapi.FileID(content.FileID))
		voice.Caption = content.Caption
		msg = voice
	case models.ContentDocument:
		doc := tgbotapi.NewDocument(userID, tgbotapi.FileID(content.FileID))
		doc.Caption = content.Caption
		msg = doc
	case models.ContentSticker:
		msg = tgbotapi.NewSticker(userID, tgbotapi.FileID(content.FileID))
	case models.ContentAnimation:
		anim := tgbotapi.NewAnimation(userID, tgbotapi.FileID(content.FileID))
		anim.Caption = content.Caption
		msg = anim
	case models.ContentVideoNote:
		msg = tgbotapi.NewVideoNote(userID, 0, tgbotapi.FileID(content.FileID))
	default:
		return fmt.Errorf("no delivery mapping for content kind %q", content.Kind)
	}

	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send to %d: %w", userID, err)
	}
	return nil
}

// ChannelLogger posts lifecycle notices and sampled relay summaries to
// the configured log channel. A zero channel ID disables it.
type ChannelLogger struct {
	bot       *tgbotapi.BotAPI
	channelID int64
}

func NewChannelLogger(bot *tgbotapi.BotAPI, channelID int64) *ChannelLogger {
	return &ChannelLogger{bot: bot, channelID: channelID}
}

func (l *ChannelLogger) Log(text string) {
	if l.channelID == 0 {
		return
	}
	msg := tgbotapi.NewMessage(l.channelID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := l.bot.Send(msg); err != nil {
		log.Printf("ERROR: Failed to post to log channel %d: %v", l.channelID, err)
	}
}
