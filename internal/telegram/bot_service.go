// Package telegram receives Bot API updates and routes them into the
// pairing engine and relay, and delivers relayed content back out.
package telegram

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tk22kalal/chatbot/internal/config"
	"github.com/tk22kalal/chatbot/internal/engine"
	"github.com/tk22kalal/chatbot/internal/localization"
	"github.com/tk22kalal/chatbot/internal/models"
	"github.com/tk22kalal/chatbot/internal/storage"
)

const findPartnerButton = "🔎 Find Partner"

// BotService is the Telegram-facing surface of the bot: the update loop,
// the command handlers and the anonymous message relay entry point.
type BotService struct {
	BotAPI     *tgbotapi.BotAPI
	Storage    storage.Storage
	Engine     *engine.Engine
	Relay      *engine.Relay
	Localizer  *localization.Localizer
	ChannelLog *ChannelLogger
	Config     *config.Config
}

// NewBotService authorizes the bot and wires its collaborators.
func NewBotService(cfg *config.Config, s storage.Storage, eng *engine.Engine, relay *engine.Relay, channelLog *ChannelLogger, bot *tgbotapi.BotAPI) (*BotService, error) {
	localizer, err := localization.NewLocalizer("internal/localization")
	if err != nil {
		return nil, fmt.Errorf("failed to create localizer: %w", err)
	}
	return &BotService{
		BotAPI:     bot,
		Storage:    s,
		Engine:     eng,
		Relay:      relay,
		Localizer:  localizer,
		ChannelLog: channelLog,
		Config:     cfg,
	}, nil
}

func (s *BotService) t(key string) string {
	return s.Localizer.GetString("en", key)
}

// Run is the main loop for receiving Telegram updates.
func (s *BotService) Run() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.BotAPI.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			s.handleCallbackQuery(update.CallbackQuery)
		case update.Message != nil:
			s.handleUpdateMessage(update.Message)
		}
	}
}

func (s *BotService) handleUpdateMessage(msg *tgbotapi.Message) {
	if !msg.Chat.IsPrivate() {
		return
	}
	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			s.handleStart(msg)
		case "search":
			s.handleSearch(msg.Chat.ID)
		case "stop":
			s.handleStop(msg.Chat.ID)
		case "next":
			s.handleNext(msg.Chat.ID)
		case "users":
			s.handleUsersStats(msg)
		case "getchat":
			s.handleGetChat(msg)
		case "group":
			s.handleGroup(msg)
		default:
			s.reply(msg.Chat.ID, s.t("unknown_command"))
		}
		return
	}
	if msg.Text == findPartnerButton {
		s.handleSearch(msg.Chat.ID)
		return
	}
	s.handleRelayMessage(msg)
}

// handleStart registers the user and asks for a gender on first contact.
func (s *BotService) handleStart(msg *tgbotapi.Message) {
	user, err := s.Storage.SaveUserIfNotExists(msg.Chat.ID, msg.From.UserName, msg.From.FirstName)
	if err != nil {
		log.Printf("ERROR: /start failed for %d: %v", msg.Chat.ID, err)
		return
	}

	if user.Gender == "" {
		reply := tgbotapi.NewMessage(msg.Chat.ID, s.t("start_msg"))
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("👦 Male", "gender_male"),
				tgbotapi.NewInlineKeyboardButtonData("👧 Female", "gender_female"),
			),
		)
		s.send(reply)
		return
	}

	text := fmt.Sprintf(s.t("welcome_back"), capitalize(user.Gender))
	reply := tgbotapi.NewMessage(msg.Chat.ID, text)
	reply.ReplyMarkup = s.searchKeyboard()
	s.send(reply)
}

func (s *BotService) handleCallbackQuery(query *tgbotapi.CallbackQuery) {
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := s.BotAPI.Request(callback); err != nil {
		log.Printf("failed to answer callback query: %v", err)
	}
	if !strings.HasPrefix(query.Data, "gender_") {
		return
	}

	chatID := query.Message.Chat.ID
	gender := strings.TrimPrefix(query.Data, "gender_")
	if gender != "male" && gender != "female" {
		return
	}
	if err := s.Storage.UpdateUserGender(chatID, gender); err != nil {
		log.Printf("ERROR: Failed to set gender for %d: %v", chatID, err)
		return
	}

	edit := tgbotapi.NewEditMessageText(chatID, query.Message.MessageID,
		fmt.Sprintf(s.t("gender_set"), capitalize(gender)))
	if _, err := s.BotAPI.Send(edit); err != nil {
		log.Printf("failed to edit gender prompt: %v", err)
	}

	reply := tgbotapi.NewMessage(chatID, s.t("ready_to_search"))
	reply.ReplyMarkup = s.searchKeyboard()
	s.send(reply)
}

// handleSearch runs a search request and notifies both members on a match.
func (s *BotService) handleSearch(chatID int64) {
	user, err := s.Storage.GetUser(chatID)
	if err != nil {
		log.Printf("ERROR: Failed to load user %d: %v", chatID, err)
		return
	}
	if user == nil {
		s.reply(chatID, s.t("need_start"))
		return
	}
	if user.Gender == "" {
		s.reply(chatID, s.t("need_gender"))
		return
	}

	result, err := s.Engine.RequestSearch(chatID)
	switch {
	case errors.Is(err, engine.ErrAlreadyPaired):
		s.reply(chatID, s.t("already_in_chat"))
		return
	case errors.Is(err, engine.ErrAlreadySearching):
		s.reply(chatID, s.t("already_searching"))
		return
	case err != nil:
		log.Printf("ERROR: Search failed for %d: %v", chatID, err)
		return
	}

	if !result.Matched {
		s.reply(chatID, s.t("searching_msg"))
		return
	}
	s.announceMatch(chatID, result)
}

// handleStop ends the chat, or cancels a pending search.
func (s *BotService) handleStop(chatID int64) {
	partnerID, err := s.Engine.EndSession(chatID)
	if err == nil {
		s.logChatEnded("❌ <b>Chat Ended</b>", chatID, partnerID)

		stopped := tgbotapi.NewMessage(chatID, s.t("stopped_chat"))
		stopped.ReplyMarkup = s.searchKeyboard()
		s.send(stopped)

		left := tgbotapi.NewMessage(partnerID, s.t("partner_left"))
		left.ReplyMarkup = s.searchKeyboard()
		s.send(left)
		return
	}
	if !errors.Is(err, engine.ErrNotInSession) {
		log.Printf("ERROR: Stop failed for %d: %v", chatID, err)
		return
	}

	if cancelErr := s.Engine.CancelSearch(chatID); cancelErr == nil {
		s.reply(chatID, s.t("search_cancelled"))
		return
	}
	s.reply(chatID, s.t("not_in_chat"))
}

// handleNext skips to a new partner in one atomic step.
func (s *BotService) handleNext(chatID int64) {
	partnerID, result, err := s.Engine.NextPartner(chatID)
	if errors.Is(err, engine.ErrNotInSession) {
		s.reply(chatID, s.t("not_in_chat"))
		return
	}
	if err != nil {
		log.Printf("ERROR: Next failed for %d: %v", chatID, err)
		return
	}

	s.logChatEnded("⏭ <b>User Skipped to Next</b>", chatID, partnerID)

	left := tgbotapi.NewMessage(partnerID, s.t("partner_left"))
	left.ReplyMarkup = s.searchKeyboard()
	s.send(left)

	if !result.Matched {
		s.reply(chatID, s.t("searching_msg"))
		return
	}
	s.announceMatch(chatID, result)
}

// handleRelayMessage forwards a non-command private message to the partner.
func (s *BotService) handleRelayMessage(msg *tgbotapi.Message) {
	content := extractContent(msg)
	_, err := s.Relay.Relay(msg.Chat.ID, content)
	switch {
	case err == nil:
		return
	case errors.Is(err, engine.ErrUnsupportedContent):
		s.reply(msg.Chat.ID, s.t("unsupported_type"))
	case errors.Is(err, engine.ErrNotInSession):
		// Queued users get silence while they wait, like the search prompt says.
		if !s.Engine.Searching(msg.Chat.ID) {
			s.reply(msg.Chat.ID, s.t("not_in_chat_msg"))
		}
	case errors.Is(err, engine.ErrPartnerUnreachable):
		reply := tgbotapi.NewMessage(msg.Chat.ID, s.t("delivery_failed"))
		reply.ReplyMarkup = s.searchKeyboard()
		s.send(reply)
	default:
		log.Printf("ERROR: Relay failed for %d: %v", msg.Chat.ID, err)
	}
}

// announceMatch notifies both members and posts the session notice to the
// log channel. chatID is the searcher whose request completed the pair.
func (s *BotService) announceMatch(chatID int64, result *engine.Result) {
	keyboard := s.chatKeyboard()

	found := tgbotapi.NewMessage(chatID, s.t("partner_found"))
	found.ParseMode = tgbotapi.ModeMarkdown
	found.ReplyMarkup = keyboard
	s.send(found)

	foundPartner := tgbotapi.NewMessage(result.PartnerID, s.t("partner_found"))
	foundPartner.ParseMode = tgbotapi.ModeMarkdown
	foundPartner.ReplyMarkup = keyboard
	s.send(foundPartner)

	user, _ := s.Storage.GetUser(chatID)
	partner, _ := s.Storage.GetUser(result.PartnerID)
	s.ChannelLog.Log(fmt.Sprintf(
		"🔐 <b>New Chat Started</b>\n\n<b>Token:</b> <code>%s</code>\n\n"+
			"<b>User1:</b> @%s (ID: %d, Gender: %s)\n"+
			"<b>User2:</b> @%s (ID: %d, Gender: %s)",
		result.Session.Token,
		usernameOf(user), chatID, genderOf(user),
		usernameOf(partner), result.PartnerID, genderOf(partner),
	))
}

func (s *BotService) logChatEnded(header string, byID, partnerID int64) {
	user, _ := s.Storage.GetUser(byID)
	partner, _ := s.Storage.GetUser(partnerID)
	s.ChannelLog.Log(fmt.Sprintf(
		"%s\n\nUser 1: %d (@%s)\nUser 2: %d (@%s)\nEnded by: %d",
		header, byID, usernameOf(user), partnerID, usernameOf(partner), byID,
	))
}

func (s *BotService) searchKeyboard() tgbotapi.ReplyKeyboardMarkup {
	if s.Config.WebAppURL != "" {
		keyboard := tgbotapi.NewReplyKeyboard(
			[]tgbotapi.KeyboardButton{
				tgbotapi.NewKeyboardButton(findPartnerButton),
				{Text: "🗣 GUPSHUP", WebApp: &tgbotapi.WebAppInfo{URL: s.Config.WebAppURL}},
			},
		)
		keyboard.ResizeKeyboard = true
		return keyboard
	}
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(findPartnerButton)),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func (s *BotService) chatKeyboard() tgbotapi.ReplyKeyboardMarkup {
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/next"),
			tgbotapi.NewKeyboardButton("/stop"),
		),
	)
	keyboard.ResizeKeyboard = true
	return keyboard
}

func (s *BotService) reply(chatID int64, text string) {
	s.send(tgbotapi.NewMessage(chatID, text))
}

func (s *BotService) send(msg tgbotapi.Chattable) {
	if _, err := s.BotAPI.Send(msg); err != nil {
		log.Printf("ERROR: Failed to send Telegram message: %v", err)
	}
}

// extractContent maps a Telegram message onto the relay's content union.
// Anything without a mapping comes back as ContentUnsupported and is
// rejected before it reaches the partner.
func extractContent(msg *tgbotapi.Message) models.Content {
	switch {
	case msg.Text != "":
		return models.Content{Kind: models.ContentText, Text: msg.Text}
	case msg.Photo != nil:
		largest := msg.Photo[len(msg.Photo)-1]
		return models.Content{Kind: models.ContentPhoto, FileID: largest.FileID, Caption: msg.Caption}
	case msg.Video != nil:
		return models.Content{Kind: models.ContentVideo, FileID: msg.Video.FileID, Caption: msg.Caption}
	case msg.Audio != nil:
		return models.Content{Kind: models.ContentAudio, FileID: msg.Audio.FileID, Caption: msg.Caption}
	case msg.Voice != nil:
		return models.Content{Kind: models.ContentVoice, FileID: msg.Voice.FileID, Caption: msg.Caption}
	case msg.Animation != nil:
		// Animations also carry a Document field, so this arm comes first.
		return models.Content{Kind: models.ContentAnimation, FileID: msg.Animation.FileID, Caption: msg.Caption}
	case msg.Document != nil:
		return models.Content{Kind: models.ContentDocument, FileID: msg.Document.FileID, Caption: msg.Caption}
	case msg.Sticker != nil:
		return models.Content{Kind: models.ContentSticker, FileID: msg.Sticker.FileID}
	case msg.VideoNote != nil:
		return models.Content{Kind: models.ContentVideoNote, FileID: msg.VideoNote.FileID}
	}
	return models.Content{Kind: models.ContentUnsupported}
}

func usernameOf(user *models.User) string {
	if user == nil || user.Username == "" {
		return "N/A"
	}
	return user.Username
}

func genderOf(user *models.User) string {
	if user == nil || user.Gender == "" {
		return "N/A"
	}
	return user.Gender
}

func formatUserID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// capitalize uppercases the first rune of a single-word tag like "male".
func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(unicode.ToUpper(r[0])) + string(r[1:])
}
