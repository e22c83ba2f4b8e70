package telegram

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tk22kalal/chatbot/internal/models"
)

// handleUsersStats replies with userbase and session counters. Admin only.
func (s *BotService) handleUsersStats(msg *tgbotapi.Message) {
	if !s.Config.IsAdmin(msg.Chat.ID) {
		return
	}

	users, err := s.Storage.CountUsers()
	if err != nil {
		log.Printf("ERROR: Failed to count users: %v", err)
		return
	}
	total, err := s.Storage.CountSessions()
	if err != nil {
		log.Printf("ERROR: Failed to count sessions: %v", err)
		return
	}
	active, err := s.Storage.CountActiveSessions()
	if err != nil {
		log.Printf("ERROR: Failed to count active sessions: %v", err)
		return
	}

	stats := fmt.Sprintf(
		"📊 <b>Bot Statistics</b>\n\n👥 Total Users: <code>%d</code>\n💬 Total Chats: <code>%d</code>\n🟢 Active Chats: <code>%d</code>",
		users, total, active,
	)
	reply := tgbotapi.NewMessage(msg.Chat.ID, stats)
	reply.ParseMode = tgbotapi.ModeHTML
	s.send(reply)
}

// handleGetChat exports a session transcript as a text document.
// Usage: /getchat TOKEN. Admin only.
func (s *BotService) handleGetChat(msg *tgbotapi.Message) {
	if !s.Config.IsAdmin(msg.Chat.ID) {
		return
	}

	token := strings.ToUpper(strings.TrimSpace(msg.CommandArguments()))
	if token == "" {
		reply := tgbotapi.NewMessage(msg.Chat.ID,
			"❌ <b>Usage:</b> <code>/getchat TOKEN</code>\n\nExample: <code>/getchat ABC123XY</code>")
		reply.ParseMode = tgbotapi.ModeHTML
		s.send(reply)
		return
	}

	session, err := s.Storage.GetSessionByToken(token)
	if err != nil {
		log.Printf("ERROR: Failed to load session %s: %v", token, err)
		return
	}
	if session == nil {
		reply := tgbotapi.NewMessage(msg.Chat.ID,
			fmt.Sprintf("❌ No chat found with token: <code>%s</code>\n\nPlease check the token and try again.", token))
		reply.ParseMode = tgbotapi.ModeHTML
		s.send(reply)
		return
	}

	user1, _ := s.Storage.GetUser(session.User1ID)
	user2, _ := s.Storage.GetUser(session.User2ID)
	transcript := FormatTranscript(session, user1, user2)

	status := "Active"
	if !session.Active() {
		status = "Ended"
	}
	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("chat_%s.txt", token),
		Bytes: []byte(transcript),
	})
	doc.Caption = fmt.Sprintf(
		"📄 <b>Chat History</b>\n\nToken: <code>%s</code>\nMessages: %d\nStatus: %s",
		token, len(session.Messages), status,
	)
	doc.ParseMode = tgbotapi.ModeHTML
	s.send(doc)
}

// handleGroup registers the user's gupshup profile and hands them the
// web-app button for the group rooms.
func (s *BotService) handleGroup(msg *tgbotapi.Message) {
	displayName := msg.From.FirstName
	if displayName == "" {
		displayName = "User" + formatUserID(msg.Chat.ID)
	}
	profile := &models.GupshupProfile{
		UserID:           formatUserID(msg.Chat.ID),
		DisplayName:      displayName,
		TelegramUsername: msg.From.UserName,
	}
	if _, err := s.Storage.EnsureProfile(profile); err != nil {
		log.Printf("ERROR: Failed to ensure gupshup profile for %d: %v", msg.Chat.ID, err)
		return
	}

	groups := make([]string, 0, len(s.Config.Groups))
	for _, g := range s.Config.Groups {
		groups = append(groups, "• "+g)
	}
	reply := tgbotapi.NewMessage(msg.Chat.ID, fmt.Sprintf(s.t("gupshup_welcome"), strings.Join(groups, "\n")))
	reply.ParseMode = tgbotapi.ModeHTML
	if s.Config.WebAppURL != "" {
		reply.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.InlineKeyboardButton{
					Text:   "🗣 GUPSHUP",
					WebApp: &tgbotapi.WebAppInfo{URL: s.Config.WebAppURL},
				},
			),
		)
	}
	s.send(reply)
}

// FormatTranscript renders a session transcript in the one-line-per-message
// form admins expect from the export.
func FormatTranscript(session *models.ChatSession, user1, user2 *models.User) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Anonymous Chat Log - Token: %s\n", session.Token)
	b.WriteString(strings.Repeat("-", 39) + "\n")
	fmt.Fprintf(&b, "[User1: @%s | ID: %d | Gender: %s]\n", usernameOf(user1), session.User1ID, genderOf(user1))
	fmt.Fprintf(&b, "[User2: @%s | ID: %d | Gender: %s]\n\n", usernameOf(user2), session.User2ID, genderOf(user2))

	if len(session.Messages) == 0 {
		b.WriteString("(No messages in this chat)\n")
		return b.String()
	}
	for _, m := range session.Messages {
		label := "User1"
		if m.SenderID == session.User2ID {
			label = "User2"
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n", m.CreatedAt.Format("03:04 PM"), label, m.Text)
	}
	return b.String()
}
