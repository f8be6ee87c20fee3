package service

import (
	"fmt"
	"strings"

	"github.com/ldrbot/feishu-companion-bot/internal/biz/domain"
)

const (
	replyGoodbye      = "goodbye love! thanks for letting me brighten your day 💕✨\n\ntype /start anytime to chat again!"
	replyCancelled    = "okay, cancelled! back to the menu 💕"
	replyStoreFailure = "oops! something hiccuped on my side 😅 please try again!"
	replyNeedRole     = "⚠️ please set your role first! reply \"role\" to pick one 💕"
	replyMediaHint    = "📎 nice! reply \"submit photo\" or \"submit bubble\" first so i know what to do with it 💕"

	promptReminderText = "💌 what would you like me to remind you about? just type your reminder message!\n\n(type /cancel to go back to menu)"
	promptReminderKind = "📝 got it! reminder: \"%s\" ✨\n\nwho is it for?\n" +
		"1. me, once ⏰\n" +
		"2. me, every day 🔁\n" +
		"3. my partner 💌\n\n" +
		"(type /cancel to go back to menu)"
	promptReminderTime = "⏰ when should i remind %s? send me:\n" +
		"• HH:MM (e.g. 14:30) 🕐\n" +
		"• YYYY-MM-DD HH:MM for a specific day 📅\n" +
		"• now for an immediate reminder ⚡\n" +
		"• tomorrow for this time tomorrow 📅\n\n" +
		"(type /cancel to go back to menu) 💕"
	promptDailyTime = "🔁 what time every day? send HH:MM in 24h, e.g. 09:00\n\n(type /cancel to go back to menu)"
	promptRole      = "👤 choose your role:\n1. boyfriend 💙\n2. girlfriend 💖\n\nthis decides what content you see and can submit! (type /cancel to go back to menu)"
	promptName      = "✨ okay ur the %s! ✨\n\nsooo... what's your name... i mean i know already but i need to put it in the software 💕\n\n(type /cancel to go back to menu)"
	promptConfirm   = "okay %s just to confirm ah: you're %s, the %s? reply yes or no 😊"
	promptPhoto     = "📸 submit a photo for your %s!\n\nsend me a photo and i'll add it to their collection! 💕\n\n(type /cancel to go back to menu)"
	promptVideo     = "🫧 submit a video bubble for your %s!\n\nsend me a video and i'll add it to their bubble collection! 💕\n\n(type /cancel to go back to menu)"
)

func echoReply(text string) string {
	return fmt.Sprintf("%s? okay buddy... /start to chat bro... 😎", text)
}

// menuText renders the welcome menu for u
func menuText(u *domain.User) string {
	var b strings.Builder

	if u.HasRole() {
		name := ""
		if u.Name != "" {
			name = " " + u.Name
		}
		fmt.Fprintf(&b, "💕 hi %s%s :P, welcome back!! 💕\n", u.Role, name)
	} else {
		b.WriteString("💕 welcome to your personal relationship bot! 💕\n\n")
		b.WriteString("⚠️ first, please set your role! reply \"role\" to get started ⚠️\n")
	}

	b.WriteString("\nreply with what you need right now:\n")
	b.WriteString("• rizz - gimme some rizz 💕\n")
	if u.HasRole() {
		b.WriteString("• see you - i wanna see you 📸\n")
		b.WriteString("• bubble - i want a bubble 🫧\n")
	}
	b.WriteString("• motivation - i need motivation 💪\n")
	b.WriteString("• stats - show me our stats 📊\n")
	b.WriteString("• time - what time is it for my partner 🕐\n")
	b.WriteString("• remind - set a reminder ⏰\n")
	b.WriteString("• list - my reminders 📋\n")
	b.WriteString("• eat - where should we eat? 🍽️\n")
	if u.HasRole() {
		b.WriteString("• submit photo - photo for your partner 📤\n")
		b.WriteString("• submit bubble - video bubble for your partner 🫧\n")
	} else {
		b.WriteString("• role - set my role 👤\n")
	}
	b.WriteString("\n(i'll keep running until you type /stop) 💕")
	return b.String()
}

func roleEmoji(r domain.Role) string {
	if r == domain.RoleBoyfriend {
		return "💙"
	}
	return "💖"
}
