package telegram

import (
	"fmt"
	"strings"

	recommenduc "github.com/daochai/teasommelier/internal/usecase/recommend"
)

// maxMessageLen is the Telegram message size limit the bot chunks against.
const maxMessageLen = 4000

// markdownReplacements maps markdown tokens the model tends to emit to
// emoji. Ordered: "**" must be replaced before "*".
var markdownReplacements = []struct {
	token string
	emoji string
}{
	{"**", "🍵"},
	{"__", "✨"},
	{"*", "🔸"},
	{"# ", "🔷 "},
	{"## ", "🔹 "},
	{"### ", "▪️ "},
	{"- ", "• "},
	{"> ", "💬 "},
	{"`", "🧠"},
}

// replaceMarkdownWithEmojis strips model markdown so replies render cleanly
// without a parse mode.
func replaceMarkdownWithEmojis(text string) string {
	for _, r := range markdownReplacements {
		text = strings.ReplaceAll(text, r.token, r.emoji)
	}
	return text
}

// chunkMessage splits text into rune-safe chunks within the Telegram limit.
func chunkMessage(text string, maxLen int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(runes)/maxLen+1)
	for start := 0; start < len(runes); start += maxLen {
		end := start + maxLen
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

// teaCard renders the short per-tea summary sent after the explanation.
func teaCard(n int, tea recommenduc.TeaView) string {
	availability := "❌ Нет в наличии"
	if tea.Available {
		availability = "✅ Есть в наличии"
	}

	url := tea.URL
	if url == "" {
		url = "нет ссылки"
	}

	return fmt.Sprintf(
		"<b>Чай #%d: %s</b>\n"+
			"💵 Цена: %s руб.\n"+
			"🏷 Категория: %s\n"+
			"🛒 %s\n"+
			"🔗 Ссылка: %s\n",
		n, tea.Title, tea.Price, strings.Join(tea.Categories, ", "), availability, url,
	)
}
