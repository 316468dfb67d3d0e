package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/daochai/teasommelier/internal/metrics"
	recommenduc "github.com/daochai/teasommelier/internal/usecase/recommend"
)

// Fixed user-facing strings.
const (
	searchingReply = "🔍 Ищу подходящие чаи..."
	noMatchReply   = "К сожалению, не нашлось подходящих чаев по вашему запросу. Попробуйте изменить параметры поиска."
	errorReply     = "Произошла ошибка при обработке вашего запроса. Пожалуйста, попробуйте позже."
)

const helpText = "🫖 <b>Как пользоваться ботом:</b>\n\n" +
	"Просто напишите, какой чай вы ищете, например:\n" +
	"- Улун с нотками ванили до 1500 рублей\n" +
	"- Крепкий красный чай из Юньнани\n" +
	"- Легкий зеленый чай с цветочными нотами\n" +
	"- Выдержанный пуэр с землистыми нотами\n\n" +
	"Я проанализирую ваш запрос и порекомендую подходящие варианты из нашей коллекции.\n\n" +
	"Вы также можете уточнить:\n" +
	"- Тип чая (зеленый, улун, пуэр и т.д.)\n" +
	"- Вкусовые характеристики (цветочный, фруктовый, дымный и др.)\n" +
	"- Ценовой диапазон (от/до)\n" +
	"- Регион происхождения (если важно)\n" +
	"- Наличие (только чаи в наличии)"

// sender is the narrow tgbotapi.BotAPI contract the bot needs.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Recommender answers free-text queries.
type Recommender interface {
	Recommend(ctx context.Context, query string, topN int) (recommenduc.Result, error)
}

// Config carries the bot knobs.
type Config struct {
	// DisplayTopN bounds how many teas one reply presents.
	DisplayTopN int
	// ChunkDelay is the pause between consecutive message chunks.
	ChunkDelay time.Duration
	// PollTimeout is the long-polling timeout in seconds.
	PollTimeout int
}

// Bot serves tea recommendations over Telegram long polling.
type Bot struct {
	api         *tgbotapi.BotAPI
	sender      sender
	recommender Recommender
	cfg         Config
	logger      *zap.Logger
}

// NewBot creates a Telegram bot transport.
func NewBot(token string, recommender Recommender, cfg Config, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	if cfg.DisplayTopN <= 0 {
		cfg.DisplayTopN = 5
	}
	if cfg.ChunkDelay <= 0 {
		cfg.ChunkDelay = 500 * time.Millisecond
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30
	}
	return &Bot{
		api:         api,
		sender:      api,
		recommender: recommender,
		cfg:         cfg,
		logger:      logger,
	}, nil
}

// Run polls for updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started", zap.String("username", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Telegram bot stopped")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	switch msg.Command() {
	case "start":
		b.sendPlain(chatID, startText(msg.From))
		return
	case "help":
		b.sendHTML(chatID, helpText)
		return
	}

	b.handleQuery(ctx, chatID, msg.Text)
}

func (b *Bot) handleQuery(ctx context.Context, chatID int64, query string) {
	b.sendPlain(chatID, searchingReply)

	result, err := b.recommender.Recommend(ctx, query, b.cfg.DisplayTopN)
	if err != nil {
		b.logger.Error("Recommendation failed", zap.Int64("chat_id", chatID), zap.Error(err))
		metrics.RecommendRequestsTotal.WithLabelValues("telegram", "error").Inc()
		b.sendPlain(chatID, errorReply)
		return
	}

	if len(result.Recommendations) == 0 {
		metrics.RecommendRequestsTotal.WithLabelValues("telegram", "no_match").Inc()
		b.sendPlain(chatID, noMatchReply)
		return
	}
	metrics.RecommendRequestsTotal.WithLabelValues("telegram", "ok").Inc()

	b.sendLong(chatID, replaceMarkdownWithEmojis(result.Explanation), false)

	for i, tea := range result.Recommendations {
		b.sendLong(chatID, teaCard(i+1, tea), true)
	}
}

// sendLong delivers text in chunks within the Telegram size limit, pausing
// between chunks to stay under the send rate limit.
func (b *Bot) sendLong(chatID int64, text string, html bool) {
	chunks := chunkMessage(text, maxMessageLen)
	for i, chunk := range chunks {
		m := tgbotapi.NewMessage(chatID, chunk)
		m.DisableWebPagePreview = true
		if html {
			m.ParseMode = tgbotapi.ModeHTML
		}
		if _, err := b.sender.Send(m); err != nil {
			b.logger.Error("Failed to send message chunk",
				zap.Int64("chat_id", chatID), zap.Error(err))
		}
		if i < len(chunks)-1 {
			time.Sleep(b.cfg.ChunkDelay)
		}
	}
}

func (b *Bot) sendPlain(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(m); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) sendHTML(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeHTML
	if _, err := b.sender.Send(m); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func startText(from *tgbotapi.User) string {
	name := "друг"
	if from != nil && from.FirstName != "" {
		name = from.FirstName
	}
	return fmt.Sprintf("Привет, %s! 👋\n\n"+
		"Я - Чайный Сомелье, готов помочь вам найти идеальный чай.\n\n"+
		"Просто опишите, какой чай вы ищете: его тип, вкусовые ноты, "+
		"предпочитаемую цену или другие характеристики.\n\n"+
		"Примеры запросов:\n"+
		"Улун с ванилью до 1500₽\n"+
		"Красный чай из Юньнани\n"+
		"Зеленый чай цветочный\n"+
		"Выдержанный пуэр\n", name)
}
