package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"saypay/pkg/db"
	"saypay/pkg/pipeline"
	"saypay/pkg/saypay"
	"saypay/pkg/services"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// handleStart handles /start command - registers or welcomes user
func (b *Bot) handleStart(ctx context.Context, botAPI *bot.Bot, update *models.Update) {
	commandsProcessed.WithLabelValues("start").Inc()
	if update.Message == nil || update.Message.From == nil {
		return
	}

	from := update.Message.From
	chatID := update.Message.Chat.ID

	dbUser, err := b.saypay.GetOrCreateUserByLogin(ctx, userLogin(from))
	if err != nil {
		errorsTotal.WithLabelValues("user_registration").Inc()
		b.logger.Error(ctx, "failed to get or create user", "err", err, "telegram_user_id", from.ID)
		b.sendText(ctx, chatID, "Registration failed, please try again later.")
		return
	}

	b.stateManager.Clear(from.ID)
	b.logger.Print(ctx, "user started bot", "user_id", dbUser.ID, "telegram_user_id", from.ID, "username", from.Username)

	b.sendText(ctx, chatID, fmt.Sprintf(
		"👋 Hi, %s!\n\n"+
			"Send me a voice message describing an expense, for example:\n"+
			"\"I spent twenty five dollars on lunch\".\n\n"+
			"I will transcribe it and prepare an expense for your confirmation.",
		from.FirstName,
	))
}

// handleHelp handles /help command
func (b *Bot) handleHelp(ctx context.Context, botAPI *bot.Bot, update *models.Update) {
	commandsProcessed.WithLabelValues("help").Inc()
	if update.Message == nil || update.Message.From == nil {
		return
	}

	helpText := `📚 <b>How it works:</b>

🎤 Send a voice message with an expense, in English, Hindi, Spanish or French.
✅ Review the draft I prepare and confirm or cancel it.

<b>Commands:</b>
/list - show your recent expenses
/cancel - discard the pending draft
/help - this message`

	_, _ = botAPI.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    update.Message.Chat.ID,
		Text:      helpText,
		ParseMode: models.ParseModeHTML,
	})
}

// handleCancel handles /cancel command
func (b *Bot) handleCancel(ctx context.Context, botAPI *bot.Bot, update *models.Update) {
	commandsProcessed.WithLabelValues("cancel").Inc()
	if update.Message == nil || update.Message.From == nil {
		return
	}

	userID := update.Message.From.ID
	if session := b.stateManager.Session(userID); session != nil {
		b.pipeline.Cancel(session)
	}
	b.stateManager.Clear(userID)

	b.sendText(ctx, update.Message.Chat.ID, "Pending expense discarded.")
}

// handleList handles /list command
func (b *Bot) handleList(ctx context.Context, botAPI *bot.Bot, update *models.Update) {
	commandsProcessed.WithLabelValues("list").Inc()
	if update.Message == nil || update.Message.From == nil {
		return
	}
	chatID := update.Message.Chat.ID

	dbUser, err := b.saypay.GetOrCreateUserByLogin(ctx, userLogin(update.Message.From))
	if err != nil {
		errorsTotal.WithLabelValues("database").Inc()
		b.sendText(ctx, chatID, "Could not load your expenses, please try again later.")
		return
	}

	expenses, err := b.saypay.ExpensesByUser(ctx, dbUser.ID, db.Pager{PageSize: 10})
	if err != nil {
		errorsTotal.WithLabelValues("database").Inc()
		b.logger.Error(ctx, "failed to list expenses", "err", err, "user_id", dbUser.ID)
		b.sendText(ctx, chatID, "Could not load your expenses, please try again later.")
		return
	}
	if len(expenses) == 0 {
		b.sendText(ctx, chatID, "No expenses yet. Send a voice message to add one.")
		return
	}

	var sb strings.Builder
	sb.WriteString("💸 Recent expenses:\n")
	for _, e := range saypay.NewExpenses(expenses) {
		fmt.Fprintf(&sb, "• %s — %.2f %s (%s, %s)\n", e.Description, e.Amount, e.Currency, e.Category, e.SpentAt)
	}
	b.sendText(ctx, chatID, sb.String())
}

// handleMessage handles everything without a dedicated handler, voice included
func (b *Bot) handleMessage(ctx context.Context, botAPI *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	if update.Message.Voice != nil {
		b.handleVoice(ctx, botAPI, update)
		return
	}

	messagesProcessed.WithLabelValues("text").Inc()
	b.logger.Print(ctx, "unknown command", "text", update.Message.Text, "from", update.Message.From.Username)
	b.sendText(ctx, update.Message.Chat.ID, "Send a voice message with an expense, or /help for details.")
}

// handleVoice handles voice messages
func (b *Bot) handleVoice(ctx context.Context, botAPI *bot.Bot, update *models.Update) {
	messagesProcessed.WithLabelValues("voice").Inc()

	if b.pipeline == nil {
		b.sendText(ctx, update.Message.Chat.ID, "Voice expenses are disabled on this deployment.")
		return
	}

	chatID := update.Message.Chat.ID
	from := update.Message.From
	voice := update.Message.Voice

	started := time.Now()
	defer func() { voiceDuration.Observe(time.Since(started).Seconds()) }()

	b.logger.Print(ctx, "received voice message", "file_id", voice.FileID, "duration", voice.Duration)
	data, err := b.downloadTgFile(ctx, botAPI, voice.FileID)
	if err != nil {
		errorsTotal.WithLabelValues("download_file").Inc()
		b.logger.Error(ctx, "failed to download voice file", "err", err)
		b.sendText(ctx, chatID, "Could not fetch the voice message, please try again.")
		return
	}

	audio := services.RecordedAudio{
		Data:     data,
		Duration: time.Duration(voice.Duration) * time.Second,
		MIME:     voice.MimeType,
	}
	if audio.MIME == "" {
		audio.MIME = "audio/ogg"
	}

	// Drop any previous pending draft, a new voice message replaces it.
	b.stateManager.Clear(from.ID)

	session := pipeline.NewSession()
	err = b.pipeline.Process(ctx, session, audio, from.LanguageCode)

	var lowConf *pipeline.LowConfidenceError
	switch {
	case errors.As(err, &lowConf):
		errorsTotal.WithLabelValues("low_confidence").Inc()
		b.sendText(ctx, chatID, "I could not hear that clearly. Please record again, a bit closer to the microphone.")
		return
	case err != nil:
		errorsTotal.WithLabelValues("pipeline").Inc()
		b.logger.Error(ctx, "voice pipeline failed", "err", err)
		b.sendText(ctx, chatID, "Could not process the voice message, please try again later.")
		return
	}

	b.stateManager.SetSession(from.ID, session)

	_, _ = botAPI.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        formatDraft(session),
		ReplyMarkup: expenseConfirmKeyboard(),
	})
}

// handleCallback handles expense confirmation callbacks
func (b *Bot) handleCallback(ctx context.Context, botAPI *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cb := update.CallbackQuery
	action := strings.TrimPrefix(cb.Data, "expense:")
	callbacksProcessed.WithLabelValues(action).Inc()

	_, _ = botAPI.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	var chatID int64
	if msg := cb.Message.Message; msg != nil {
		chatID = msg.Chat.ID
	} else {
		b.logger.Error(ctx, "callback message is nil")
		return
	}

	session := b.stateManager.Session(cb.From.ID)
	if session == nil {
		b.sendText(ctx, chatID, "No pending expense. Send a voice message to add one.")
		return
	}

	switch action {
	case "confirm":
		dbUser, err := b.saypay.GetOrCreateUserByLogin(ctx, userLogin(&cb.From))
		if err != nil {
			errorsTotal.WithLabelValues("database").Inc()
			b.sendText(ctx, chatID, "Could not save the expense, please try again later.")
			return
		}
		if err := b.pipeline.Save(ctx, session, dbUser.ID); err != nil {
			errorsTotal.WithLabelValues("database").Inc()
			b.logger.Error(ctx, "failed to save expense", "err", err, "user_id", dbUser.ID)
			b.sendText(ctx, chatID, "Could not save the expense, please try again later.")
			return
		}
		expensesCreated.Inc()
		b.stateManager.Clear(cb.From.ID)

		text := "✅ Expense saved."
		if savedDegraded(session) {
			text = "✅ Expense accepted. The database is unavailable right now, it will be stored as soon as possible."
		}
		b.sendText(ctx, chatID, text)
	case "cancel":
		b.pipeline.Cancel(session)
		b.stateManager.Clear(cb.From.ID)
		b.sendText(ctx, chatID, "❌ Expense discarded.")
	}
}

func (b *Bot) downloadTgFile(ctx context.Context, botAPI *bot.Bot, fileID string) ([]byte, error) {
	file, err := botAPI.GetFile(ctx, &bot.GetFileParams{
		FileID: fileID,
	})
	if err != nil {
		b.logger.Error(ctx, "failed to get file", "err", err)
		return nil, err
	}

	fileURL := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", botAPI.Token(), file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		b.logger.Error(ctx, "failed to download file from telegram", "err", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("telegram file download status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// formatDraft renders the draft summary shown before confirmation.
func formatDraft(session *pipeline.Session) string {
	draft := session.Draft()

	var sb strings.Builder
	fmt.Fprintf(&sb, "🧾 %s\n", draft.Description)
	fmt.Fprintf(&sb, "💰 %.2f %s\n", draft.Amount, draft.Currency)
	fmt.Fprintf(&sb, "📂 %s\n", draft.Category)
	fmt.Fprintf(&sb, "📅 %s\n", draft.Date)
	if session.Outcome.Source == services.SourceFallback {
		sb.WriteString("\n⚠️ Rough guess, the extraction service was unavailable. Check the fields.\n")
	}
	sb.WriteString("\nSave this expense?")

	return sb.String()
}

func savedDegraded(session *pipeline.Session) bool {
	for _, w := range session.Warnings {
		if w.Stage == "save" {
			return true
		}
	}
	return false
}
