package handlers

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fashion-studio/internal/catalog"
	"fashion-studio/internal/gemini"
	"fashion-studio/internal/session"
	"fashion-studio/internal/telegram"
)

const (
	pickerCallbackPrefix = "pk"
	jobCallbackPrefix    = "jb"
)

// emptyKeyboard removes the buttons of an edited message; a nil row slice
// would be sent as null.
var emptyKeyboard = telegram.Keyboard{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}

var pickerTabs = []struct {
	kind  catalog.Kind
	label string
}{
	{catalog.KindProduct, "Products"},
	{catalog.KindModel, "Models"},
	{catalog.KindScene, "Scene"},
	{catalog.KindPose, "Pose"},
	{catalog.KindAccessory, "Extras"},
}

func (h *Handler) startPicker(chatID, userID int64, sess *session.Session) error {
	menu := h.sessions.UpdateMenu(chatID, func(m *session.Menu) {
		if m.Kind == "" {
			m.Kind = catalog.KindProduct
		}
	})

	text, kb := pickerView(userID, menu.Kind, sess.Catalog)
	msgID, err := h.tg.SendTextWithKeyboard(chatID, text, kb)
	if err != nil {
		return err
	}
	h.sessions.UpdateMenu(chatID, func(m *session.Menu) { m.MessageID = msgID })
	return nil
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}
	parts := strings.Split(strings.TrimSpace(q.Data), ":")
	if len(parts) < 3 {
		return nil
	}

	chatID := q.Message.Chat.ID
	sess, err := h.sessions.Get(chatID, q.From.UserName)
	if err != nil {
		return err
	}

	switch parts[0] {
	case pickerCallbackPrefix:
		return h.handlePickerCallback(ctx, q, sess, parts[1:])
	case jobCallbackPrefix:
		return h.handleJobCallback(q, sess, parts[1], parts[2])
	}
	return nil
}

func (h *Handler) handlePickerCallback(ctx context.Context, q *tgbotapi.CallbackQuery, sess *session.Session, parts []string) error {
	ownerID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil
	}
	if ownerID != q.From.ID {
		_ = h.tg.AnswerCallback(q.ID, "This menu belongs to someone else.", true)
		return nil
	}

	chatID := q.Message.Chat.ID
	action := parts[1]
	args := parts[2:]
	notice := ""

	switch action {
	case "tab":
		if len(args) == 1 {
			if kind, err := catalog.ParseKind(args[0]); err == nil {
				h.sessions.UpdateMenu(chatID, func(m *session.Menu) { m.Kind = kind })
			}
		}
	case "t":
		if len(args) == 1 {
			id, _ := strconv.ParseInt(args[0], 10, 64)
			item, ok := sess.Catalog.Get(id)
			if !ok {
				notice = "That item was deleted."
				break
			}
			if err := sess.Catalog.SetPicks(togglePick(sess.Catalog.Picks(), item)); err != nil {
				notice = err.Error()
			}
		}
	case "go":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.generate(chatID, sess)
	case "close":
		_ = h.tg.AnswerCallback(q.ID, "", false)
		return h.tg.EditTextWithKeyboard(chatID, q.Message.MessageID, pickerSummary(sess.Catalog), emptyKeyboard)
	}

	_ = h.tg.AnswerCallback(q.ID, notice, notice != "")
	menu := h.sessions.UpdateMenu(chatID, func(m *session.Menu) { m.MessageID = q.Message.MessageID })
	text, kb := pickerView(ownerID, menu.Kind, sess.Catalog)
	return h.tg.EditTextWithKeyboard(chatID, menu.MessageID, text, kb)
}

func (h *Handler) handleJobCallback(q *tgbotapi.CallbackQuery, sess *session.Session, action, jobID string) error {
	chatID := q.Message.Chat.ID

	switch action {
	case "preview", "final":
		tier := gemini.TierPreview
		if action == "final" {
			tier = gemini.TierFinal
		}
		if err := sess.Studio.RequestVideo(jobID, tier); err != nil {
			return h.tg.AnswerCallback(q.ID, userMessage(err), true)
		}
		_ = h.tg.AnswerCallback(q.ID, fmt.Sprintf("%s video submitted", action), false)
		h.tg.SendUploading(chatID)
		return nil
	case "lock":
		img, err := sess.Studio.IdentityLockFrom(jobID)
		if err != nil {
			return h.tg.AnswerCallback(q.ID, userMessage(err), true)
		}
		sess.Catalog.SetIdentityLock(&img)
		return h.tg.AnswerCallback(q.ID, "Identity locked for the next run.", false)
	}
	return h.tg.AnswerCallback(q.ID, "", false)
}

// togglePick adds or removes item from p. Scenes and poses are single-choice.
func togglePick(p catalog.Picks, item catalog.Item) catalog.Picks {
	toggle := func(ids []int64) []int64 {
		if slices.Contains(ids, item.ID) {
			return slices.DeleteFunc(slices.Clone(ids), func(id int64) bool { return id == item.ID })
		}
		return append(slices.Clone(ids), item.ID)
	}

	switch item.Kind {
	case catalog.KindProduct:
		p.ProductIDs = toggle(p.ProductIDs)
	case catalog.KindModel:
		p.ModelIDs = toggle(p.ModelIDs)
	case catalog.KindAccessory:
		p.AccessoryIDs = toggle(p.AccessoryIDs)
	case catalog.KindScene:
		if p.SceneID == item.ID {
			p.SceneID = 0
		} else {
			p.SceneID = item.ID
		}
	case catalog.KindPose:
		if p.PoseID == item.ID {
			p.PoseID = 0
		} else {
			p.PoseID = item.ID
		}
	}
	return p
}

func isPicked(p catalog.Picks, item catalog.Item) bool {
	switch item.Kind {
	case catalog.KindProduct:
		return slices.Contains(p.ProductIDs, item.ID)
	case catalog.KindModel:
		return slices.Contains(p.ModelIDs, item.ID)
	case catalog.KindAccessory:
		return slices.Contains(p.AccessoryIDs, item.ID)
	case catalog.KindScene:
		return p.SceneID == item.ID
	case catalog.KindPose:
		return p.PoseID == item.ID
	}
	return false
}

func pickerView(ownerID int64, kind catalog.Kind, store *catalog.Store) (string, telegram.Keyboard) {
	text := pickerSummary(store) + "\n\nTap to pick. /pick color <name> sets a backdrop color instead of a scene."
	return text, pickerKeyboard(ownerID, kind, store.List(kind), store.Picks())
}

func pickerKeyboard(ownerID int64, kind catalog.Kind, items []catalog.Item, picks catalog.Picks) telegram.Keyboard {
	var rows [][]tgbotapi.InlineKeyboardButton

	tabs := make([]tgbotapi.InlineKeyboardButton, 0, len(pickerTabs))
	for _, tab := range pickerTabs {
		label := tab.label
		if tab.kind == kind {
			label = "• " + label
		}
		tabs = append(tabs, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "tab", string(tab.kind))))
	}
	rows = append(rows, tabs)

	var row []tgbotapi.InlineKeyboardButton
	for _, item := range items {
		label := truncateLine(item.Name, 28)
		if isPicked(picks, item) {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, cb(ownerID, "t", strconv.FormatInt(item.ID, 10))))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✨ Generate", cb(ownerID, "go")),
		tgbotapi.NewInlineKeyboardButtonData("✖ Close", cb(ownerID, "close")),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func jobKeyboard(jobID string) telegram.Keyboard {
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🎬 Preview", jobCallbackPrefix+":preview:"+jobID),
		tgbotapi.NewInlineKeyboardButtonData("🎞 Final", jobCallbackPrefix+":final:"+jobID),
		tgbotapi.NewInlineKeyboardButtonData("🔒 Lock", jobCallbackPrefix+":lock:"+jobID),
	))
}

func cb(ownerID int64, parts ...string) string {
	return pickerCallbackPrefix + ":" + strconv.FormatInt(ownerID, 10) + ":" + strings.Join(parts, ":")
}

func truncateLine(s string, max int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}
