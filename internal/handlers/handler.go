package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"fashion-studio/internal/asset"
	"fashion-studio/internal/catalog"
	"fashion-studio/internal/mediagroup"
	"fashion-studio/internal/session"
	"fashion-studio/internal/studio"
	"fashion-studio/internal/telegram"
)

// VideoFetcher downloads finished videos so that keyed backend URLs never
// reach the chat.
type VideoFetcher interface {
	FetchVideo(ctx context.Context, videoURL string) ([]byte, string, error)
}

type Options struct {
	Telegram  *telegram.Client
	Sessions  *session.Store
	Generator catalog.Generator
	Videos    VideoFetcher
	Logger    *slog.Logger
	// DeliveryTimeout bounds the sending of one studio event. Default 2m.
	DeliveryTimeout time.Duration
}

type Handler struct {
	tg              *telegram.Client
	sessions        *session.Store
	gen             catalog.Generator
	videos          VideoFetcher
	logger          *slog.Logger
	aggregator      *mediagroup.Aggregator
	deliveryTimeout time.Duration
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.DeliveryTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Handler{
		tg:              opts.Telegram,
		sessions:        opts.Sessions,
		gen:             opts.Generator,
		videos:          opts.Videos,
		logger:          logger,
		deliveryTimeout: timeout,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	sess, err := h.sessions.Get(chatID, msg.From.UserName)
	if err != nil {
		return err
	}

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, msg.From.ID, sess, msg)
	}
	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, msg)
	}
	if strings.TrimSpace(msg.Text) != "" {
		return h.tg.SendText(chatID, "Send a photo with a caption like \"product Denim jacket\", or see /help.")
	}
	return nil
}

// HandleAlbum uploads a flushed album as numbered catalog items.
func (h *Handler) HandleAlbum(ctx context.Context, album mediagroup.Album) {
	if err := h.uploadPhotos(ctx, album.ChatID, album.Username, album.Caption, album.FileIDs); err != nil {
		h.logger.Error("album upload failed", "chat_id", album.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID, userID int64, sess *session.Session, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, helpText)
	case "catalog":
		return h.tg.SendText(chatID, catalogText(sess.Catalog))
	case "pick":
		if args == "" {
			return h.startPicker(chatID, userID, sess)
		}
		picks, err := parsePick(args, sess.Catalog.Picks())
		if err == nil {
			err = sess.Catalog.SetPicks(picks)
		}
		if err != nil {
			return h.replyError(chatID, err)
		}
		return h.tg.SendText(chatID, pickerSummary(sess.Catalog))
	case "generate":
		return h.generate(chatID, sess)
	case "status":
		return h.tg.SendText(chatID, statusText(sess.Studio.Snapshot()))
	case "video":
		n, tier, err := parseVideoArgs(args)
		if err != nil {
			return h.replyError(chatID, err)
		}
		job, err := jobAt(sess.Studio.Snapshot(), n)
		if err == nil {
			err = sess.Studio.RequestVideo(job.ID, tier)
		}
		if err != nil {
			return h.replyError(chatID, err)
		}
		h.tg.SendUploading(chatID)
		return h.tg.SendText(chatID, fmt.Sprintf("🎬 %s video of %s submitted. This takes a few minutes.", tier, job.Model.Name))
	case "lock":
		return h.lock(chatID, sess, args)
	case "save":
		entry, err := sess.Studio.SaveLookbook()
		if err != nil {
			return h.replyError(chatID, err)
		}
		return h.tg.SendText(chatID, fmt.Sprintf("📖 Saved %d look(s) to the lookbook.", len(entry.Jobs)))
	case "lookbook":
		return h.tg.SendText(chatID, lookbookText(sess.Studio.Lookbook()))
	case "reset":
		sess.Studio.StartOver()
		return h.tg.SendText(chatID, "🧹 Results cleared. Your catalog and picks are kept.")
	case "image":
		return h.createItem(ctx, chatID, sess, args)
	case "delete":
		kind, id, err := parseDelete(args)
		if err != nil {
			return h.replyError(chatID, err)
		}
		if item, ok := sess.Catalog.Get(id); !ok || item.Kind != kind {
			return h.replyError(chatID, catalog.ErrNotFound)
		}
		if err := sess.Catalog.Delete(id); err != nil {
			return h.replyError(chatID, err)
		}
		return h.tg.SendText(chatID, fmt.Sprintf("🗑 Deleted %s #%d.", kind, id))
	default:
		return h.tg.SendText(chatID, "Unknown command. See /help.")
	}
}

func (h *Handler) generate(chatID int64, sess *session.Session) error {
	snap, err := sess.Studio.Generate(sess.Catalog.Resolve())
	if err != nil {
		return h.replyError(chatID, err)
	}
	h.tg.SendTyping(chatID)
	return h.tg.SendText(chatID, fmt.Sprintf("✨ Composing %d look(s)…", len(snap.Jobs)))
}

func (h *Handler) lock(chatID int64, sess *session.Session, args string) error {
	if strings.EqualFold(args, "off") {
		sess.Catalog.SetIdentityLock(nil)
		return h.tg.SendText(chatID, "🔓 Identity lock cleared.")
	}
	n, err := parseIndex(args)
	if err != nil {
		return h.replyError(chatID, err)
	}
	job, err := jobAt(sess.Studio.Snapshot(), n)
	if err != nil {
		return h.replyError(chatID, err)
	}
	img, err := sess.Studio.IdentityLockFrom(job.ID)
	if err != nil {
		return h.replyError(chatID, err)
	}
	sess.Catalog.SetIdentityLock(&img)
	return h.tg.SendText(chatID, fmt.Sprintf("🔒 Next run keeps the face of %s.", job.Model.Name))
}

func (h *Handler) createItem(ctx context.Context, chatID int64, sess *session.Session, args string) error {
	kind, name, description, err := parseImageArgs(args)
	if err != nil {
		return h.replyError(chatID, err)
	}
	if h.gen == nil {
		return h.tg.SendText(chatID, "Image generation is not available.")
	}

	h.tg.SendTyping(chatID)
	item, err := sess.Catalog.Create(ctx, h.gen, kind, name, description)
	if err != nil {
		h.logger.Error("catalog item generation failed", "chat_id", chatID, "kind", kind, "err", err)
		return h.tg.SendText(chatID, "❌ Could not generate that item. Try another description.")
	}

	caption := fmt.Sprintf("✅ Added %s #%d %s", item.Kind, item.ID, item.Name)
	if item.Image.IsZero() {
		return h.tg.SendText(chatID, caption)
	}
	return h.tg.SendPhoto(chatID, item.Image, caption, nil)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	fileID := msg.Photo[len(msg.Photo)-1].FileID

	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Photo{
			ChatID:   chatID,
			UserID:   msg.From.ID,
			Username: msg.From.UserName,
			AlbumID:  msg.MediaGroupID,
			Caption:  msg.Caption,
			FileID:   fileID,
		})
		return nil
	}
	return h.uploadPhotos(ctx, chatID, msg.From.UserName, msg.Caption, []string{fileID})
}

func (h *Handler) uploadPhotos(ctx context.Context, chatID int64, username, caption string, fileIDs []string) error {
	kind, name, err := parseCaption(caption)
	if err != nil {
		return h.replyError(chatID, fmt.Errorf("%w. Caption photos like \"product Denim jacket\"", err))
	}
	sess, err := h.sessions.Get(chatID, username)
	if err != nil {
		return err
	}

	h.tg.SendTyping(chatID)

	images := make([]asset.Asset, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			img, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.replyError(chatID, err)
	}

	lines := make([]string, 0, len(images))
	for i, img := range images {
		itemName := name
		if len(images) > 1 {
			itemName = fmt.Sprintf("%s %d", name, i+1)
		}
		item, isolated, err := sess.Catalog.Upload(ctx, h.gen, kind, itemName, img)
		if err != nil {
			return h.replyError(chatID, err)
		}
		line := fmt.Sprintf("#%d %s", item.ID, item.Name)
		if kind == catalog.KindModel && !isolated {
			line += " (original photo kept)"
		}
		lines = append(lines, line)
	}
	return h.tg.SendText(chatID, fmt.Sprintf("✅ Added %s:\n%s", kind, strings.Join(lines, "\n")))
}

// Deliver sends one studio event to its chat. Events of a chat arrive in order.
func (h *Handler) Deliver(chatID int64, ev studio.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), h.deliveryTimeout)
	defer cancel()

	if err := h.deliver(ctx, chatID, ev); err != nil {
		h.logger.Error("event delivery failed", "chat_id", chatID, "kind", ev.Kind, "job_id", ev.Job.ID, "err", err)
	}
}

func (h *Handler) deliver(ctx context.Context, chatID int64, ev studio.Event) error {
	sess, err := h.sessions.Get(chatID, "")
	if err != nil {
		return err
	}
	snap := sess.Studio.Snapshot()
	if snap.RunID != ev.RunID {
		return nil
	}
	n := jobNumber(snap, ev.Job.ID)
	job := ev.Job

	switch ev.Kind {
	case studio.EventJobComposed:
		kb := jobKeyboard(job.ID)
		for i, img := range job.Images {
			var markup *telegram.Keyboard
			if i == len(job.Images)-1 {
				markup = &kb
			}
			if err := h.tg.SendPhoto(chatID, img.Image, jobCaption(n, job, img.Angle), markup); err != nil {
				return err
			}
		}
		return nil
	case studio.EventJobFailed:
		return h.tg.SendText(chatID, fmt.Sprintf("❌ %d. %s: %s", n, job.Model.Name, job.Error))
	case studio.EventCutoutReady:
		if job.Cutout == nil {
			return nil
		}
		return h.tg.SendPhoto(chatID, *job.Cutout, fmt.Sprintf("%d. %s · cutout", n, job.Model.Name), nil)
	case studio.EventVideoReady:
		slot := job.Video(ev.Tier)
		caption := fmt.Sprintf("🎬 %d. %s · %s video", n, job.Model.Name, ev.Tier)
		if err := h.sendVideo(ctx, chatID, slot.ResultURL, caption); err != nil {
			h.logger.Warn("video download failed", "chat_id", chatID, "job_id", job.ID, "err", err)
			return h.tg.SendText(chatID, caption+" is ready but could not be downloaded.")
		}
		return nil
	case studio.EventVideoFailed:
		slot := job.Video(ev.Tier)
		text := fmt.Sprintf("❌ %d. %s · %s video failed: %s", n, job.Model.Name, ev.Tier, slot.Error)
		if err := h.tg.SendText(chatID, text); err != nil {
			return err
		}
		if slot.DirectLink == "" {
			return nil
		}
		if err := h.sendVideo(ctx, chatID, slot.DirectLink, "The backend still produced a file, here it is."); err != nil {
			h.logger.Warn("salvage download failed", "chat_id", chatID, "job_id", job.ID, "err", err)
		}
		return nil
	case studio.EventRunSettled:
		return h.tg.SendText(chatID, settledText(snap))
	}
	return nil
}

func (h *Handler) sendVideo(ctx context.Context, chatID int64, videoURL, caption string) error {
	if h.videos == nil || videoURL == "" {
		return errors.New("no video source")
	}
	h.tg.SendUploading(chatID)
	data, mimeType, err := h.videos.FetchVideo(ctx, videoURL)
	if err != nil {
		return err
	}
	return h.tg.SendVideo(chatID, data, mimeType, caption)
}

func (h *Handler) replyError(chatID int64, err error) error {
	return h.tg.SendText(chatID, "⚠️ "+userMessage(err))
}
