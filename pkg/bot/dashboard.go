package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v3"

	"kilnbazaar/pkg/logger"
	"kilnbazaar/pkg/models"
	"kilnbazaar/pkg/selection"
	"kilnbazaar/pkg/status"
	"kilnbazaar/service"
)

const (
	btnRequests   = "📋 My requests"
	btnNewInquiry = "✉️ New inquiry"
	btnRate       = "⭐ Rate a supplier"
	btnSwitch     = "🔁 Switch supplier type"
)

var (
	cbList           = tele.Btn{Unique: "list"}
	cbToggle         = tele.Btn{Unique: "sel"}
	cbSelectAll      = tele.Btn{Unique: "all"}
	cbDeleteSelected = tele.Btn{Unique: "del"}
	cbDeleteOne      = tele.Btn{Unique: "rm"}
)

func kindLabel(k models.ProviderKind) string {
	switch k {
	case models.KindCoal:
		return "🪨 " + kindTitle(k)
	case models.KindTransport:
		return "🚚 " + kindTitle(k)
	case models.KindLabour:
		return "👷 " + kindTitle(k)
	}
	return string(k)
}

func kindTitle(k models.ProviderKind) string {
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

func bucketIcon(b status.Bucket) string {
	switch b {
	case status.Positive:
		return "🟢"
	case status.Neutral:
		return "🟡"
	case status.Negative:
		return "🔴"
	}
	return "⚪"
}

// callbackArgs splits "list|id" style payloads.
func callbackArgs(data string) (models.ListName, int64, error) {
	parts := strings.Split(data, "|")
	list, err := models.ParseList(parts[0])
	if err != nil {
		return "", 0, err
	}
	if len(parts) < 2 {
		return list, 0, nil
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("bad id %q: %w", parts[1], err)
	}
	return list, id, nil
}

// A list message stays well under Telegram's 4096 character limit: at most
// maxListRows rows, each field clipped to maxFieldRunes.
const (
	maxListRows   = 20
	maxFieldRunes = 40
)

// field prepares user-entered text for an HTML message.
func field(s string) string {
	if utf8.RuneCountInString(s) > maxFieldRunes {
		s = string([]rune(s)[:maxFieldRunes-1]) + "…"
	}
	return html.EscapeString(s)
}

// row is one displayed line of a list.
type row struct {
	ID   int64
	Text string
}

func rowsOf(list models.ListName, snap *service.Snapshot) []row {
	var rows []row
	switch list {
	case models.ListInquiries:
		for _, r := range snap.Inquiries {
			rows = append(rows, row{r.ID, fmt.Sprintf("%s #%d %s: %s", bucketIcon(r.Bucket), r.ID, field(r.ProviderName), field(string(r.Label)))})
		}
	case models.ListQuotations:
		for _, r := range snap.Quotations {
			rows = append(rows, row{r.ID, fmt.Sprintf("%s #%d %s %.2f %s: %s", bucketIcon(r.Bucket), r.ID, field(r.ItemType), r.Quantity, field(r.Unit), field(string(r.Label)))})
		}
	case models.ListOrders:
		for _, r := range snap.Orders {
			rows = append(rows, row{r.ID, fmt.Sprintf("%s %s %s: %s, payment %s", bucketIcon(r.Bucket), field(r.OrderNumber), field(r.ProviderName), field(string(r.Label)), field(string(r.Payment.Label)))})
		}
	case models.ListRatings:
		for _, r := range snap.Ratings {
			rows = append(rows, row{r.ID, fmt.Sprintf("%s %s %s", strings.Repeat("⭐", r.Rating), field(r.OrderNumber), field(r.ProviderName))})
		}
	}
	return rows
}

func listTitle(list models.ListName) string {
	return strings.ToUpper(string(list[:1])) + string(list[1:])
}

// renderList builds the message text and inline keyboard for one list, with a
// check mark on selected rows. Only the first maxListRows rows are shown.
func renderList(p *service.Panel, list models.ListName) (string, *tele.ReplyMarkup) {
	rows := rowsOf(list, p.Snapshot())
	menu := &tele.ReplyMarkup{}
	if len(rows) == 0 {
		return fmt.Sprintf("<b>%s</b>\n\n%s", listTitle(list), msg("no_rows")), menu
	}
	hidden := 0
	if len(rows) > maxListRows {
		hidden = len(rows) - maxListRows
		rows = rows[:maxListRows]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>\n\n", listTitle(list))
	var kb []tele.Row
	for _, r := range rows {
		b.WriteString(r.Text)
		b.WriteByte('\n')

		mark := "☐"
		if p.IsSelected(list, r.ID) {
			mark = "☑️"
		}
		payload := fmt.Sprintf("%s|%d", list, r.ID)
		kb = append(kb, menu.Row(
			menu.Data(fmt.Sprintf("%s #%d", mark, r.ID), cbToggle.Unique, payload),
			menu.Data("🗑", cbDeleteOne.Unique, payload),
		))
	}
	if hidden > 0 {
		fmt.Fprintf(&b, msg("more_rows"), hidden)
	}
	selected := len(p.Selected(list))
	kb = append(kb, menu.Row(
		menu.Data("☑️ All", cbSelectAll.Unique, string(list)),
		menu.Data(fmt.Sprintf("🗑 Delete selected (%d)", selected), cbDeleteSelected.Unique, string(list)),
	))
	menu.Inline(kb...)
	return b.String(), menu
}

func (b *Bot) handleRequests(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := s.Panel.Refresh(ctx); err != nil {
		b.Log.Warning("dashboard refresh failed, showing last lists")
	}

	snap := s.Panel.Snapshot()
	menu := &tele.ReplyMarkup{}
	menu.Inline(
		menu.Row(
			menu.Data(fmt.Sprintf("Inquiries (%d)", len(snap.Inquiries)), cbList.Unique, string(models.ListInquiries)),
			menu.Data(fmt.Sprintf("Quotations (%d)", len(snap.Quotations)), cbList.Unique, string(models.ListQuotations)),
		),
		menu.Row(
			menu.Data(fmt.Sprintf("Orders (%d)", len(snap.Orders)), cbList.Unique, string(models.ListOrders)),
			menu.Data(fmt.Sprintf("Ratings (%d)", len(snap.Ratings)), cbList.Unique, string(models.ListRatings)),
		),
	)
	return c.Send(fmt.Sprintf("📋 %s requests", kindTitle(s.Panel.Kind)), menu)
}

func (b *Bot) handleShowList(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	list, _, err := callbackArgs(c.Callback().Data)
	if err != nil {
		return c.Respond()
	}
	text, menu := renderList(s.Panel, list)
	_ = c.Respond()
	return c.Send(text, menu, tele.ModeHTML)
}

func (b *Bot) handleToggle(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	list, id, err := callbackArgs(c.Callback().Data)
	if err != nil {
		return c.Respond()
	}
	s.Panel.Toggle(list, id)
	return b.redraw(c, s.Panel, list)
}

func (b *Bot) handleSelectAll(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	list, _, err := callbackArgs(c.Callback().Data)
	if err != nil {
		return c.Respond()
	}
	s.Panel.SelectAll(list)
	return b.redraw(c, s.Panel, list)
}

func (b *Bot) handleDeleteSelected(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	list, _, err := callbackArgs(c.Callback().Data)
	if err != nil {
		return c.Respond()
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	n, err := s.Panel.DeleteSelected(ctx, list)
	switch {
	case errors.Is(err, selection.ErrEmpty):
		return c.Respond(&tele.CallbackResponse{Text: "Select something first."})
	case errors.Is(err, selection.ErrInProgress):
		return c.Respond(&tele.CallbackResponse{Text: msg("busy")})
	case err != nil:
		b.Log.Warning("bulk delete failed", logger.String("list", string(list)), logger.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: msg("delete_failed"), ShowAlert: true})
	}
	_ = c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf(msg("deleted"), n)})
	return b.redraw(c, s.Panel, list)
}

func (b *Bot) handleDeleteOne(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	list, id, err := callbackArgs(c.Callback().Data)
	if err != nil {
		return c.Respond()
	}

	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()
	if err := s.Panel.DeleteOne(ctx, list, id); err != nil {
		b.Log.Warning("delete failed", logger.String("list", string(list)), logger.Error(err))
		return c.Respond(&tele.CallbackResponse{Text: msg("error"), ShowAlert: true})
	}
	_ = c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf(msg("deleted"), 1)})
	return b.redraw(c, s.Panel, list)
}

func (b *Bot) redraw(c tele.Context, p *service.Panel, list models.ListName) error {
	text, menu := renderList(p, list)
	_ = c.Respond()
	return c.Edit(text, menu, tele.ModeHTML)
}
