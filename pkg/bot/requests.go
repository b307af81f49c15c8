package bot

import (
	"context"
	"fmt"
	"strconv"

	tele "gopkg.in/telebot.v3"

	"kilnbazaar/pkg/models"
	"kilnbazaar/service"
)

var (
	cbInquiryProvider = tele.Btn{Unique: "inq"}
	cbRateOrder       = tele.Btn{Unique: "rate"}
	cbStars           = tele.Btn{Unique: "stars"}
)

const (
	maxProviderButtons = 20
	maxRateButtons     = 20
)

func (b *Bot) handleInquiryStart(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
	defer cancel()

	providers, err := b.Svc.Provider().List(ctx, s.Panel.Kind, models.ProviderFilter{Limit: maxProviderButtons})
	if err != nil {
		return b.fail(c, err)
	}
	if len(providers) == 0 {
		return c.Send(msg("no_providers"))
	}

	menu := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, p := range providers {
		label := fmt.Sprintf("%s, %s", p.BusinessName, p.Location)
		if p.IsVerified {
			label = "✔️ " + label
		}
		rows = append(rows, menu.Row(menu.Data(label, cbInquiryProvider.Unique, strconv.FormatInt(p.ID, 10))))
	}
	menu.Inline(rows...)
	return c.Send(msg("pick_provider"), menu)
}

func (b *Bot) handleInquiryProvider(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	id, err := strconv.ParseInt(c.Callback().Data, 10, 64)
	if err != nil {
		return c.Respond()
	}
	s.Inquiry = service.InquiryDraft{ProviderID: id}
	s.State = StateInquiryMessage
	_ = c.Respond()
	return c.Send(msg("inquiry_message"))
}

// handleRateStart offers the newest orders already loaded in the panel.
func (b *Bot) handleRateStart(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return nil
	}
	orders := s.Panel.Snapshot().Orders
	if len(orders) == 0 {
		return c.Send(msg("no_orders"))
	}
	if len(orders) > maxRateButtons {
		orders = orders[:maxRateButtons]
	}

	menu := &tele.ReplyMarkup{}
	var rows []tele.Row
	for _, o := range orders {
		label := fmt.Sprintf("%s, %s", o.OrderNumber, o.ProviderName)
		payload := fmt.Sprintf("%d|%s", o.ProviderID, o.OrderNumber)
		rows = append(rows, menu.Row(menu.Data(label, cbRateOrder.Unique, payload)))
	}
	menu.Inline(rows...)
	return c.Send(msg("pick_order"), menu)
}

func (b *Bot) handleRateOrder(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	args := c.Args()
	if len(args) != 2 {
		return c.Respond()
	}
	providerID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return c.Respond()
	}
	s.Rating = service.RatingDraft{ProviderID: providerID, OrderNumber: args[1]}

	menu := &tele.ReplyMarkup{}
	var stars []tele.Btn
	for i := 1; i <= 5; i++ {
		stars = append(stars, menu.Data(strconv.Itoa(i)+"⭐", cbStars.Unique, strconv.Itoa(i)))
	}
	menu.Inline(menu.Row(stars...))
	_ = c.Respond()
	return c.Send(msg("pick_stars"), menu)
}

func (b *Bot) handleStars(c tele.Context) error {
	s, ok := b.panel(c)
	if !ok {
		return c.Respond()
	}
	n, err := strconv.Atoi(c.Callback().Data)
	if err != nil || s.Rating.ProviderID == 0 {
		return c.Respond()
	}
	s.Rating.Rating = n
	s.State = StateRatingComment
	_ = c.Respond()
	return c.Send(msg("rating_comment"))
}
