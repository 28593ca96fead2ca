package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/avolkov/duochat/internal/client/api"
	"github.com/avolkov/duochat/internal/client/services"
)

// Chat opens a live conversation with a selected partner. Incoming
// snapshots redraw the history; typed lines are sent; "/quit" leaves the
// conversation.
func (a *App) Chat(ctx context.Context) error {
	if !a.isSignedIn() {
		printlnFn(errorStyle.Render("sign in first"))
		return nil
	}

	partner, err := a.pickPartner(ctx)
	if err != nil {
		return err
	}
	if partner == nil {
		return nil
	}

	conv, err := services.OpenConversation(ctx, a.api, a.session.UserID, partner.ID, a.logger)
	if err != nil {
		printlnFn(errorStyle.Render(err.Error()))
		return err
	}
	defer conv.Close()

	printlnFn(infoStyle.Render(fmt.Sprintf("chatting with %s (type a message, /quit to leave)", partner.DisplayName)))

	go a.renderLoop(conv)

	for {
		line, err := GetSimpleText(a.reader, "", os.Stdout)
		if err != nil {
			return nil
		}
		if line == "/quit" {
			return nil
		}
		if line == "" {
			continue
		}
		if err := conv.Send(ctx, line); err != nil {
			printlnFn(errorStyle.Render(fmt.Sprintf("send failed: %s (message not delivered, try again)", err.Error())))
		}
	}
}

func (a *App) pickPartner(ctx context.Context) (*api.Record, error) {
	partners, err := a.identity.Partners(ctx, a.session.UserID)
	if err != nil {
		printlnFn(errorStyle.Render(err.Error()))
		return nil, err
	}
	if len(partners) == 0 {
		printlnFn(infoStyle.Render("nobody else is here yet"))
		return nil, nil
	}

	for i, p := range partners {
		printlnFn(fmt.Sprintf("%d. %s <%s>", i+1, p.DisplayName, p.Email))
	}

	choice, err := GetSimpleText(a.reader, "Pick a partner by number", os.Stdout)
	if err != nil {
		return nil, err
	}
	idx, err := strconv.Atoi(choice)
	if err != nil || idx < 1 || idx > len(partners) {
		printlnFn(errorStyle.Render("no such partner"))
		return nil, nil
	}
	return partners[idx-1], nil
}

func (a *App) renderLoop(conv *services.Conversation) {
	for {
		select {
		case snap, ok := <-conv.Updates():
			if !ok {
				return
			}
			a.renderSnapshot(snap)
		case err, ok := <-conv.Errors():
			if !ok {
				return
			}
			printlnFn(errorStyle.Render(fmt.Sprintf("feed error: %s", err.Error())))
		}
	}
}

func (a *App) renderSnapshot(snap []api.Message) {
	rows := services.Present(snap, a.session.UserID)
	for _, row := range rows {
		ts := timestampStyle.Render(row.SentAt.Local().Format("15:04"))
		switch row.Kind {
		case services.RowSent:
			printlnFn(sentStyle.Render(fmt.Sprintf("%s you: %s", ts, row.Body)))
		case services.RowReceived:
			printlnFn(receivedStyle.Render(fmt.Sprintf("%s them: %s", ts, row.Body)))
		}
	}
}
