package cli

import (
	"context"
	"fmt"
)

// Users lists the available chat partners with the indexes the chat command
// accepts.
func (a *App) Users(ctx context.Context) error {
	if !a.isSignedIn() {
		printlnFn(errorStyle.Render("sign in first"))
		return nil
	}

	partners, err := a.identity.Partners(ctx, a.session.UserID)
	if err != nil {
		printlnFn(errorStyle.Render(err.Error()))
		return err
	}

	if len(partners) == 0 {
		printlnFn(infoStyle.Render("nobody else is here yet"))
		return nil
	}

	for i, p := range partners {
		printlnFn(fmt.Sprintf("%d. %s <%s>", i+1, p.DisplayName, p.Email))
	}
	return nil
}
