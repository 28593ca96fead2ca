package cli

import (
	"context"
	"fmt"
	"os"
)

func (a *App) Login(ctx context.Context) error {

	email, err := GetSimpleText(a.reader, "Enter your e-mail", os.Stdout)
	if err != nil {
		return err
	}

	password, err := GetPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}

	sess, err := a.identity.SignIn(ctx, email, password)
	if err != nil {
		printlnFn(errorStyle.Render(err.Error()))
		return err
	}

	a.session = sess
	printlnFn(infoStyle.Render(fmt.Sprintf("Signed in as %s", sess.DisplayName)))
	return nil
}

// Logout detaches the push token best-effort and clears the cached session.
func (a *App) Logout(ctx context.Context) error {
	if err := a.identity.SignOut(ctx); err != nil {
		printlnFn(errorStyle.Render(err.Error()))
		return err
	}
	a.session.SignedIn = false
	a.session.UserID = ""
	a.session.DisplayName = ""
	a.session.AvatarEncoding = ""
	printlnFn(infoStyle.Render("Signed out"))
	return nil
}
