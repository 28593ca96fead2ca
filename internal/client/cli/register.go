package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/avolkov/duochat/internal/client/services"
)

// Register drives the sign-up form: name, email, avatar image path, and
// password with confirmation. Validation failures come back from the
// identity service with the message to show.
func (a *App) Register(ctx context.Context) error {

	name, err := GetSimpleText(a.reader, "Enter your name", os.Stdout)
	if err != nil {
		return err
	}

	email, err := GetSimpleText(a.reader, "Enter your e-mail", os.Stdout)
	if err != nil {
		return err
	}

	avatarPath, err := GetSimpleText(a.reader, "Path to an avatar image (jpeg/png)", os.Stdout)
	if err != nil {
		return err
	}

	var avatar []byte
	if avatarPath != "" {
		avatar, err = os.ReadFile(avatarPath)
		if err != nil {
			printlnFn(errorStyle.Render(fmt.Sprintf("cannot read avatar: %s", err.Error())))
			return err
		}
	}

	password, err := GetPassword(os.Stdout, "Enter password")
	if err != nil {
		return err
	}

	confirm, err := GetPassword(os.Stdout, "Confirm password")
	if err != nil {
		return err
	}

	sess, err := a.identity.SignUp(ctx, services.SignUpInput{
		Name:     name,
		Email:    email,
		Password: password,
		Confirm:  confirm,
		Avatar:   avatar,
	})
	if err != nil {
		printlnFn(errorStyle.Render(err.Error()))
		return err
	}

	a.session = sess
	printlnFn(infoStyle.Render(fmt.Sprintf("Welcome, %s!", sess.DisplayName)))
	return nil
}
