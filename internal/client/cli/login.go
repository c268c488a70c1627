package cli

import (
	"context"
	"log"
	"os"
)

// Login establishes the display identity. The user can paste a pre-issued
// identity token (read without echo); otherwise a fresh one is minted from
// the display name.
func (a *App) Login(ctx context.Context) error {

	name := a.config.DisplayName
	if name == "" {
		var err error
		name, err = GetSimpleText(a.reader, "- Enter display name", os.Stdout)
		if err != nil {
			return err
		}
	}
	a.displayName = name

	token, err := GetSecret("Paste identity token (leave empty to request a new one)", os.Stdout)
	if err != nil {
		return err
	}
	if len(token) > 0 {
		a.api.SetToken(string(token))
		return nil
	}

	if err := a.api.Login(ctx, name); err != nil {
		return err
	}
	log.Printf("Logged in as %s", name)
	return nil
}
