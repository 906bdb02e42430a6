package main

import (
	"flag"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/model"
)

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func cmdRegister(a *app, args []string) error {
	fs := a.flags("register")
	var in model.RegisterInput
	fs.StringVar(&in.Email, "email", "", "email")
	fs.StringVar(&in.Username, "username", "", "username")
	fs.StringVar(&in.FirstName, "first", "", "first name")
	fs.StringVar(&in.LastName, "last", "", "last name")
	fs.StringVar(&in.Password, "password", "", "password")
	fs.StringVar(&in.PasswordConfirm, "confirm", "", "password confirmation (defaults to -password)")
	fs.StringVar(&in.PhoneNumber, "phone", "", "phone number")
	fs.StringVar(&in.Location, "location", "", "location")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if in.Email == "" || in.Password == "" {
		return errUsage
	}
	if in.PasswordConfirm == "" {
		in.PasswordConfirm = in.Password
	}
	u, err := a.session.Register(a.ctx, in)
	if err != nil {
		return err
	}
	a.printJSON(u)
	return nil
}

func cmdLogin(a *app, args []string) error {
	fs := a.flags("login")
	email := fs.String("email", "", "email")
	password := fs.String("password", "", "password")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *email == "" || *password == "" {
		return errUsage
	}
	u, err := a.session.Login(a.ctx, *email, *password)
	if err != nil {
		return err
	}
	a.println("logged in as", u.DisplayName())
	return nil
}

// cmdLogout always clears local credentials; a server-side failure is only
// reported.
func cmdLogout(a *app, _ []string) error {
	if err := a.session.Logout(a.ctx); err != nil {
		a.log.Info("server logout", zap.Error(err))
		a.println("logged out locally (server logout failed)")
		return nil
	}
	a.println("ok")
	return nil
}

func cmdWhoami(a *app, _ []string) error {
	s, err := a.me()
	if err != nil {
		return err
	}
	snap := s.Snapshot()
	out := struct {
		*model.User
		TokenExpiresAt string `json:"token_expires_at,omitempty"`
	}{User: snap.User}
	if exp := s.TokenExpiresAt(); !exp.IsZero() {
		out.TokenExpiresAt = exp.UTC().Format("2006-01-02T15:04:05Z")
	}
	a.printJSON(out)
	return nil
}

func cmdProfile(a *app, args []string) error {
	fs := a.flags("profile")
	id := fs.Int64("id", 0, "user id (default: yourself)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *id > 0 {
		u, err := a.svc.Users.GetByID(a.ctx, *id)
		if err != nil {
			return err
		}
		a.printJSON(u)
		return nil
	}
	s, err := a.me()
	if err != nil {
		return err
	}
	a.printJSON(s.Snapshot().User)
	return nil
}

func cmdUpdateProfile(a *app, args []string) error {
	fs := a.flags("update-profile")
	var upd model.ProfileUpdate
	optString(fs, &upd.FirstName, "first", "first name")
	optString(fs, &upd.LastName, "last", "last name")
	optString(fs, &upd.Bio, "bio", "bio")
	optString(fs, &upd.PhoneNumber, "phone", "phone number")
	optString(fs, &upd.Location, "location", "location")
	avatar := fs.String("avatar", "", "avatar image file")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	s, err := a.me()
	if err != nil {
		return err
	}
	if *avatar != "" {
		f, err := os.Open(*avatar)
		if err != nil {
			return err
		}
		defer f.Close()
		if _, err := a.svc.Users.UploadAvatar(a.ctx, filepath.Base(*avatar), f); err != nil {
			return err
		}
	}
	u, err := s.UpdateProfile(a.ctx, upd)
	if err != nil {
		return err
	}
	a.printJSON(u)
	return nil
}

func cmdStats(a *app, args []string) error {
	fs := a.flags("stats")
	id := fs.Int64("id", 0, "user id")
	if err := fs.Parse(args); err != nil || *id <= 0 {
		return errUsage
	}
	st, err := a.svc.Users.Stats(a.ctx, *id)
	if err != nil {
		return err
	}
	a.printJSON(st)
	return nil
}
