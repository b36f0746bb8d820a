package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/subcommands"

	"github.com/yourorg/wealthtracker/internal/auth"
	"github.com/yourorg/wealthtracker/internal/storage"
)

const loginTimeout = 5 * time.Minute

type loginCmd struct {
	demo bool
}

func (*loginCmd) Name() string     { return "login" }
func (*loginCmd) Synopsis() string { return "signs in with Google or as the demo user" }
func (*loginCmd) Usage() string {
	return `login [-demo]

Opens the Google sign-in page and waits for the redirect on the loopback
address of GOOGLE_REDIRECT_URI. With -demo, signs in as the shared demo user.
`
}

func (c *loginCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.demo, "demo", false, "sign in as the demo user")
}

func (c *loginCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if c.demo {
			if err := a.session.LoginAsDemo(ctx); err != nil {
				return err
			}
		} else if err := a.googleLogin(ctx); err != nil {
			return err
		}
		s := a.session.Read()
		fmt.Fprintf(a.out, "Signed in as %s <%s>\n", s.User.Name, s.User.Email)
		return nil
	})
}

func (a *app) googleLogin(ctx context.Context) error {
	flow := auth.NewOAuthFlow(auth.OAuthConfig{
		ClientID:     a.cfg.GoogleClientID,
		RedirectURI:  a.cfg.GoogleRedirectURI,
		AuthEndpoint: a.cfg.GoogleAuthEndpoint,
	}, storage.NewMemory(), a.session, a.logger)

	authURL, err := flow.Begin(ctx)
	if err != nil {
		return err
	}
	srv, err := auth.NewCallbackServer(flow, a.logger)
	if err != nil {
		return err
	}
	if err := srv.Start(); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Close(shutdownCtx)
	}()

	fmt.Fprintf(a.out, "Open this URL to sign in:\n\n  %s\n\n", authURL)

	waitCtx, cancel := context.WithTimeout(ctx, loginTimeout)
	defer cancel()
	route, err := srv.Wait(waitCtx)
	if err != nil {
		return err
	}
	if route != auth.RouteHome {
		return fmt.Errorf("sign-in did not complete")
	}
	return nil
}

type logoutCmd struct{}

func (*logoutCmd) Name() string           { return "logout" }
func (*logoutCmd) Synopsis() string       { return "signs out and forgets the stored session" }
func (*logoutCmd) Usage() string          { return "logout\n" }
func (*logoutCmd) SetFlags(*flag.FlagSet) {}

func (c *logoutCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.session.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Signed out")
		return nil
	})
}

type whoamiCmd struct {
	name string
}

func (*whoamiCmd) Name() string     { return "whoami" }
func (*whoamiCmd) Synopsis() string { return "shows, or renames, the signed-in user" }
func (*whoamiCmd) Usage() string {
	return `whoami [-name <new name>]
`
}

func (c *whoamiCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "change the display name")
}

func (c *whoamiCmd) Execute(ctx context.Context, _ *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		if err := a.requireSession(); err != nil {
			return err
		}
		if c.name != "" {
			if _, err := a.session.RenameUser(ctx, a.api, c.name); err != nil {
				return err
			}
		}
		s := a.session.Read()
		fmt.Fprintf(a.out, "%s <%s> (id %d)\n", s.User.Name, s.User.Email, s.User.ID)
		if exp, err := a.session.AccessTokenExpiry(); err == nil {
			fmt.Fprintf(a.out, "access token expires %s\n", exp.Local().Format(time.RFC1123))
		}
		return nil
	})
}

type soundCmd struct{}

func (*soundCmd) Name() string           { return "sound" }
func (*soundCmd) Synopsis() string       { return "turns notification sounds on or off" }
func (*soundCmd) Usage() string          { return "sound [on|off]\n" }
func (*soundCmd) SetFlags(*flag.FlagSet) {}

func (c *soundCmd) Execute(ctx context.Context, f *flag.FlagSet, args ...interface{}) subcommands.ExitStatus {
	return withApp(ctx, args, func(a *app) error {
		switch f.Arg(0) {
		case "":
		case "on":
			if err := a.toasts.SetSoundEnabled(ctx, true); err != nil {
				return err
			}
		case "off":
			if err := a.toasts.SetSoundEnabled(ctx, false); err != nil {
				return err
			}
		default:
			return usagef("sound takes on or off, got %q", f.Arg(0))
		}
		state := "off"
		if a.toasts.SoundEnabled() {
			state = "on"
		}
		fmt.Fprintf(a.out, "Notification sounds are %s\n", state)
		return nil
	})
}
