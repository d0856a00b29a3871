package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/profile"
)

func (a *app) me(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("me", flag.ContinueOnError)
	uid := fs.String("uid", "", "user id (default: signed-in user)")
	name := fs.String("name", "", "new display name")
	photo := fs.String("photo", "", "new photo URL")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	ps := profile.NewSync(a.client)
	p, err := ps.Get(ctx, *uid)
	if err != nil {
		return err
	}
	if p == nil {
		fmt.Fprintln(a.stdout, "no profile")
		return nil
	}

	var patch api.UserPatch
	if *name != "" {
		patch.DisplayName = name
	}
	if *photo != "" {
		patch.PhotoURL = photo
	}
	if patch.DisplayName != nil || patch.PhotoURL != nil {
		if err := ps.Update(ctx, p.UID, patch); err != nil {
			return err
		}
		if p, err = ps.Refresh(ctx, p.UID); err != nil {
			return err
		}
	}

	fmt.Fprintf(a.stdout, "uid: %s\nname: %s\nemail: %s\ncontributions: %d\n", p.UID, p.DisplayName, p.Email, p.Contributions)
	if p.PhotoURL != "" {
		fmt.Fprintf(a.stdout, "photo: %s\n", p.PhotoURL)
	}
	return nil
}

func (a *app) verify(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	send := fs.Bool("send", false, "mail a new verification link")
	wait := fs.Bool("wait", false, "poll until the email is verified")
	interval := fs.Duration("interval", 5*time.Second, "poll interval")
	attempts := fs.Int("attempts", 60, "maximum number of checks")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	v := profile.NewVerifier(a.client)
	if *send {
		if err := v.Resend(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "verification email sent")
	}

	if *wait {
		if err := v.Wait(ctx, *interval, *attempts); err != nil {
			return err
		}
		fmt.Fprintln(a.stdout, "email verified")
		return nil
	}

	ok, err := v.CheckNow(ctx)
	if err != nil {
		return err
	}
	if ok {
		fmt.Fprintln(a.stdout, "email verified")
	} else {
		fmt.Fprintln(a.stdout, "email not verified")
	}
	return nil
}
