package main

import (
	"context"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/hsp-league/league-backend/internal/session"
)

func signupCmd(opts *options) *cobra.Command {
	var email, pass, nickname string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and send the verification email",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			svc := a.session()
			if err := svc.BeginSignup(email, password(pass)); err != nil {
				return err
			}
			pending, err := svc.SaveSignupProfile(ctx, nickname)
			if err != nil {
				return err
			}
			a.printf("인증 메일을 %s(으)로 보냈습니다.\n", pending.Email)
			a.printf("메일의 링크를 누른 뒤 'leaguectl verify'를 실행하세요.\n")
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "School email address")
	cmd.Flags().StringVar(&pass, "password", "", "Password (or "+passwordEnv+")")
	cmd.Flags().StringVar(&nickname, "nickname", "", "Nickname, 2 to 20 characters")
	return cmd
}

func verifyCmd(opts *options) *cobra.Command {
	var pass string
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Finish a sign-up after the email link was clicked",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			if a.file.Pending == nil {
				return session.ErrTempDataMissing
			}
			svc := a.session()
			// The password is not stored between runs.
			p := *a.file.Pending
			p.Password = password(pass)
			svc.RestorePending(p)

			stop := svc.Start(ctx)
			defer stop()

			profile, err := svc.CheckVerification(ctx)
			if err != nil {
				return err
			}
			a.printf("가입이 완료되었습니다. 환영합니다, %s님!\n", profile.Nickname)
			if sess := svc.Session(); sess != nil {
				a.printf("포인트: %d\n", sess.Points())
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&pass, "password", "", "Password used at sign-up (or "+passwordEnv+")")
	return cmd
}

func loginCmd(opts *options) *cobra.Command {
	var email, pass string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with a verified account",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			svc := a.session()
			stop := svc.Start(ctx)
			defer stop()

			v, err := svc.SignIn(ctx, email, password(pass))
			if err != nil {
				return err
			}
			if !v.LoggedIn {
				// Signed in, but the league profile could not be loaded.
				if _, err := a.api.Me(ctx); err != nil {
					return err
				}
				return session.ErrLoginRequired
			}
			printView(a, v)
			return nil
		}),
	}
	cmd.Flags().StringVar(&email, "email", "", "School email address")
	cmd.Flags().StringVar(&pass, "password", "", "Password (or "+passwordEnv+")")
	return cmd
}

func logoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget any pending sign-up",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			if err := a.session().SignOut(ctx); err != nil {
				return err
			}
			a.printf("로그아웃되었습니다.\n")
			return nil
		}),
	}
}

func resetPasswordCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <email>",
		Short: "Send a password reset email",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			if err := a.session().SendPasswordReset(ctx, args[0]); err != nil {
				return err
			}
			a.printf("비밀번호 재설정 메일을 보냈습니다.\n")
			return nil
		}),
	}
}

func meCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the signed-in profile and points",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			svc, stop, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer stop()
			printView(a, svc.View())
			return nil
		}),
	}
}

func nicknameCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "nickname <name>",
		Short: "Change the nickname",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			svc, stop, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer stop()
			profile, err := svc.SaveNickname(ctx, args[0])
			if err != nil {
				return err
			}
			a.printf("닉네임이 %s(으)로 변경되었습니다.\n", profile.Nickname)
			return nil
		}),
	}
}

func avatarCmd(opts *options) *cobra.Command {
	var nickname string
	cmd := &cobra.Command{
		Use:   "avatar <image>",
		Short: "Upload a profile image",
		Args:  cobra.ExactArgs(1),
		RunE: run(opts, func(ctx context.Context, a *app, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return localf("read image: %w", err)
			}
			svc, stop, err := a.signedIn(ctx)
			if err != nil {
				return err
			}
			defer stop()
			profile, err := svc.SaveProfile(ctx, nickname, &session.Image{Name: args[0], Data: data})
			if err != nil {
				return err
			}
			a.printf("프로필 이미지가 변경되었습니다: %s\n", profile.AvatarURL)
			return nil
		}),
	}
	cmd.Flags().StringVar(&nickname, "nickname", "", "Also change the nickname")
	return cmd
}

func watchPointsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch-points",
		Short: "Print the points balance whenever it changes",
		Args:  cobra.NoArgs,
		RunE: run(opts, func(ctx context.Context, a *app, _ []string) error {
			var mu sync.Mutex
			last := int64(-1)
			onView := func(v session.View) {
				if !v.LoggedIn {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				if v.Points == last {
					return
				}
				last = v.Points
				a.printf("포인트: %d\n", v.Points)
			}

			_, stop, err := a.signedIn(ctx, session.WithLivePoints(true), session.WithListener(onView))
			if err != nil {
				return err
			}
			defer stop()
			<-ctx.Done()
			return nil
		}),
	}
}

func printView(a *app, v session.View) {
	if v.Profile == nil {
		return
	}
	a.printf("닉네임: %s\n", v.Profile.Nickname)
	a.printf("이메일: %s\n", v.Profile.Email)
	a.printf("포인트: %d\n", v.Points)
	if v.Admin {
		a.printf("권한:   관리자\n")
	}
}
