// Command leaguectl is the command-line client of the league API.
//
// Usage:
//
//	leaguectl signup --email s1234@hanilgo.cnehs.kr --nickname 민수
//	leaguectl verify
//	leaguectl login --email s1234@hanilgo.cnehs.kr
//	leaguectl matches --next
//	leaguectl vote 2025-04-12-a homeWin
//	leaguectl chat 2025-04-12-a --follow
//	leaguectl watch-points
//	leaguectl admin import-matches fixtures.yaml
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hsp-league/league-backend/internal/identity"
)

const (
	defaultAPIURL = "http://localhost:8080/api/v1"
	passwordEnv   = "LEAGUECTL_PASSWORD"
)

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}
	var verbose bool

	root := &cobra.Command{
		Use:           "leaguectl",
		Short:         "League client: matches, predictions, chat and points",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.logLevel = "warn"
			if verbose {
				opts.logLevel = "debug"
			}
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.apiURL, "api", envOr("LEAGUE_API_URL", defaultAPIURL), "League API base URL")
	f.StringVar(&opts.apiKey, "api-key", os.Getenv("FIREBASE_WEB_API_KEY"), "Firebase web API key")
	f.StringVar(&opts.sessionPath, "session", defaultSessionPath(), "Session file")
	f.StringVar(&opts.emailDomain, "email-domain", os.Getenv("LEAGUE_EMAIL_DOMAIN"), "Required email domain for sign-up")
	f.StringVar(&opts.avatarBase, "avatar-base", os.Getenv("AVATAR_BASE_URL"), "Generated avatar base URL")
	f.StringVar(&opts.identityURL, "identity-url", os.Getenv("IDENTITY_TOOLKIT_URL"), "Identity Toolkit base URL")
	f.StringVar(&opts.tokenURL, "token-url", os.Getenv("SECURE_TOKEN_URL"), "Secure token URL (default "+identity.DefaultTokenURL+")")
	f.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	_ = f.MarkHidden("identity-url")
	_ = f.MarkHidden("token-url")

	root.AddCommand(signupCmd(opts))
	root.AddCommand(verifyCmd(opts))
	root.AddCommand(loginCmd(opts))
	root.AddCommand(logoutCmd(opts))
	root.AddCommand(resetPasswordCmd(opts))
	root.AddCommand(meCmd(opts))
	root.AddCommand(nicknameCmd(opts))
	root.AddCommand(avatarCmd(opts))
	root.AddCommand(watchPointsCmd(opts))
	root.AddCommand(matchesCmd(opts))
	root.AddCommand(matchCmd(opts))
	root.AddCommand(voteCmd(opts))
	root.AddCommand(chatCmd(opts))
	root.AddCommand(leaderboardCmd(opts))
	root.AddCommand(adminCmd(opts))
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// password returns the flag value, falling back to LEAGUECTL_PASSWORD.
func password(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(passwordEnv)
}
