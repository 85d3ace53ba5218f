// internal/cli/login.go
package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/toonworks/webtoon-dl/internal/auth"
	headersutil "github.com/toonworks/webtoon-dl/internal/utils/headers"
)

var (
	loginSession  string
	loginURL      string
	loginSelector string
	loginTimeout  string
	loginHeaders  []string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Login interactively and save the session",
	Long: `Opens a visible Chrome window on the site's login page. Complete the
login manually; the captured cookies are saved as a named session for
use with --session on other commands.`,
	Example: `  # Login and save the session as "my-login"
  webtoon-dl login --session=my-login

  # Login on a specific page and wait for the profile menu to appear
  webtoon-dl login --session=my-login --url=https://www.webtoons.com/member/login --wait-for=".lnb_user"`,
	RunE: runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().StringVarP(&loginSession, "session", "s", "", "Name to save the session as (required)")
	loginCmd.Flags().StringVar(&loginURL, "url", "https://www.webtoons.com/member/login", "Login page URL")
	loginCmd.Flags().StringVar(&loginSelector, "wait-for", "", "CSS selector that appears once logged in (otherwise press Enter)")
	loginCmd.Flags().StringVar(&loginTimeout, "login-timeout", "5m", "How long to wait for the login to complete")
	loginCmd.Flags().StringArrayVarP(&loginHeaders, "header", "H", []string{}, "Custom headers to store with the session")
	loginCmd.MarkFlagRequired("session")
}

func runLogin(cmd *cobra.Command, args []string) error {
	timeout, err := time.ParseDuration(loginTimeout)
	if err != nil {
		return fmt.Errorf("invalid login timeout: %w", err)
	}

	appCtx := getApp()
	if appCtx == nil {
		return fmt.Errorf("application not initialized")
	}

	session, err := auth.InteractiveLogin(auth.LoginOptions{
		SessionName:  loginSession,
		URL:          loginURL,
		WaitSelector: loginSelector,
		Timeout:      timeout,
		ChromePath:   appCtx.Config.ChromePath,
		Headers:      headersutil.ParseHeaders(loginHeaders),
	})
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	if err := auth.SaveSessionWithManifest(session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	fmt.Printf("\nSession '%s' saved.\n", session.Name)
	if !session.ExpiresAt.IsZero() {
		fmt.Printf("Expires: %s\n", session.ExpiresAt.Format(time.RFC1123))
	}
	fmt.Printf("\nUse with:\n")
	fmt.Printf("  webtoon-dl download <series-url> --session=%s\n\n", session.Name)

	return nil
}
