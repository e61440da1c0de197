package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"tikscraper/pkg/auth"
	"tikscraper/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage TikTok session credentials",
	Long: `Manage the TikTok session cookies used by the comment pass.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (TIKSCRAPER_SESSION_ID, TIKSCRAPER_MS_TOKEN)

The comment endpoints are public, so a session is optional. A logged in
session is less likely to be throttled.`,
}

var loginCmd = &cobra.Command{
	Use:   "login [name]",
	Short: "Store a TikTok session securely",
	Long: `Store the sessionid and msToken cookies of a logged in TikTok web session.

You will be prompted for:
  - A name for the account (if not provided)
  - Session ID (from the sessionid cookie)
  - msToken (optional, from the msToken cookie)
  - User Agent (optional, press Enter for default)`,
	Example: `  tikscraper auth login
  tikscraper auth login research`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored accounts",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var removeCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"logout"},
	Short:   "Remove a stored account",
	Args:    cobra.ExactArgs(1),
	RunE:    runRemove,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(listCmd)
	authCmd.AddCommand(removeCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	var name string
	if len(args) > 0 {
		name = args[0]
	}

	reader := bufio.NewReader(os.Stdin)
	auth.ShowCookieExtractionGuide(os.Stdout)

	if name == "" {
		fmt.Print("Account name: ")
		input, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("failed to read account name: %w", err)
		}
		name = strings.TrimSpace(input)
	}
	if name == "" {
		return fmt.Errorf("account name is required")
	}

	if existing, _ := manager.Retrieve(name); existing != nil {
		fmt.Printf("\nAccount '%s' already exists. Update credentials? (y/N): ", name)
		input, _ := reader.ReadString('\n')
		if !strings.HasPrefix(strings.ToLower(strings.TrimSpace(input)), "y") {
			return nil
		}
	}

	fmt.Println("\nEnter your cookie values (they will be hidden as you type):")

	fmt.Print("sessionid cookie value: ")
	sessionID, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read session ID: %w", err)
	}

	fmt.Print("msToken cookie value (optional): ")
	msToken, err := readPassword(reader)
	if err != nil {
		return fmt.Errorf("failed to read msToken: %w", err)
	}

	fmt.Print("User Agent (press Enter to use default): ")
	userAgent, _ := reader.ReadString('\n')

	account := &auth.Account{
		Username:     name,
		SessionID:    sessionID,
		MsToken:      msToken,
		UserAgent:    strings.TrimSpace(userAgent),
		LastModified: time.Now(),
	}
	if err := account.Validate(); err != nil {
		return err
	}

	if err := manager.Store(account); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	sanitized := auth.SanitizeAccount(account)
	ui.PrintSuccess("Account saved: " + name)
	ui.PrintInfo("Session ID", sanitized.SessionID)
	if auth.IsKeyringAvailable() {
		ui.PrintInfo("Stored in", "system keychain")
	} else {
		ui.PrintInfo("Stored in", "encrypted file")
	}
	fmt.Printf("\nUse it with: tikscraper comments --account %s\n", name)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	accounts, err := manager.List()
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if len(accounts) == 0 {
		ui.PrintInfo("No stored accounts", "Use 'tikscraper auth login' to add an account")
		return nil
	}

	for i, account := range accounts {
		sanitized := auth.SanitizeAccount(account)
		rows := []ui.Row{
			{Label: "Session ID", Value: sanitized.SessionID},
		}
		if sanitized.MsToken != "" {
			rows = append(rows, ui.Row{Label: "msToken", Value: sanitized.MsToken})
		}
		if sanitized.UserAgent != "" {
			rows = append(rows, ui.Row{Label: "User Agent", Value: sanitized.UserAgent})
		}
		rows = append(rows, ui.Row{Label: "Last Modified", Value: sanitized.LastModified.Format("2006-01-02 15:04:05")})

		title := fmt.Sprintf("%d. %s", i+1, sanitized.Username)
		if i == 0 {
			title += " (default)"
		}
		ui.PrintTable(title, rows)
	}
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	manager, err := auth.NewManager()
	if err != nil {
		return fmt.Errorf("failed to initialize credential manager: %w", err)
	}

	if err := manager.Delete(args[0]); err != nil {
		return err
	}
	ui.PrintSuccess("Account removed: " + args[0])
	return nil
}

// readPassword reads a secret from stdin without echoing when stdin is a
// terminal
func readPassword(reader *bufio.Reader) (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err == nil {
			return strings.TrimSpace(string(password)), nil
		}
	}

	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return "", err
	}
	return strings.TrimSpace(input), nil
}
