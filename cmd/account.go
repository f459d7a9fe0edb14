package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/huh/spinner"
	"github.com/spf13/cobra"

	"tubepilot/internal/model"
)

var accountSkipVerify bool

// defaultRedirectURI matches the OAuth playground flow most refresh tokens
// are minted through.
const defaultRedirectURI = "https://developers.google.com/oauthplayground"

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage YouTube accounts",
}

var accountAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a YouTube account",
	Long: `Register a YouTube account with its OAuth client credentials and a
refresh token obtained from an OAuth consent flow.`,
	RunE: runAccountAdd,
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered accounts",
	RunE:  runAccountList,
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove <account-id>",
	Short: "Remove an account",
	Long:  `Remove an account. Tasks referencing it fail with missing credentials until reassigned.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountRemove,
}

func init() {
	accountAddCmd.Flags().BoolVar(&accountSkipVerify, "skip-verify", false, "Skip the token refresh check")
	accountCmd.AddCommand(accountAddCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	rootCmd.AddCommand(accountCmd)
}

func runAccountAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	fmt.Println(titleStyle.Render("Register YouTube account"))

	account := &model.YoutubeAccount{RedirectURI: defaultRedirectURI}
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Label").
				Description("A name for this channel").
				Value(&account.Label).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) < 2 {
						return errors.New("label must be at least 2 characters")
					}
					return nil
				}),
			huh.NewInput().
				Title("OAuth client ID").
				Value(&account.ClientID),
			huh.NewInput().
				Title("OAuth client secret").
				EchoMode(huh.EchoModePassword).
				Value(&account.ClientSecret),
			huh.NewInput().
				Title("Redirect URI").
				Description("The redirect URI the refresh token was issued for").
				Placeholder(defaultRedirectURI).
				Value(&account.RedirectURI),
			huh.NewInput().
				Title("Refresh token").
				EchoMode(huh.EchoModePassword).
				Value(&account.RefreshToken),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	if err := account.Validate(); err != nil {
		return err
	}

	if !accountSkipVerify {
		var verifyErr error
		_ = spinner.New().
			Title("Verifying credentials").
			Action(func() {
				verifyErr = service.Resolver().Verify(ctx, account)
			}).
			Run()
		if verifyErr != nil {
			fmt.Println(warnStyle.Render("! Credential check failed: " + verifyErr.Error()))
			fmt.Println(warnStyle.Render("  Registering anyway; uploads will fail until the credentials are fixed."))
		} else {
			fmt.Println(successStyle.Render("✓ Credentials verified"))
		}
	}

	if err := service.Store().CreateAccount(ctx, account); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓ Account registered: " + account.ID))
	return nil
}

func runAccountList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	accounts, err := service.Store().ListAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		fmt.Println(infoStyle.Render("No accounts registered"))
		return nil
	}

	for _, a := range accounts {
		fmt.Printf("%-36s  %s\n", a.ID, a.Label)
	}
	return nil
}

func runAccountRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	service, err := buildService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	if err := service.Store().DeleteAccount(ctx, args[0]); err != nil {
		return err
	}
	fmt.Println(successStyle.Render("✓ Account removed"))
	return nil
}
