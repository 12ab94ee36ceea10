package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"talentscan/cv-screener/internal/services"
)

func newDriveAuthCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drive-auth",
		Short: "Authorize Google Drive access and cache the token for folder imports",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDriveAuth(cmd, v)
		},
	}

	cmd.Flags().String("credentials", "", "OAuth client credentials file (default credentials.json)")
	cmd.Flags().String("token", "", "where to write the token (default token.json)")
	mustBind(v.BindPFlag("drive.credentials", cmd.Flags().Lookup("credentials")))
	mustBind(v.BindPFlag("drive.token", cmd.Flags().Lookup("token")))

	return cmd
}

func runDriveAuth(cmd *cobra.Command, v *viper.Viper) error {
	oauthCfg, err := services.DriveOAuthConfig(v.GetString("drive.credentials"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Open the following link in your browser, then paste the authorization code:\n%s\n", services.DriveAuthURL(oauthCfg))

	prompt := promptui.Prompt{
		Label:    "Authorization code",
		Validate: validateAuthCode,
	}
	code, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}

	tokenFile := v.GetString("drive.token")
	if err := services.ExchangeDriveCode(cmd.Context(), oauthCfg, code, tokenFile); err != nil {
		return err
	}

	fmt.Fprintf(out, "Token saved to %s\n", tokenFile)
	return nil
}

func validateAuthCode(input string) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("authorization code must not be empty")
	}
	return nil
}
