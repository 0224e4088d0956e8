package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"postboard/internal/service"
)

var (
	// user create flags
	newUsername string
	newEmail    string
	newPassword string
	newFullName string
	newDisabled bool
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Create a user account directly in the configured database.

Examples:
  postboard user create --username alice --email alice@example.com --password s3cret
  postboard user create --username bot --email bot@example.com --password x --disabled`,
	RunE: runUserCreate,
}

func init() {
	userCreateCmd.Flags().StringVar(&newUsername, "username", "", "Login name (required)")
	userCreateCmd.Flags().StringVar(&newEmail, "email", "", "Email address (required)")
	userCreateCmd.Flags().StringVar(&newPassword, "password", "", "Password (required)")
	userCreateCmd.Flags().StringVar(&newFullName, "full-name", "", "Display name")
	userCreateCmd.Flags().BoolVar(&newDisabled, "disabled", false, "Create the account disabled")
	for _, name := range []string{"username", "email", "password"} {
		_ = userCreateCmd.MarkFlagRequired(name)
	}
	userCmd.AddCommand(userCreateCmd)
}

func runUserCreate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	stores, err := openStores(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer stores.Close()

	input := service.RegisterInput{
		Username: newUsername,
		Email:    newEmail,
		Disabled: newDisabled,
		Password: newPassword,
	}
	if newFullName != "" {
		input.FullName = &newFullName
	}

	user, err := newUserService(cfg, stores).Register(cmd.Context(), input)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Username, user.ID)
	return nil
}
