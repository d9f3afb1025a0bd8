package cmd

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fiscalfacil/audit-service/internal/auth"
	"github.com/fiscalfacil/audit-service/internal/config"
)

var tokenUserID string

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for a user",
	Long: `Sign an access token with the configured JWT secret. Useful for
trying the API from curl or for seeding test environments.

Examples:
  fiscalaudit token
  fiscalaudit token --user-id 6e45a9f2-0b8f-4d4f-9f52-1c2a9a3a77b1`,
	RunE: runToken,
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().StringVar(&tokenUserID, "user-id", "", "User ID to embed (default: random)")
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	userID := uuid.New()
	if tokenUserID != "" {
		userID, err = uuid.Parse(tokenUserID)
		if err != nil {
			return fmt.Errorf("invalid user id: %w", err)
		}
	}

	token, err := auth.NewService(cfg.JWT).GenerateToken(userID)
	if err != nil {
		return err
	}

	fmt.Printf("user_id: %s\n", userID)
	fmt.Printf("token:   %s\n", token)
	return nil
}
