package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/songstream/internal/repositories"
	"github.com/desertthunder/songstream/internal/ui"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// accountOutput is the listing view of an account. Tokens are never printed.
type accountOutput struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	Email       string    `json:"email,omitempty"`
	TokenExpiry time.Time `json:"token_expiry,omitzero"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AccountsList prints stored accounts.
func (r *Runner) AccountsList(ctx context.Context, cmd *cli.Command) error {
	config, err := r.configure(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := repositories.NewAccountRepository(db).List(map[string]any{"email": cmd.String("email")})
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	out := make([]accountOutput, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountOutput{
			ID:          a.ID(),
			ExternalID:  a.ExternalID(),
			DisplayName: a.DisplayName(),
			Email:       a.Email(),
			TokenExpiry: a.TokenExpiry(),
			UpdatedAt:   a.UpdatedAt(),
		})
	}

	if cmd.Bool("json") {
		return r.writeJSON(out, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Accounts (%s)", humanize.Comma(int64(len(out)))))
	if len(out) == 0 {
		return r.writePlain("%s\n", ui.Styles.Help("No accounts yet. Log in through /auth/login."))
	}

	now := time.Now()
	for _, a := range out {
		token := ui.Styles.Status(a.TokenExpiry.After(now), "token valid", "token expired")
		r.writePlain("%s  %s  %s  updated %s\n", a.ExternalID, a.DisplayName, token, humanize.Time(a.UpdatedAt))
	}
	return nil
}
