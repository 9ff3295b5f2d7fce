// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/scribe-tui/internal/account"
)

// =============================================================================
// LOGIN / LOGOUT
// =============================================================================

func newLoginCommand(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()

			p := NewPrompter(app.In, app.Err)
			if email == "" {
				if email, err = p.Line("Email: "); err != nil {
					return err
				}
			}
			password, err := p.Password("Password: ")
			if err != nil {
				return err
			}

			state, err := app.Accounts.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(app.Out, map[string]interface{}{"email": state.Email, "offline": state.Offline})
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("Logged in as "+state.DisplayName()))
			if state.Offline {
				fmt.Fprintln(app.Out, WarningStyle.Render("The server is unreachable; signed in offline with cached chats only."))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func newLogoutCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.Accounts.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("Logged out."))
			return nil
		},
	}
}

// =============================================================================
// REGISTER / RESET
// =============================================================================

// codeForm collects the fields shared by registration and reset.
type codeForm struct {
	email, code, password, confirm string
}

// askCodeForm sends a verification code to email and asks for it along
// with a new password.
func askCodeForm(cmd *cobra.Command, app *App, email string, purpose account.Purpose) (codeForm, error) {
	p := NewPrompter(app.In, app.Err)
	var err error
	if email == "" {
		if email, err = p.Line("Gmail address: "); err != nil {
			return codeForm{}, err
		}
	}
	if err := app.Accounts.SendCode(cmd.Context(), email, purpose); err != nil {
		return codeForm{}, err
	}
	fmt.Fprintln(app.Err, DimStyle.Render("A verification code was sent to "+email+"."))

	form := codeForm{email: email}
	if form.code, err = p.Line("Verification code: "); err != nil {
		return codeForm{}, err
	}
	if form.password, err = p.Password("New password: "); err != nil {
		return codeForm{}, err
	}
	if form.confirm, err = p.Password("Confirm password: "); err != nil {
		return codeForm{}, err
	}
	return form, nil
}

func newRegisterCommand(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()

			form, err := askCodeForm(cmd, app, email, account.PurposeRegister)
			if err != nil {
				return err
			}
			state, err := app.Accounts.Register(cmd.Context(), account.RegisterForm{
				Email:    form.email,
				Code:     form.code,
				Password: form.password,
				Confirm:  form.confirm,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("Registered and logged in as "+state.DisplayName()))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Gmail address")
	return cmd
}

func newResetPasswordCommand(opts *rootOptions) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset the password of a locally registered account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()

			form, err := askCodeForm(cmd, app, email, account.PurposeReset)
			if err != nil {
				return err
			}
			if err := app.Accounts.ResetPassword(cmd.Context(), account.ResetForm{
				Email:    form.email,
				Code:     form.code,
				Password: form.password,
				Confirm:  form.confirm,
			}); err != nil {
				return err
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("Password updated. You can log in now."))
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Gmail address")
	return cmd
}

// =============================================================================
// PROFILE
// =============================================================================

func newProfileCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update the account profile",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Show the profile and credits",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireLogin(); err != nil {
				return err
			}

			profile, err := app.Accounts.Profile(cmd.Context())
			if err != nil {
				return err
			}
			info, err := app.Client.Me(cmd.Context())
			if err != nil {
				return err
			}
			if app.JSON {
				return writeJSON(app.Out, map[string]interface{}{
					"email":   profile.Email,
					"plan":    info.Plan,
					"credits": info.CreditsLabel(),
				})
			}
			fmt.Fprintln(app.Out, RenderLabel("Email")+profile.Email)
			fmt.Fprintln(app.Out, RenderLabel("Plan")+info.Plan)
			fmt.Fprintln(app.Out, RenderLabel("Credits")+info.CreditsLabel())
			return nil
		},
	}

	var email string
	var changePassword bool
	update := &cobra.Command{
		Use:   "update",
		Short: "Change the email or password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := opts.open(false)
			if err != nil {
				return err
			}
			defer app.Close()
			if err := app.RequireLogin(); err != nil {
				return err
			}

			if email == "" {
				email = app.Session.State().Email
			}
			var password string
			if changePassword {
				p := NewPrompter(app.In, app.Err)
				if password, err = p.Password("New password: "); err != nil {
					return err
				}
				confirm, err := p.Password("Confirm password: ")
				if err != nil {
					return err
				}
				if err := account.ValidateNewPassword(password, confirm); err != nil {
					return err
				}
			}

			profile, err := app.Accounts.UpdateProfile(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, SuccessStyle.Render("Profile updated for "+profile.Email))
			return nil
		},
	}
	update.Flags().StringVar(&email, "email", "", "new email")
	update.Flags().BoolVar(&changePassword, "password", false, "prompt for a new password")

	cmd.AddCommand(show, update)
	cmd.RunE = show.RunE
	return cmd
}
