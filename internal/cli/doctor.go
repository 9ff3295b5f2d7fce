// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// doctor.go - Doctor command implementation for scribe.
//
// Command: doctor
// Short:   Run health checks and diagnostics
// Aliases: diag
//
// Health Checks Performed:
//   1. Config Valid       - Loads and validates the configuration
//   2. Data Writable      - Checks the data directory permissions
//   3. Chat Cache         - Opens the local database
//   4. Backend Reachable  - Contacts the backend
//   5. Session            - Checks the login against the backend
//   6. Email Delivery     - Checks verification code delivery
//
// Exit Codes:
//   0   No check failed
//   1   One or more checks failed
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jeranaias/scribe-tui/internal/account"
	"github.com/jeranaias/scribe-tui/internal/api"
	"github.com/jeranaias/scribe-tui/internal/ui/styles"
)

// backendCheckTimeout bounds the network checks.
const backendCheckTimeout = 5 * time.Second

// =============================================================================
// HEALTH CHECK TYPES
// =============================================================================

var (
	checkPassStyle = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)
	checkWarnStyle = lipgloss.NewStyle().Foreground(styles.Amber).Bold(true)
	checkFailStyle = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)
	fixStyle       = lipgloss.NewStyle().Foreground(styles.TextMuted).Italic(true).PaddingLeft(2)
)

// CheckStatus represents the status of a health check.
type CheckStatus int

const (
	// CheckPass indicates the check passed.
	CheckPass CheckStatus = iota
	// CheckWarn indicates a non-critical issue.
	CheckWarn
	// CheckFail indicates a critical issue.
	CheckFail
)

// String returns the status name.
func (s CheckStatus) String() string {
	switch s {
	case CheckPass:
		return "pass"
	case CheckWarn:
		return "warn"
	case CheckFail:
		return "fail"
	default:
		return "unknown"
	}
}

// Symbol returns the rendered status marker.
func (s CheckStatus) Symbol() string {
	switch s {
	case CheckPass:
		return checkPassStyle.Render(styles.StatusIndicators.Success)
	case CheckWarn:
		return checkWarnStyle.Render(styles.StatusIndicators.Warning)
	default:
		return checkFailStyle.Render(styles.StatusIndicators.Error)
	}
}

// HealthCheck is a single check result.
type HealthCheck struct {
	Name    string      `json:"name"`
	Status  CheckStatus `json:"-"`
	Message string      `json:"message"`
	Fix     string      `json:"fix,omitempty"`
}

// Render formats the check for the terminal.
func (c *HealthCheck) Render() string {
	line := fmt.Sprintf("%s %s", c.Status.Symbol(), c.Message)
	if c.Status != CheckPass && c.Fix != "" {
		line += "\n" + fixStyle.Render("-> "+c.Fix)
	}
	return line
}

// =============================================================================
// COMMAND
// =============================================================================

func newDoctorCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"diag"},
		Short:   "Run health checks and diagnostics",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			checks := runDoctor(cmd.Context(), opts)
			if opts.json {
				return writeDoctorJSON(opts.out, checks)
			}
			return printDoctor(opts.out, checks)
		},
	}
}

// runDoctor runs every check. A config failure stops the remaining ones.
func runDoctor(ctx context.Context, opts *rootOptions) []HealthCheck {
	cfg, err := opts.loadConfig()
	if err != nil {
		return []HealthCheck{{
			Name:    "config",
			Status:  CheckFail,
			Message: "Config invalid: " + errors.Cause(err).Error(),
			Fix:     "Run: scribe config reset",
		}}
	}
	checks := []HealthCheck{{Name: "config", Status: CheckPass, Message: "Config valid"}}

	dataCheck := checkDataDir(cfg.DataDir)
	checks = append(checks, dataCheck)
	if dataCheck.Status == CheckFail {
		return checks
	}

	app, err := NewApp(cfg, appOptions{QuietLogs: true, WithCaller: opts.withCaller})
	if err != nil {
		return append(checks, HealthCheck{
			Name:    "cache",
			Status:  CheckFail,
			Message: "Chat cache unavailable: " + err.Error(),
			Fix:     "Remove " + DatabaseFile + " from the data directory",
		})
	}
	defer app.Close()

	checks = append(checks, checkCache(app))
	backend := checkBackend(ctx, app)
	checks = append(checks, backend)
	checks = append(checks, checkSession(ctx, app, backend.Status == CheckPass))
	checks = append(checks, checkEmail(app))
	return checks
}

func checkDataDir(dataDir func() (string, error)) HealthCheck {
	check := HealthCheck{Name: "data_dir"}
	dir, err := dataDir()
	if err == nil {
		err = os.MkdirAll(dir, 0o700)
	}
	if err == nil {
		probe := filepath.Join(dir, ".doctor")
		if err = os.WriteFile(probe, []byte("ok"), 0o600); err == nil {
			_ = os.Remove(probe)
		}
	}
	if err != nil {
		check.Status = CheckFail
		check.Message = "Data directory not writable: " + err.Error()
		check.Fix = "Run: scribe config set storage.data_dir <path>"
		return check
	}
	check.Status = CheckPass
	check.Message = "Data directory writable (" + dir + ")"
	return check
}

func checkCache(app *App) HealthCheck {
	convs, err := app.DB.Conversations().List()
	if err != nil {
		return HealthCheck{Name: "cache", Status: CheckWarn, Message: "Chat cache unreadable: " + err.Error()}
	}
	return HealthCheck{Name: "cache", Status: CheckPass, Message: fmt.Sprintf("Chat cache ok (%d cached)", len(convs))}
}

func checkBackend(ctx context.Context, app *App) HealthCheck {
	ctx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()

	check := HealthCheck{Name: "backend"}
	start := time.Now()
	if _, err := app.Client.Plans(ctx); err != nil {
		check.Status = CheckFail
		check.Message = fmt.Sprintf("Backend unreachable at %s: %s", app.Client.BaseURL(), api.Message(err))
		check.Fix = "Run: scribe config set backend.url <url>"
		return check
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("Backend reachable at %s (%s)", app.Client.BaseURL(), time.Since(start).Round(time.Millisecond))
	return check
}

func checkSession(ctx context.Context, app *App, online bool) HealthCheck {
	check := HealthCheck{Name: "session"}
	state := app.Session.State()
	switch {
	case !state.IsAuthenticated():
		check.Status = CheckWarn
		check.Message = "Not logged in"
		check.Fix = "Run: scribe login"
		return check
	case state.Offline:
		check.Status = CheckWarn
		check.Message = "Logged in offline as " + state.Email
		check.Fix = "Run: scribe login once the backend is reachable"
		return check
	case !online:
		check.Status = CheckWarn
		check.Message = "Logged in as " + state.Email + " (not verified)"
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, backendCheckTimeout)
	defer cancel()
	me, err := app.Client.Me(ctx)
	if err != nil {
		check.Status = CheckFail
		check.Message = "Session rejected: " + api.Message(err)
		check.Fix = "Run: scribe login"
		return check
	}
	check.Status = CheckPass
	check.Message = fmt.Sprintf("Logged in as %s (%s, %s credits)", me.Email, me.Plan, me.CreditsLabel())
	return check
}

func checkEmail(app *App) HealthCheck {
	v := app.Config.Verification
	sender := &account.EmailJSSender{ServiceID: v.ServiceID, TemplateID: v.TemplateID, PublicKey: v.PublicKey}
	if sender.Configured() {
		return HealthCheck{Name: "email", Status: CheckPass, Message: "Verification email configured"}
	}
	return HealthCheck{
		Name:    "email",
		Status:  CheckWarn,
		Message: "Verification codes are printed to the terminal",
		Fix:     "Set verification.service_id, template_id and public_key",
	}
}

// =============================================================================
// OUTPUT
// =============================================================================

func countChecks(checks []HealthCheck) (passed, warned, failed int) {
	for _, c := range checks {
		switch c.Status {
		case CheckPass:
			passed++
		case CheckWarn:
			warned++
		default:
			failed++
		}
	}
	return passed, warned, failed
}

func printDoctor(w io.Writer, checks []HealthCheck) error {
	fmt.Fprintln(w, TitleStyle.Render("scribe doctor"))
	fmt.Fprintln(w, RenderSeparator(41))
	for i := range checks {
		fmt.Fprintln(w, checks[i].Render())
	}
	fmt.Fprintln(w, RenderSeparator(41))

	passed, warned, failed := countChecks(checks)
	parts := []string{fmt.Sprintf("%d passed", passed)}
	if warned > 0 {
		parts = append(parts, checkWarnStyle.Render(fmt.Sprintf("%d warning", warned)))
	}
	if failed > 0 {
		parts = append(parts, checkFailStyle.Render(fmt.Sprintf("%d failed", failed)))
	}
	fmt.Fprintln(w, DimStyle.Render(strings.Join(parts, ", ")))

	if failed > 0 {
		return errors.Errorf("%d health check(s) failed", failed)
	}
	return nil
}

type doctorReport struct {
	Checks []doctorCheck `json:"checks"`
	Passed int           `json:"passed"`
	Warned int           `json:"warned"`
	Failed int           `json:"failed"`
}

type doctorCheck struct {
	HealthCheck
	Status string `json:"status"`
}

func writeDoctorJSON(w io.Writer, checks []HealthCheck) error {
	report := doctorReport{Checks: make([]doctorCheck, 0, len(checks))}
	for _, c := range checks {
		report.Checks = append(report.Checks, doctorCheck{HealthCheck: c, Status: c.Status.String()})
	}
	report.Passed, report.Warned, report.Failed = countChecks(checks)
	if err := writeJSON(w, report); err != nil {
		return err
	}
	if report.Failed > 0 {
		return errors.Errorf("%d health check(s) failed", report.Failed)
	}
	return nil
}
