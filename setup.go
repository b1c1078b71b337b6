package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/raine/category-admin/config"
	"github.com/raine/category-admin/internal/catalog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// isInteractiveTerminal returns true if both stdin and stdout are TTYs.
// This is used to determine if we can run the interactive setup wizard.
func isInteractiveTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// runSetupWizard runs an interactive wizard to collect required configuration.
// Returns true if setup was successful and the tool should continue starting.
func runSetupWizard() bool {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	fmt.Println()
	fmt.Println(titleStyle.Render("Category Admin - First-time Setup"))
	fmt.Println()

	var baseURL, token, operatorName string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("API base URL").
				Description("Root of the marketplace REST API, e.g. https://api.example.com/api").
				Value(&baseURL).
				Validate(validateBaseURL),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API token").
				Description("Bearer token of an admin account").
				EchoMode(huh.EchoModePassword).
				Value(&token).
				Validate(func(s string) error {
					if s == "" {
						return errors.New("token is required")
					}
					return validateToken(baseURL, s)
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Your name").
				Description("Recorded with every change you make").
				Value(&operatorName),
		),
	).WithTheme(huh.ThemeBase16())

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			fmt.Println("\nSetup cancelled.")
			return false
		}
		fmt.Printf("\nError: %v\n", err)
		return false
	}

	values := map[string]string{
		"API_BASE_URL":  baseURL,
		"API_TOKEN":     token,
		"OPERATOR_NAME": operatorName,
	}
	configPath, err := config.WriteEnvFile(values, []string{"API_BASE_URL", "API_TOKEN", "OPERATOR_NAME"})
	if err != nil {
		fmt.Printf("\nError saving configuration: %v\n", err)
		return false
	}

	// Set values in current process
	for k, v := range values {
		os.Setenv(k, v)
	}

	successStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("42")).
		Bold(true)

	pathStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("245"))

	fmt.Println()
	fmt.Println(successStyle.Render("✓ Configuration saved"))
	fmt.Println(pathStyle.Render("  " + configPath))
	fmt.Println()

	return true
}

func validateBaseURL(s string) error {
	if s == "" {
		return errors.New("base URL is required")
	}
	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// validateToken checks the token by fetching the main category list.
func validateToken(baseURL, token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := catalog.NewClient(catalog.ClientOpts{BaseURL: baseURL, Token: token, Timeout: 10 * time.Second})
	if _, err := client.MainCategories(ctx); err != nil {
		if msg := catalog.UserMessage(err, ""); msg != "" {
			return errors.New(msg)
		}
		if ctx.Err() == context.DeadlineExceeded {
			return errors.New("connection timed out - check the URL")
		}
		return errors.New("request failed - check the URL and token")
	}
	return nil
}

// fatal logs an error and exits.
func fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	log.Error().Msg(msg)
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
