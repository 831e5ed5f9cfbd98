package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Brand colors
var (
	onionViolet   = lipgloss.Color("#7D4698")
	successGreen  = lipgloss.Color("#00C853")
	warningYellow = lipgloss.Color("#FFC107")
	infoBlue      = lipgloss.Color("#2196F3")
	mutedGray     = lipgloss.Color("#9E9E9E")
)

// Style definitions
var (
	// Title style - bold with violet accent
	titleStyle = lipgloss.NewStyle().
			Foreground(onionViolet).
			Bold(true)

	sectionStyle = lipgloss.NewStyle().
			Foreground(onionViolet).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successGreen).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningYellow).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedGray)

	urlStyle = lipgloss.NewStyle().
			Foreground(infoBlue)

	scoreStyle = lipgloss.NewStyle().
			Foreground(mutedGray).
			Italic(true)
)

// printLogo prints the styled siterank logo with version
func printLogo(ver string) {
	gradient := lipgloss.NewStyle().Foreground(onionViolet).Render("█▓▒░")
	title := lipgloss.NewStyle().Foreground(onionViolet).Bold(true).Render("siterank")
	versionText := lipgloss.NewStyle().Foreground(mutedGray).Render(ver)

	fmt.Printf("%s %s %s\n", gradient, title, versionText)
	fmt.Println(mutedStyle.Render("Site-level search for Tor and I2P"))
	fmt.Println()
}

// printSection prints a styled section header
func printSection(text string) {
	fmt.Println(sectionStyle.Render(text))
}

// printSuccess prints a success message
func printSuccess(text string) {
	fmt.Println(successStyle.Render("✓ " + text))
}

// printWarning prints a warning message
func printWarning(text string) {
	fmt.Println(warningStyle.Render("⚠️  " + text))
}

// printMuted prints muted text
func printMuted(text string) {
	fmt.Println(mutedStyle.Render(text))
}
