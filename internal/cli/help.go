package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Catppuccin Mocha color palette
var (
	colorMauve   = lipgloss.Color("#cba6f7") // Title
	colorBlue    = lipgloss.Color("#89b4fa") // Section headers
	colorGreen   = lipgloss.Color("#a6e3a1") // Commands
	colorYellow  = lipgloss.Color("#f9e2af") // Flags
	colorRed     = lipgloss.Color("#f38ba8") // deny tier
	colorPeach   = lipgloss.Color("#fab387") // caution tier
	colorOverlay = lipgloss.Color("#6c7086") // Muted text
	colorBase    = lipgloss.Color("#1e1e2e") // Background
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorMauve).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			MarginTop(1)

	commandStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	flagStyle = lipgloss.NewStyle().
			Foreground(colorYellow)

	denyStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorRed)

	cautionStyle = lipgloss.NewStyle().
			Foreground(colorPeach)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorOverlay)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Background(colorBase).
			Padding(1, 2).
			MarginTop(1).
			MarginBottom(1)
)

func showQuickReference() {
	width := clampWidth(detectWidth())
	useUnicode := supportsUnicode()

	border := lipgloss.RoundedBorder()
	if !useUnicode {
		border = lipgloss.Border{
			Top:         "-",
			Bottom:      "-",
			Left:        "|",
			Right:       "|",
			TopLeft:     "+",
			TopRight:    "+",
			BottomLeft:  "+",
			BottomRight: "+",
		}
	}

	container := boxStyle.Copy().Border(border).Width(width)

	titleText := " HOOKGUARD QUICK REFERENCE - Claude Code Safety Hooks "
	titleRendered := gradientText(titleText, []lipgloss.Color{colorMauve, colorBlue})
	if !useUnicode {
		titleRendered = "HOOKGUARD QUICK REFERENCE - Claude Code Safety Hooks"
	}
	title := titleStyle.Copy().Width(width - 4).Align(lipgloss.Center).Render(titleRendered)

	setup := renderSection(useUnicode, "🔷 SETUP (once per machine)", []string{
		bullet("hookguard install", "wire all hook events into ~/.claude/settings.json"),
		bullet("hookguard status", "see which events are wired"),
		bullet("hookguard config set context.stop_threshold 0.8", "tune the context warning"),
	})

	hooks := renderSection(useUnicode, "🔶 HOOKS (run by the agent runtime)", []string{
		bullet("hookguard handle", "evaluate one event from stdin (installed automatically)"),
		bullet("hookguard check \"rm -rf /\"", "dry-run the classifier; exits 1 on deny"),
	})

	inspect := renderSection(useUnicode, "🔷 INSPECT (decision history)", []string{
		bullet("hookguard history list --limit 20 -j", "recent decisions, newest first"),
		bullet("hookguard history stats", "counts by outcome"),
		bullet("hookguard watch -j", "stream new decisions as NDJSON"),
		bullet("hookguard tui", "browse interactively"),
	})

	rulesRef := renderSection(useUnicode, "🛡️ RULES (deny blocks, caution advises)", []string{
		bullet("hookguard rules list", "all rules by tier"),
		bullet("hookguard rules export", "rule table with content hash"),
		bullet("hookguard config set rules.extra_deny 'terraform\\s+destroy'", "add a project deny rule"),
	})

	tiers := tierLegend(useUnicode)
	flags := flagLegend(useUnicode)
	footer := footerLegend(useUnicode)

	content := lipgloss.JoinVertical(lipgloss.Left,
		title,
		setup,
		hooks,
		inspect,
		rulesRef,
		tiers,
		flags,
		footer,
	)

	fmt.Println(container.Render(content))
}

func clampWidth(w int) int {
	if w < 72 {
		return 72
	}
	if w > 100 {
		return 100
	}
	return w
}

func detectWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	// fall back to environment or default
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if v, err := strconv.Atoi(cols); err == nil && v > 0 {
			return v
		}
	}
	return 80
}

func supportsUnicode() bool {
	termEnv := strings.ToLower(os.Getenv("TERM"))
	locale := strings.ToLower(strings.Join([]string{
		os.Getenv("LC_ALL"),
		os.Getenv("LC_CTYPE"),
		os.Getenv("LANG"),
	}, " "))
	if strings.Contains(termEnv, "dumb") {
		return false
	}
	return strings.Contains(locale, "utf-8") || strings.Contains(locale, "utf8")
}

func gradientText(text string, colors []lipgloss.Color) string {
	if len(colors) == 0 || !supportsUnicode() {
		return text
	}
	runes := []rune(text)
	segments := len(colors)
	if segments == 1 || len(runes) <= 1 {
		return lipgloss.NewStyle().Foreground(colors[0]).Render(text)
	}

	var b strings.Builder
	for i, r := range runes {
		idx := i * (segments - 1) / (len(runes) - 1)
		b.WriteString(lipgloss.NewStyle().Foreground(colors[idx]).Render(string(r)))
	}
	return b.String()
}

func bullet(command, desc string) string {
	return commandStyle.Render("  "+command) + mutedStyle.Render("  "+desc)
}

func renderSection(useUnicode bool, title string, lines []string) string {
	if !useUnicode {
		title = strings.TrimLeft(title, "🔷🔶🛡️ ") // strip icons for ASCII fallback
	}
	header := sectionStyle.Render(title)
	body := strings.Join(lines, "\n")
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func tierLegend(useUnicode bool) string {
	deny := "DENY (blocked)"
	caut := "CAUTION (allowed with advisory)"
	if useUnicode {
		deny = "🔴 " + deny
		caut = "🟡 " + caut
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render("🎯 RULE TIERS"),
		fmt.Sprintf("  %s   %s", denyStyle.Render(deny), cautionStyle.Render(caut)),
	)
}

func flagLegend(useUnicode bool) string {
	prefix := "🚩 GLOBAL FLAGS"
	if !useUnicode {
		prefix = "FLAGS"
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		sectionStyle.Render(prefix),
		flagStyle.Render("  -j, --json")+mutedStyle.Render("            structured output"),
		flagStyle.Render("  -o, --output <fmt>")+mutedStyle.Render("    text, json, yaml"),
		flagStyle.Render("  -C, --project <dir>")+mutedStyle.Render("   override project path"),
		flagStyle.Render("  -c, --config <path>")+mutedStyle.Render("   override config file"),
	)
}

func footerLegend(useUnicode bool) string {
	human := "hookguard tui"
	help := "hookguard <command> --help"
	if !useUnicode {
		return mutedStyle.Render("HUMAN: " + human + "   HELP: " + help)
	}
	return lipgloss.JoinHorizontal(lipgloss.Left,
		mutedStyle.Render("HUMAN: "), commandStyle.Render(human),
		mutedStyle.Render("   HELP: "), commandStyle.Render(help),
	)
}
