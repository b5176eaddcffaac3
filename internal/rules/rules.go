// Package rules implements risk classification of shell and SQL-bearing
// commands against an ordered pattern table.
package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

// Severity is a rule tier. Deny blocks the command outright; caution
// allows it but attaches advisory text.
type Severity string

const (
	SeverityDeny    Severity = "deny"
	SeverityCaution Severity = "caution"
)

// Decision values carried in Result.
const (
	DecisionAllow = "allow"
	DecisionDeny  = "deny"
)

// Rule is one (matcher, category, guidance) tuple. Rules are immutable
// after table construction; ordering within a tier is significant.
type Rule struct {
	// Pattern is the regex source, or a symbolic name for predicate rules.
	Pattern  string
	Category string
	Guidance string

	re    *regexp.Regexp
	match func(cmd string) bool
}

// Matches reports whether the rule matches the command (case-insensitive).
func (r *Rule) Matches(cmd string) bool {
	if r.match != nil {
		return r.match(cmd)
	}
	return r.re.MatchString(cmd)
}

// Result is the classification outcome for a single command.
type Result struct {
	// Decision is DecisionAllow or DecisionDeny.
	Decision string `json:"decision"`
	// Category is the matched rule's category, "" when nothing matched.
	Category string `json:"category,omitempty"`
	// Guidance is the denying rule's advisory text.
	Guidance string `json:"guidance,omitempty"`
	// Notes holds every matched caution rule's advisory, in rule order.
	Notes []string `json:"notes,omitempty"`
	// ParseError indicates the command could not be tokenized into
	// segments; classification still ran against the raw string.
	ParseError bool `json:"parse_error,omitempty"`
}

// Advisory joins the caution notes into one string for additionalContext.
func (r *Result) Advisory() string {
	return strings.Join(r.Notes, " ")
}

// Table holds the ordered deny and caution rule lists.
type Table struct {
	deny    []*Rule
	caution []*Rule
}

func regexRule(pattern, category, guidance string) *Rule {
	return &Rule{
		Pattern:  pattern,
		Category: category,
		Guidance: guidance,
		re:       regexp.MustCompile("(?i)" + pattern),
	}
}

// Default builds the built-in rule table. Deny rules are listed shell
// block first, then SQL, preserving first-match-wins across the whole
// list.
func Default() *Table {
	t := &Table{}

	t.deny = []*Rule{
		regexRule(`rm\s+-rf\s+/`, "Recursive delete from root",
			"Use a targeted path instead of /. Consider moving to trash with `mv` first."),
		regexRule(`rm\s+-rf\s+~`, "Recursive delete from home",
			"Use a specific subdirectory path instead of ~."),
		regexRule(`rm\s+-rf\s+\*`, "Recursive delete with wildcard",
			"List files first with `ls`, then delete specific targets."),
		regexRule(`sudo\s+rm`, "Sudo delete operation",
			"Avoid sudo rm. Use specific paths and confirm with `ls` first."),
		regexRule(`>\s*/dev/sd`, "Write to disk device",
			"Do not write directly to block devices."),
		regexRule(`mkfs\.`, "Filesystem format command",
			"Filesystem formatting is destructive and irreversible."),
		regexRule(`dd\s+if=.*of=/dev`, "Direct disk write",
			"dd to block devices is irreversible. Double-check the target device."),
		regexRule(`chmod\s+-R\s+777`, "Recursive world-writable permissions",
			"Use minimal permissions (e.g., 755 for dirs, 644 for files)."),
		regexRule(`:\(\)\{\s*:\|:&\s*\};:`, "Fork bomb",
			"This is a fork bomb that will crash the system."),
		regexRule(`curl.*\|\s*bash`, "Pipe curl to bash",
			"Download the script first, review it, then execute."),
		regexRule(`wget.*\|\s*bash`, "Pipe wget to bash",
			"Download the script first, review it, then execute."),
		regexRule(`DROP\s+TABLE`, "SQL DROP TABLE",
			"Back up the table before dropping. Use DROP TABLE IF EXISTS."),
		regexRule(`DROP\s+DATABASE`, "SQL DROP DATABASE",
			"Back up the database first. This is irreversible."),
		regexRule(`TRUNCATE\s+TABLE`, "SQL TRUNCATE",
			"Consider SELECT COUNT(*) first to verify scope."),
		regexRule(`DELETE\s+FROM.*WHERE\s+1\s*=\s*1`, "SQL DELETE all rows",
			"Use TRUNCATE if you intend to clear the table, or add a specific WHERE clause."),
		{
			// RE2 has no negative lookahead, so "DELETE FROM without
			// WHERE" is a predicate rule.
			Pattern:  "sql_delete_no_where",
			Category: "SQL DELETE without WHERE",
			Guidance: "Add a WHERE clause to limit the scope of deletion.",
			match:    matchDeleteWithoutWhere,
		},
	}

	t.caution = []*Rule{
		regexRule(`rm\s+-[a-z]*r[a-z]*\s+\S`, "Recursive delete",
			"Recursive delete. Verify the target path before running."),
		regexRule(`git\s+reset\s+--hard`, "Git hard reset",
			"git reset --hard discards uncommitted work. Consider `git stash` first."),
		regexRule(`git\s+push\s+.*(--force|-f)(\s|$)`, "Git force push",
			"Force push rewrites remote history. Prefer --force-with-lease."),
		regexRule(`git\s+clean\s+-[a-z]*f`, "Git clean",
			"git clean removes untracked files permanently. Run with -n first."),
		{
			Pattern:  "unpinned_package_install",
			Category: "Unpinned package install",
			Guidance: "Install without a lockfile or pinned version. Pin versions or use the lockfile.",
			match:    matchUnpinnedInstall,
		},
		regexRule(`chmod\s+-R`, "Recursive permission change",
			"Recursive chmod affects every file under the target."),
		regexRule(`chown\s+-R`, "Recursive ownership change",
			"Recursive chown affects every file under the target."),
		regexRule(`docker\s+(rm|rmi|system\s+prune|volume\s+prune)`, "Container removal",
			"Removing containers, images, or volumes is not reversible."),
	}

	return t
}

var (
	reDeleteFrom = regexp.MustCompile(`(?i)DELETE\s+FROM`)
	reWhere      = regexp.MustCompile(`(?i)\bWHERE\b`)
)

// matchUnpinnedInstall flags package installs that name packages without
// a version pin or a lockfile/requirements flag. Bare `npm install` and
// `npm ci` resolve from the lockfile and stay quiet.
func matchUnpinnedInstall(cmd string) bool {
	fields := strings.Fields(strings.ToLower(cmd))
	for i := 0; i+1 < len(fields); i++ {
		var isInstall bool
		switch fields[i] {
		case "npm", "pnpm":
			isInstall = fields[i+1] == "install" || fields[i+1] == "i" || fields[i+1] == "add"
		case "yarn":
			isInstall = fields[i+1] == "add"
		case "pip", "pip3":
			isInstall = fields[i+1] == "install"
		}
		if !isInstall {
			continue
		}

		unpinned := false
		pinFlag := false
		for _, arg := range fields[i+2:] {
			if separators[arg] {
				break
			}
			if strings.HasPrefix(arg, "-") {
				switch arg {
				case "--save-exact", "-e", "--frozen-lockfile", "-r", "--requirement", "--lockfile-only":
					pinFlag = true
				}
				continue
			}
			// left-pad@1.3.0 and requests==2.32.0 are pinned; a leading
			// @ is a scope, not a version.
			if strings.Contains(arg, "==") || strings.Index(arg, "@") > 0 {
				continue
			}
			unpinned = true
		}
		if unpinned && !pinFlag {
			return true
		}
	}
	return false
}

func matchDeleteWithoutWhere(cmd string) bool {
	loc := reDeleteFrom.FindStringIndex(cmd)
	if loc == nil {
		return false
	}
	return !reWhere.MatchString(cmd[loc[1]:])
}

// Classify applies the rule table to a single command line.
//
// Deny rules are evaluated in declared order and short-circuit on the
// first match: blocking is a binary outcome and the first applicable
// reason is sufficient. Caution rules never short-circuit: the command is
// going to run, so the operator gets the full risk picture in one pass.
func (t *Table) Classify(cmd string) *Result {
	result := &Result{Decision: DecisionAllow}

	trimmed := strings.TrimSpace(cmd)
	if trimmed == "" {
		return result
	}

	segments, parseErr := Split(trimmed)
	result.ParseError = parseErr

	for _, r := range t.deny {
		if r.Matches(trimmed) {
			result.Decision = DecisionDeny
			result.Category = r.Category
			result.Guidance = r.Guidance
			return result
		}
	}

	for _, r := range t.caution {
		if r.Matches(trimmed) || matchesAny(r, segments) {
			result.Notes = append(result.Notes, fmt.Sprintf("%s: %s", r.Category, r.Guidance))
			if result.Category == "" {
				result.Category = r.Category
			}
		}
	}

	return result
}

func matchesAny(r *Rule, segments []string) bool {
	for _, seg := range segments {
		if r.Matches(seg) {
			return true
		}
	}
	return false
}

// AddRule appends a configured rule to the given tier. Invalid regexes
// are rejected rather than skipped so config typos surface at startup.
func (t *Table) AddRule(sev Severity, pattern, category, guidance string) error {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return fmt.Errorf("compiling rule %q: %w", pattern, err)
	}
	r := &Rule{Pattern: pattern, Category: category, Guidance: guidance, re: re}
	switch sev {
	case SeverityDeny:
		t.deny = append(t.deny, r)
	case SeverityCaution:
		t.caution = append(t.caution, r)
	default:
		return fmt.Errorf("unknown severity %q", sev)
	}
	return nil
}

// Rules returns the ordered rule list for a tier.
func (t *Table) Rules(sev Severity) []*Rule {
	if sev == SeverityDeny {
		return t.deny
	}
	return t.caution
}

// Hash returns a deterministic digest of the table for change detection.
func (t *Table) Hash() string {
	h := sha256.New()
	for _, tier := range []struct {
		name  string
		rules []*Rule
	}{
		{"deny", t.deny},
		{"caution", t.caution},
	} {
		for _, r := range tier.rules {
			fmt.Fprintf(h, "%s:%s:%s\x00", tier.name, r.Pattern, r.Category)
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Export is the structured rule dump for external tools.
type Export struct {
	SHA256 string                  `json:"sha256"`
	Tiers  map[string][]RuleDetail `json:"tiers"`
	Count  int                     `json:"rule_count"`
}

// RuleDetail is one exported rule.
type RuleDetail struct {
	Pattern  string `json:"pattern"`
	Category string `json:"category"`
	Guidance string `json:"guidance,omitempty"`
}

// ExportRules dumps all rules grouped by tier, in declaration order.
func (t *Table) ExportRules() *Export {
	exp := &Export{
		SHA256: t.Hash(),
		Tiers:  make(map[string][]RuleDetail, 2),
	}
	for sev, list := range map[string][]*Rule{
		string(SeverityDeny):    t.deny,
		string(SeverityCaution): t.caution,
	} {
		details := make([]RuleDetail, 0, len(list))
		for _, r := range list {
			details = append(details, RuleDetail{Pattern: r.Pattern, Category: r.Category, Guidance: r.Guidance})
		}
		exp.Tiers[sev] = details
		exp.Count += len(details)
	}
	return exp
}
