package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSummaryChars keeps summaries short enough for a terminal line or an
// MCP tool result.
const maxSummaryChars = 400

// Summary returns a compact one-line description of p.
func Summary(p Profile) string {
	var parts []string

	if p.Name != "" {
		headline := p.Name
		switch {
		case p.CurrentRole != "" && p.CurrentCompany != "":
			headline += fmt.Sprintf(", %s in %s", p.CurrentRole, p.CurrentCompany)
		case p.CurrentRole != "":
			headline += ", " + p.CurrentRole
		}
		if p.Location != "" {
			headline += fmt.Sprintf(" (%s)", p.Location)
		}
		parts = append(parts, headline+".")
	}

	if len(p.Skills) > 0 {
		parts = append(parts, fmt.Sprintf("Skills: %s.", strings.Join(p.Skills, ", ")))
	}
	if len(p.Collaborations) > 0 {
		parts = append(parts, fmt.Sprintf("Worked with: %s.", strings.Join(p.Collaborations, ", ")))
	}
	if len(p.Products) > 0 {
		names := make([]string, len(p.Products))
		for i, pr := range p.Products {
			names[i] = pr.Name
		}
		parts = append(parts, fmt.Sprintf("Offers: %s.", strings.Join(names, ", ")))
	}
	if n := len(p.Testimonials); n > 0 {
		parts = append(parts, fmt.Sprintf("%d testimonial(s).", n))
	}

	if len(parts) == 0 {
		return "Profile: not yet configured."
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}
