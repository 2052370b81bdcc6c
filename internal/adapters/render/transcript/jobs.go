package transcript

import (
	"strconv"
	"strings"

	"github.com/bnema/jobchat-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

const notSpecified = "Not specified"

func renderJob(job domain.Job, s styles) string {
	header := s.jobTitle.Render(orDefault(job.Title, "Unknown Title"))
	if job.Company != "" {
		header += s.jobCompany.Render(" · " + job.Company)
	}
	lines := []string{"▸ " + header}

	if meta := joinNonEmpty(" · ", remoteLabel(job.Remote), job.Type, job.Location, job.Industry); meta != "" {
		lines = append(lines, "  "+s.jobMeta.Render(meta))
	}

	salary := FormatSalary(job.SalaryMin, job.SalaryMax)
	deadline := ""
	if job.Deadline != "" && job.Deadline != notSpecified {
		deadline = "apply by " + job.Deadline
	}
	if meta := joinNonEmpty(" · ", salary, job.Experience, deadline); meta != "" {
		lines = append(lines, "  "+s.jobMeta.Render(meta))
	}

	if job.Fit != "" {
		lines = append(lines, "  "+s.jobFit.Render(job.Fit))
	}
	if job.URL != "" && job.URL != notSpecified {
		lines = append(lines, "  "+s.link.Render(job.URL))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// FormatSalary renders a yearly salary range. Both bounds empty yields "".
func FormatSalary(lower, upper string) string {
	if lower == "" && upper == "" {
		return ""
	}
	if lower == notSpecified || upper == notSpecified {
		return "Salary not specified"
	}

	lowerNum, lowerOK := leadingInt(lower)
	upperNum, upperOK := leadingInt(upper)
	if !lowerOK || !upperOK {
		return "Salary information unavailable"
	}

	return "$" + groupThousands(lowerNum) + "-$" + groupThousands(upperNum) + "/year"
}

func leadingInt(raw string) (int64, bool) {
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))

	end := 0
	if strings.HasPrefix(cleaned, "-") {
		end = 1
	}
	for end < len(cleaned) && cleaned[end] >= '0' && cleaned[end] <= '9' {
		end++
	}

	n, err := strconv.ParseInt(cleaned[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func groupThousands(n int64) string {
	digits := strconv.FormatInt(n, 10)
	sign := ""
	if n < 0 {
		sign, digits = "-", digits[1:]
	}

	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	return sign + b.String()
}

func remoteLabel(remote string) string {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "yes", "true":
		return "Remote"
	default:
		return ""
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part != "" && part != notSpecified {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
