package app

import (
	"fmt"
	"strings"

	"quorum/internal/logger"
)

type StartupSummary struct {
	Symbol        string
	Interval      string
	Sources       []SourceSummary
	Exchange      string
	Store         string
	HTTPAddr      string
	Recovered     int
	Notifications []string
}

type SourceSummary struct {
	Name   string
	Kind   string
	Weight float64
}

func (s *StartupSummary) Print() {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("STARTUP SUMMARY\n")
	b.WriteString(strings.Repeat("=", 60) + "\n")
	fmt.Fprintf(&b, "  symbol:      %s every %s\n", s.Symbol, s.Interval)
	fmt.Fprintf(&b, "  exchange:    %s\n", s.Exchange)
	fmt.Fprintf(&b, "  store:       %s (recovered %d open positions)\n", s.Store, s.Recovered)
	fmt.Fprintf(&b, "  http:        %s\n", formatList([]string{s.HTTPAddr}))
	fmt.Fprintf(&b, "  notify:      %s\n", formatList(s.Notifications))
	b.WriteString("  sources:\n")
	for _, src := range s.Sources {
		fmt.Fprintf(&b, "    - %-12s %-10s weight=%.2f\n", src.Name, src.Kind, src.Weight)
	}
	b.WriteString(strings.Repeat("=", 60))
	logger.InfoBlock(b.String())
}

func formatList(items []string) string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ", ")
}
