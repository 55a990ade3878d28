package reporter

import (
	"fmt"
	"os"
	"strings"
	"time"

	"data-pipeline-tool/internal/stage"
	"data-pipeline-tool/internal/verify"
)

// Elapsed times are rounded for display; nobody reads nanoseconds.
const timeUnit = 10 * time.Millisecond

type ConsoleReporter struct {
	verbose bool
}

func NewConsoleReporter(verbose bool) *ConsoleReporter {
	return &ConsoleReporter{
		verbose: verbose,
	}
}

func (r *ConsoleReporter) StageStart(name string) {
	fmt.Printf("\n🔍 %s\n", name)
	fmt.Println(strings.Repeat("-", 40))
}

func (r *ConsoleReporter) StageDone(result stage.Result) {
	switch result.Status {
	case stage.StatusPassed:
		fmt.Printf("✅ %s (%s)\n", result.Name, result.Elapsed.Round(timeUnit))
	case stage.StatusWarning:
		fmt.Printf("⚠️  %s: %v\n", result.Name, result.Err)
	case stage.StatusFailed:
		fmt.Printf("❌ %s: %v\n", result.Name, result.Err)
	case stage.StatusSkipped:
		fmt.Printf("⏭️  %s (skipped)\n", result.Name)
	}
}

func (r *ConsoleReporter) Infof(format string, args ...any) {
	fmt.Printf("   "+format+"\n", args...)
}

func (r *ConsoleReporter) Successf(format string, args ...any) {
	fmt.Printf("   ✅ "+format+"\n", args...)
}

func (r *ConsoleReporter) Warnf(format string, args ...any) {
	fmt.Printf("   ⚠️  "+format+"\n", args...)
}

func (r *ConsoleReporter) Failf(format string, args ...any) {
	fmt.Printf("   ❌ "+format+"\n", args...)
}

func (r *ConsoleReporter) Summary(summary *Summary) error {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Printf("📊 %s\n", summary.Title)
	fmt.Println(strings.Repeat("=", 60))

	if summary.Run != nil {
		for _, res := range summary.Run.Stages {
			fmt.Printf("%-30s %s\n", res.Name, r.statusIcon(res.Status))
		}
	}

	if summary.Verification != nil {
		r.printVerification(summary.Verification)
	}

	if len(summary.Queries) > 0 {
		r.printQueries(summary)
	}

	fmt.Println(strings.Repeat("=", 60))
	if summary.Succeeded() {
		fmt.Println("🎉 All checks passed.")
	} else {
		fmt.Println("❌ Some checks failed. Review the lines above.")
	}
	fmt.Println(strings.Repeat("=", 60))

	return nil
}

func (r *ConsoleReporter) printVerification(report *verify.Report) {
	switch report.Mode {
	case verify.Absent:
		fmt.Println("\nTeardown verification:")
	default:
		fmt.Println("\nProvisioning verification:")
	}

	for _, cat := range report.Categories {
		if cat.Passed {
			fmt.Printf("   ✅ %-15s %s\n", cat.Category+":", cat.Detail)
			continue
		}
		fmt.Printf("   ❌ %-15s %s\n", cat.Category+":", cat.Detail)
		for _, id := range cat.Offending {
			fmt.Printf("      - %s\n", id)
		}
	}
}

func (r *ConsoleReporter) printQueries(summary *Summary) {
	fmt.Println("\nQuery execution mapping:")
	for _, exec := range summary.Queries {
		fmt.Printf("   %s: %s (%s)\n", exec.Intent.Description, exec.ID, exec.State)
	}

	if len(summary.ResultFiles) > 0 {
		fmt.Println("\nQuery result files:")
		for _, file := range summary.ResultFiles {
			fmt.Printf("   📊 %s:\n", file.Description)
			fmt.Printf("      ├─ CSV: %s (%d bytes)\n", file.Key, file.Size)
			fmt.Printf("      └─ Metadata: %s\n", file.MetadataKey)
		}
	}
}

func (r *ConsoleReporter) statusIcon(status stage.Status) string {
	switch status {
	case stage.StatusPassed:
		return "✅ PASSED"
	case stage.StatusWarning:
		return "⚠️  WARNING"
	case stage.StatusFailed:
		return "❌ FAILED"
	case stage.StatusSkipped:
		return "⏭️  SKIPPED"
	default:
		return "⏸️  PENDING"
	}
}

func (r *ConsoleReporter) Error(err error) {
	fmt.Fprintf(os.Stderr, "❌ Error: %v\n", err)
}
