package main

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/rescp17/imageReceiver/internal/util"
	"github.com/rescp17/imageReceiver/pkg/transfer"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
	keyColor  = color.New(color.FgCyan)
)

// printResult writes a one-line summary of a finalized image.
func printResult(w io.Writer, result transfer.ReconstructionResult, path string) {
	label := okColor.Sprint("OK  ")
	if result.Degraded() {
		label = warnColor.Sprint("PART")
	}
	name := dimColor.Sprint("(not saved)")
	if path != "" {
		name = filepath.Base(path)
	}
	fmt.Fprintf(w, "%s %s %s %s\n",
		label,
		util.PadRight(name, 36),
		util.PadLeft(util.FormatSize(int64(len(result.Bytes))), 10),
		dimColor.Sprintf("%s in %s", result.Outcome, result.Duration().Round(time.Millisecond)))
	if len(result.MissingIndices) > 0 {
		fmt.Fprintf(w, "     %s %s\n", keyColor.Sprint("missing:"), util.FormatIndices(result.MissingIndices, 20))
	}
	if result.SizeMismatch {
		fmt.Fprintf(w, "     %s received %d bytes, declared %d\n", keyColor.Sprint("size:"), result.ReceivedBytes, result.DeclaredSize)
	}
}

// printStats writes the receiver counters.
func printStats(w io.Writer, stats transfer.StatsSnapshot) {
	fmt.Fprintf(w, "%s frames %d, malformed %d, ignored %d, duplicates %d, out of range %d, oversized %d\n",
		keyColor.Sprint("stats:"),
		stats.FramesReceived, stats.MalformedFrames, stats.IgnoredFrames,
		stats.DuplicatePackets, stats.OutOfRangePackets, stats.OversizedPackets)
	fmt.Fprintf(w, "%s started %d, completed %d, degraded %d\n",
		keyColor.Sprint("sessions:"),
		stats.SessionsStarted, stats.SessionsCompleted, stats.SessionsDegraded)
}
