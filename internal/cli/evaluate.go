// evaluate.go implements the offline "wayfinder evaluate" and
// "wayfinder bootstrap" commands used to debug the heuristics.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/wayfinder/internal/config"
	"github.com/MikeSquared-Agency/wayfinder/internal/engine"
	"github.com/MikeSquared-Agency/wayfinder/internal/signal"
	"github.com/MikeSquared-Agency/wayfinder/internal/transcript"
)

var (
	baseGuidance []string
	guidanceOnly bool
	compact      bool
	fromLog      bool
	focus        string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <request.json|->",
	Short: "Run one engine pass over a JSON request",
	Long: `Read an evaluation request (turns, insights, votes, phase, ...) from a
file or stdin and print the resulting rubric, phase decision and guidance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOffline(cmd, args[0], false)
	},
}

var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap <request.json|->",
	Short: "Run the transcript-only bootstrap pass over a JSON request",
	Long: `Run the bootstrap pass a voice session uses before it connects. With
--transcript the argument is a JSONL conversation log instead of a request.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOffline(cmd, args[0], true)
	},
}

func init() {
	for _, c := range []*cobra.Command{evaluateCmd, bootstrapCmd} {
		c.Flags().StringArrayVar(&baseGuidance, "guidance", nil, "Base guidance placed before the compiled directives (repeatable)")
		c.Flags().BoolVar(&guidanceOnly, "guidance-only", false, "Print only the compiled guidance text")
		c.Flags().BoolVar(&compact, "compact", false, "Print JSON on a single line")
	}
	bootstrapCmd.Flags().BoolVar(&fromLog, "transcript", false, "Treat the argument as a JSONL conversation log")
	bootstrapCmd.Flags().StringVar(&focus, "focus", "", "Conversation focus when reading a transcript (rapport, story, pattern, ideation, decision)")
}

func runOffline(cmd *cobra.Command, path string, bootstrap bool) error {
	eng, err := newEngine(config.Load())
	if err != nil {
		return err
	}

	if bootstrap && fromLog {
		turns, err := readTranscript(cmd.InOrStdin(), path)
		if err != nil {
			return fmt.Errorf("reading transcript: %w", err)
		}
		return write(cmd.OutOrStdout(), eng.Bootstrap(engine.Request{
			Turns:        turns,
			Focus:        signal.Focus(focus),
			BaseGuidance: baseGuidance,
		}))
	}

	in := cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening request: %w", err)
		}
		defer f.Close()
		in = f
	}
	return evaluate(eng, in, cmd.OutOrStdout(), bootstrap)
}

func readTranscript(stdin io.Reader, path string) ([]signal.Turn, error) {
	if path == "-" {
		return transcript.Read(stdin)
	}
	return transcript.ReadFile(path)
}

// evaluate decodes one request, adds any --guidance lines to its base
// guidance and writes the result.
func evaluate(eng *engine.Engine, in io.Reader, out io.Writer, bootstrap bool) error {
	var req engine.Request
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decoding request: %w", err)
	}
	req.BaseGuidance = append(req.BaseGuidance, baseGuidance...)

	var res engine.Result
	if bootstrap {
		res = eng.Bootstrap(req)
	} else {
		res = eng.Evaluate(req)
	}

	return write(out, res)
}

func write(out io.Writer, res engine.Result) error {
	if guidanceOnly {
		_, err := fmt.Fprintln(out, res.Guidance)
		return err
	}

	enc := json.NewEncoder(out)
	if !compact {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(res)
}
