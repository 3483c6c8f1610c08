package cli

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/engine"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ir"
	"github.com/yomia4825/Tokenized-Decentralized-Garden-Mulch-Distribution-Networks/internal/ledger"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	LedgerOptions
}

// RequestLine is one line of a run input file.
type RequestLine struct {
	Action    string          `json:"action"`
	Args      json.RawMessage `json:"args"`
	Caller    string          `json:"caller"`
	Height    int64           `json:"height,omitempty"`
	FlowToken string          `json:"flow_token,omitempty"`
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Requests    int              `json:"requests"`
	Transitions int              `json:"transitions"`
	Rejected    int              `json:"rejected"`
	Outcomes    []engine.Outcome `json:"outcomes"`
}

// maxLineSize bounds one request line.
const maxLineSize = 1 << 20

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run [file|-]",
		Short: "Apply a batch of JSON-lines requests",
		Long: `Apply requests from a JSON-lines file (or stdin) in order.

Each line is an object:
  {"action": "Garden.register", "caller": "gale", "height": 3, "args": {...}}

height defaults to the log's height; flow_token is optional. Blank lines
and lines starting with # are skipped. Every line is parsed before any is
applied, so a malformed file changes nothing.

Rejected requests are logged and counted; they do not stop the batch.
An engine error (unknown action, height regression, cycle or quota stop)
stops the batch after the transitions already committed.

Examples:
  mulchledger run --db ./ledger.db requests.jsonl
  cat requests.jsonl | mulchledger run --db ./ledger.db --config ledger.cue`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			return runBatch(opts, input, cmd)
		},
	}

	addLedgerFlags(cmd, &opts.LedgerOptions)

	return cmd
}

func runBatch(opts *RunOptions, input string, cmd *cobra.Command) error {
	ctx := cmdContext(cmd)
	formatter := newFormatter(opts.RootOptions, cmd)

	var r io.Reader = cmd.InOrStdin()
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open input", err)
		}
		defer f.Close()
		r = f
	}

	requests, err := readRequests(r)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid input", err)
	}

	eng, closeFn, err := openEngine(&opts.LedgerOptions)
	if err != nil {
		return err
	}
	defer closeFn()
	report, err := resume(ctx, eng)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Resumed from %s at height %d", pluralize(report.Transitions, "transition"), report.Height)

	result := RunResult{Outcomes: []engine.Outcome{}}
	for i, req := range requests {
		req.Height = requestHeight(req.Height, eng)
		outcomes, invokeErr := eng.Invoke(ctx, req)

		result.Requests++
		for _, oc := range outcomes {
			if oc.Logged {
				result.Transitions++
			}
			if !oc.Completion.Succeeded() {
				result.Rejected++
			}
		}
		result.Outcomes = append(result.Outcomes, outcomes...)
		if !formatter.JSON() {
			writeOutcomes(formatter.Writer, outcomes)
		}

		if invokeErr != nil {
			slog.Warn("batch stopped", "request", i+1, "action", req.Action, "error", invokeErr)
			message := fmt.Sprintf("request %d (%s): %v", i+1, req.Action, invokeErr)
			if formatter.JSON() {
				_ = formatter.Failure(describeError(invokeErr), message, result)
			} else {
				fmt.Fprintf(formatter.Writer, "Error [%s]: %s\n", describeError(invokeErr), message)
			}
			return NewExitError(ExitFailure, message)
		}
	}

	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "\nApplied %s: %s logged, %d rejected\n",
		pluralize(result.Requests, "request"), pluralize(result.Transitions, "transition"), result.Rejected)
	return nil
}

// readRequests parses every line of r. Errors name the line.
func readRequests(r io.Reader) ([]engine.Request, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var requests []engine.Request
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		req, err := parseRequestLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		requests = append(requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return requests, nil
}

func parseRequestLine(line []byte) (engine.Request, error) {
	var rl RequestLine
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rl); err != nil {
		return engine.Request{}, err
	}
	if !ir.ActionRef(rl.Action).Valid() {
		return engine.Request{}, fmt.Errorf("invalid action %q", rl.Action)
	}
	if rl.Height < 0 {
		return engine.Request{}, fmt.Errorf("height must be non-negative")
	}

	args := ir.IRObject{}
	if len(rl.Args) > 0 {
		var err error
		if args, err = ir.ParseObject(rl.Args); err != nil {
			return engine.Request{}, fmt.Errorf("args: %w", err)
		}
	}
	return engine.Request{
		Action:    ir.ActionRef(rl.Action),
		Args:      args,
		Caller:    ledger.Identity(rl.Caller),
		Height:    rl.Height,
		FlowToken: rl.FlowToken,
	}, nil
}
