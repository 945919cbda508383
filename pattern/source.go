package pattern

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/c360studio/semsum/encoder"
)

// FileSource reads patterns mined earlier by an external tool. Files ending
// in .json are read with ReadJSON, anything else with ReadText.
type FileSource struct {
	Path string
}

// Mine loads the pattern file. The matrix and parameters are not consulted.
func (s FileSource) Mine(ctx context.Context, _ *encoder.Matrix, _ Params) ([]Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open patterns: %w", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(s.Path), ".json") {
		return ReadJSON(f)
	}
	return ReadText(f)
}

// ExecSource runs an external miner. The matrix is written to the command's
// stdin in transaction format and patterns are read from stdout in the text
// format. The placeholders {k}, {epsilon_row} and {epsilon_col} in the
// arguments are replaced with the mining parameters.
type ExecSource struct {
	Command []string
	Timeout time.Duration
	Logger  *slog.Logger
}

// Mine runs the miner command.
func (s *ExecSource) Mine(ctx context.Context, m *encoder.Matrix, params Params) ([]Pattern, error) {
	if len(s.Command) == 0 {
		return nil, fmt.Errorf("miner command is empty")
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	args := expandArgs(s.Command, params)

	var stdin bytes.Buffer
	if err := WriteTransactions(&stdin, m); err != nil {
		return nil, fmt.Errorf("encode transactions: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = &stdin
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("run miner %s: %w", args[0], ctxErr)
		}
		return nil, fmt.Errorf("run miner %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}

	patterns, err := ReadText(&stdout)
	if err != nil {
		return nil, fmt.Errorf("parse miner output: %w", err)
	}

	logger.Debug("Miner finished",
		"command", args[0],
		"patterns", len(patterns),
		"duration", time.Since(start))

	return patterns, nil
}

func expandArgs(command []string, p Params) []string {
	r := strings.NewReplacer(
		"{k}", strconv.Itoa(p.K),
		"{epsilon_row}", strconv.FormatFloat(p.EpsilonRow, 'f', -1, 64),
		"{epsilon_col}", strconv.FormatFloat(p.EpsilonCol, 'f', -1, 64),
	)
	out := make([]string, len(command))
	for i, a := range command {
		out[i] = r.Replace(a)
	}
	return out
}
