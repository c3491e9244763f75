package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"email-analyzer/internal/analysis"
	"email-analyzer/internal/common/logger"
)

const maxStderrInError = 512

// Process runs an external analyzer per request. The request is written to
// the child's stdin as JSON and a report is read from its stdout.
type Process struct {
	command string
	args    []string
	env     []string
	logger  logger.Logger
}

func NewProcess(command string, args []string, log logger.Logger) *Process {
	return &Process{
		command: command,
		args:    args,
		logger:  log.WithFields(map[string]interface{}{"component": "process-backend", "command": command}),
	}
}

// WithEnv adds KEY=VALUE pairs to the child environment.
func (p *Process) WithEnv(env ...string) *Process {
	p.env = append(p.env, env...)
	return p
}

func (p *Process) Analyze(ctx context.Context, req analysis.Request) (*analysis.Report, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", analysis.ErrBackendFailed, err)
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Env = append(os.Environ(), p.env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendTimeout, ctxErr)
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			p.logger.Warn("analysis process exited with error", map[string]interface{}{
				"requestId": req.RequestID,
				"exitCode":  exitErr.ExitCode(),
			})
			return nil, fmt.Errorf("%w: exit code %d: %s", analysis.ErrBackendFailed, exitErr.ExitCode(), tail(stderr.String()))
		}
		return nil, fmt.Errorf("%w: %v", analysis.ErrBackendFailed, runErr)
	}

	return decodeReport(bytes.TrimSpace(stdout.Bytes()))
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrInError {
		return s[len(s)-maxStderrInError:]
	}
	return s
}
