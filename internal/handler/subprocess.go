package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/umar-bluered-virtuals/openclaw-acp-sentinel/pkg/models"
)

// Subprocess invokes an offering's handler program: one process per capability
// call, capability name as the single argument, JSON Request on stdin, JSON
// reply on stdout. Handlers are loaded fresh on every job event, so edits to
// the program take effect without restarting the runtime.
type Subprocess struct {
	Command string // handler program, absolute or relative to Dir
	Dir     string // offering directory; working dir for the process
}

// Load builds a Set exposing exactly the declared capabilities, each backed by
// a subprocess invocation.
func (s Subprocess) Load(capabilities []string) (Set, error) {
	if strings.TrimSpace(s.Command) == "" {
		return Set{}, fmt.Errorf("handler command is required")
	}
	var set Set
	for _, name := range capabilities {
		switch name {
		case models.CapabilityExecute:
			set.Execute = func(ctx context.Context, req Request) (ExecuteResult, error) {
				var out ExecuteResult
				if err := s.invoke(ctx, models.CapabilityExecute, req, &out); err != nil {
					return ExecuteResult{}, err
				}
				if len(out.Deliverable.Value) == 0 {
					return ExecuteResult{}, fmt.Errorf("execute reply missing deliverable")
				}
				return out, nil
			}
		case models.CapabilityValidate:
			set.Validate = func(ctx context.Context, req Request) (ValidationResult, error) {
				raw, err := s.invokeRaw(ctx, models.CapabilityValidate, req)
				if err != nil {
					return ValidationResult{}, err
				}
				return ParseValidationReply(raw)
			}
		case models.CapabilityRequestPayment:
			set.RequestPayment = func(ctx context.Context, req Request) (string, error) {
				var out struct {
					Message string `json:"message"`
				}
				if err := s.invoke(ctx, models.CapabilityRequestPayment, req, &out); err != nil {
					return "", err
				}
				return out.Message, nil
			}
		case models.CapabilityRequestFunds:
			set.RequestFunds = func(ctx context.Context, req Request) (models.FundsRequest, error) {
				var out models.FundsRequest
				if err := s.invoke(ctx, models.CapabilityRequestFunds, req, &out); err != nil {
					return models.FundsRequest{}, err
				}
				if out.TokenAddress == "" || out.Recipient == "" {
					return models.FundsRequest{}, fmt.Errorf("request_funds reply missing token address or recipient")
				}
				return out, nil
			}
		default:
			return Set{}, fmt.Errorf("unknown handler capability %q", name)
		}
	}
	return set, nil
}

func (s Subprocess) invoke(ctx context.Context, capability string, req Request, out any) error {
	raw, err := s.invokeRaw(ctx, capability, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("handler %s: bad reply: %w", capability, err)
	}
	return nil
}

func (s Subprocess) invokeRaw(ctx context.Context, capability string, req Request) ([]byte, error) {
	command := s.Command
	if !filepath.IsAbs(command) && s.Dir != "" {
		command = filepath.Join(s.Dir, command)
	}
	cmd := exec.CommandContext(ctx, command, capability)
	cmd.Dir = s.Dir

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	cmd.Stdin = bytes.NewReader(append(reqJSON, '\n'))

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return nil, fmt.Errorf("handler %s: %w: %s", capability, err, msg)
		}
		return nil, fmt.Errorf("handler %s: %w", capability, err)
	}

	reply := bytes.TrimSpace(stdout.Bytes())
	if len(reply) == 0 {
		return nil, fmt.Errorf("handler %s: empty reply", capability)
	}
	return reply, nil
}

// ParseValidationReply normalizes the two accepted Validate reply forms: a bare
// JSON boolean, or {"valid": bool, "reason": string}.
func ParseValidationReply(raw []byte) (ValidationResult, error) {
	trimmed := bytes.TrimSpace(raw)
	var b bool
	if err := json.Unmarshal(trimmed, &b); err == nil {
		return ValidationResult{Valid: b}, nil
	}
	var res ValidationResult
	if err := json.Unmarshal(trimmed, &res); err != nil {
		return ValidationResult{}, fmt.Errorf("validate reply is neither a boolean nor a {valid, reason} object: %s", trimmed)
	}
	return res, nil
}
