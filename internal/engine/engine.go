package engine

import (
	"context"
	"log/slog"
	"strings"

	"celo-nlte/internal/draft"
	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/nlp"
	"celo-nlte/pkg/logger"
)

// Engine is the interpreter facade: free text in, parsed commands and
// validated drafts out. Parsing never fails; unrecognized text comes back
// as an UNKNOWN command with zero confidence.
type Engine struct {
	builder *nlp.Builder
	drafter *draft.Drafter
	log     *slog.Logger
}

// New wires the Engine.
func New(builder *nlp.Builder, drafter *draft.Drafter) *Engine {
	return &Engine{
		builder: builder,
		drafter: drafter,
		log:     logger.Named("engine"),
	}
}

// Parse interprets one command. The user key scopes contact resolution.
func (e *Engine) Parse(ctx context.Context, cmd nlp.Command, userKey string) nlp.ParsedCommand {
	match, ok := nlp.MatchText(cmd.Text)
	if !ok {
		e.log.Info("command not recognized", slog.String("text", cmd.Text))
		return nlp.Unknown(cmd.Text)
	}

	parsed := e.builder.Build(ctx, cmd.Text, match, userKey)
	e.log.Info("command parsed",
		slog.String("intent", string(parsed.Intent)),
		slog.Float64("confidence", parsed.Confidence),
	)
	return parsed
}

// DraftTransaction builds a validated draft for a previously parsed
// command. UNKNOWN commands cannot be drafted.
func (e *Engine) DraftTransaction(ctx context.Context, parsed nlp.ParsedCommand, fromAddress string) (*draft.Draft, error) {
	if parsed.Intent == nlp.IntentUnknown {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "cannot draft an unrecognized command")
	}
	if strings.TrimSpace(fromAddress) == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "sender address is required")
	}
	return e.drafter.Draft(ctx, parsed, fromAddress), nil
}
