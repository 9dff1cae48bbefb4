package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"celo-nlte/internal/engine"
	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/nlp"
	"celo-nlte/pkg/logger"
)

// NATSConfig describes the NATS connection and subjects.
type NATSConfig struct {
	URL            string        `json:"url"`
	Name           string        `json:"name"`
	ParseSubject   string        `json:"parse_subject"`
	DraftSubject   string        `json:"draft_subject"`
	RequestTimeout time.Duration `json:"-"`
}

// NATSTransport serves parse and draft requests over NATS request/reply,
// mirroring the REST surface for in-cluster callers.
type NATSTransport struct {
	conn   *nats.Conn
	cfg    NATSConfig
	engine *engine.Engine
	subs   []*nats.Subscription
	log    *slog.Logger
}

// ParseRequest is the wire shape of a parse call.
type ParseRequest struct {
	Text    string `json:"text"`
	UserKey string `json:"user_key"`
}

// DraftRequest is the wire shape of a draft call.
type DraftRequest struct {
	Text        string `json:"text"`
	UserKey     string `json:"user_key"`
	FromAddress string `json:"from_address"`
}

// ErrorReply travels back when a request cannot be served.
type ErrorReply struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// NewNATSTransport connects to the broker.
func NewNATSTransport(cfg NATSConfig, eng *engine.Engine) (*NATSTransport, error) {
	if cfg.URL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "nats url is required")
	}
	if cfg.ParseSubject == "" {
		cfg.ParseSubject = "nlte.parse"
	}
	if cfg.DraftSubject == "" {
		cfg.DraftSubject = "nlte.draft"
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeQueueFailure, err, "connect nats")
	}

	return &NATSTransport{
		conn:   conn,
		cfg:    cfg,
		engine: eng,
		log:    logger.Named("nats"),
	}, nil
}

// Start subscribes to the parse and draft subjects.
func (t *NATSTransport) Start() error {
	parseSub, err := t.conn.Subscribe(t.cfg.ParseSubject, t.handleParse)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "subscribe parse subject")
	}
	draftSub, err := t.conn.Subscribe(t.cfg.DraftSubject, t.handleDraft)
	if err != nil {
		_ = parseSub.Unsubscribe()
		return xerrors.Wrap(xerrors.CodeQueueFailure, err, "subscribe draft subject")
	}
	t.subs = append(t.subs, parseSub, draftSub)

	t.log.Info("nats transport started",
		slog.String("parse_subject", t.cfg.ParseSubject),
		slog.String("draft_subject", t.cfg.DraftSubject),
	)
	return nil
}

func (t *NATSTransport) handleParse(msg *nats.Msg) {
	var req ParseRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		t.replyError(msg, xerrors.CodeInvalidArgument, "malformed parse request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	parsed := t.engine.Parse(ctx, nlp.Command{Text: req.Text, Timestamp: time.Now().UnixMilli()}, req.UserKey)
	t.reply(msg, parsed)
}

func (t *NATSTransport) handleDraft(msg *nats.Msg) {
	var req DraftRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		t.replyError(msg, xerrors.CodeInvalidArgument, "malformed draft request")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.cfg.RequestTimeout)
	defer cancel()

	parsed := t.engine.Parse(ctx, nlp.Command{Text: req.Text, Timestamp: time.Now().UnixMilli()}, req.UserKey)
	d, err := t.engine.DraftTransaction(ctx, parsed, req.FromAddress)
	if err != nil {
		t.replyError(msg, xerrors.CodeOf(err), err.Error())
		return
	}
	t.reply(msg, d)
}

func (t *NATSTransport) reply(msg *nats.Msg, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		t.log.Error("marshal reply failed", slog.Any("error", err))
		return
	}
	if err := msg.Respond(data); err != nil {
		t.log.Error("send reply failed", slog.Any("error", err))
	}
}

func (t *NATSTransport) replyError(msg *nats.Msg, code xerrors.Code, message string) {
	t.reply(msg, ErrorReply{Code: string(code), Error: message})
}

// Close drops the subscriptions and the connection.
func (t *NATSTransport) Close() error {
	for _, sub := range t.subs {
		_ = sub.Unsubscribe()
	}
	if t.conn != nil {
		t.conn.Close()
	}
	return nil
}
