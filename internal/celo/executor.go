package celo

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	coretypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// Executor signs and broadcasts transfers with a locally held key. It backs
// the scheduled-transfer worker; the interactive drafting path never signs.
type Executor struct {
	client *Client
	key    *signerKey
	log    *slog.Logger
}

type signerKey struct {
	address common.Address
	private *ecdsa.PrivateKey
}

// NewExecutor derives the signing address from the hex private key and
// binds it to the client's network.
func NewExecutor(client *Client, privateKeyHex string) (*Executor, error) {
	privateKeyHex = strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x")
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "parse signer key")
	}
	return &Executor{
		client: client,
		key: &signerKey{
			address: crypto.PubkeyToAddress(key.PublicKey),
			private: key,
		},
		log: logger.Named("executor"),
	}, nil
}

// Address returns the signer's address.
func (e *Executor) Address() string {
	return e.key.address.Hex()
}

// ExecuteTransfer signs and broadcasts one transfer and returns the
// transaction hash. It does not wait for inclusion; the worker polls the
// receipt separately if it cares.
func (e *Executor) ExecuteTransfer(ctx context.Context, to, amount string, tok token.Token) (string, error) {
	if !token.IsValidAddress(to) {
		return "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("invalid recipient: %s", to))
	}
	if _, err := token.ToWei(amount, token.Decimals); err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidArgument, err, "parse transfer amount")
	}

	eth := e.client.eth
	nonce, err := eth.PendingNonceAt(ctx, e.key.address)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch nonce")
	}
	tip, err := eth.SuggestGasTipCap(ctx)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "suggest gas tip")
	}
	head, err := eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch head block")
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	maxFee := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	msg, err := e.client.transferCallMsg(e.key.address.Hex(), to, amount, tok)
	if err != nil {
		return "", err
	}
	gasLimit, err := eth.EstimateGas(ctx, msg)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "estimate gas")
	}

	txData := &coretypes.DynamicFeeTx{
		ChainID:   e.client.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: maxFee,
		Gas:       gasLimit,
		To:        msg.To,
		Value:     msg.Value,
		Data:      msg.Data,
	}

	signed, err := coretypes.SignTx(coretypes.NewTx(txData), coretypes.LatestSignerForChainID(e.client.chainID), e.key.private)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "sign transaction")
	}
	if err := eth.SendTransaction(ctx, signed); err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "broadcast transaction")
	}

	hash := signed.Hash().Hex()
	e.log.Info("transfer broadcast",
		slog.String("tx_hash", hash),
		slog.String("to", token.ShortenAddress(to)),
		slog.String("token", string(tok)),
		slog.String("amount", amount),
	)
	return hash, nil
}
