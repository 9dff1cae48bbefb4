package celo

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	gethcore "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"celo-nlte/internal/draft"
	xerrors "celo-nlte/internal/errors"
	"celo-nlte/internal/token"
	"celo-nlte/pkg/logger"
)

// Client talks to a Celo (or any EVM compatible) node and serves the oracle
// interfaces the drafting layer validates against. All read methods take the
// caller's context; timeouts are the caller's business.
type Client struct {
	cfg     NetworkConfig
	eth     *ethclient.Client
	chainID *big.Int
	log     *slog.Logger
}

// NewClient dials the configured RPC endpoint and verifies the chain ID.
func NewClient(ctx context.Context, cfg NetworkConfig) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "rpc_url is not configured")
	}

	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "dial celo node")
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch chain id")
	}
	if cfg.ChainID != 0 && chainID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, xerrors.New(xerrors.CodeInvalidArgument,
			fmt.Sprintf("node reports chain %d, config expects %d", chainID.Int64(), cfg.ChainID))
	}

	return &Client{
		cfg:     cfg,
		eth:     eth,
		chainID: chainID,
		log:     logger.Named("celo"),
	}, nil
}

// Close releases the node connection.
func (c *Client) Close() {
	if c != nil && c.eth != nil {
		c.eth.Close()
	}
}

// ChainID returns the connected chain's ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Balance returns the address's balance for the token as a decimal string.
// Native balances come straight from the account state; stable tokens go
// through the ERC-20 balanceOf view.
func (c *Client) Balance(ctx context.Context, address string, tok token.Token) (string, error) {
	if !token.IsValidAddress(address) {
		return "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("invalid address: %s", address))
	}
	owner := common.HexToAddress(address)

	if tok == token.Native {
		wei, err := c.eth.BalanceAt(ctx, owner, nil)
		if err != nil {
			return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "query native balance")
		}
		return formatUnits(wei, token.Decimals), nil
	}

	contract, ok := c.cfg.TokenContract(tok)
	if !ok {
		return "", xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("no contract configured for %s", tok))
	}
	data, err := packBalanceOf(owner)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "pack balanceOf")
	}
	contractAddr := common.HexToAddress(contract)
	output, err := c.eth.CallContract(ctx, gethcore.CallMsg{To: &contractAddr, Data: data}, nil)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "call balanceOf")
	}
	wei, err := unpackUint256("balanceOf", output)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeRPCFailure, err, "decode balanceOf")
	}
	return formatUnits(wei, token.Decimals), nil
}

// EstimateTransferGas quotes EIP-1559 fees for a transfer and returns them
// in the decimal-string shape drafts carry.
func (c *Client) EstimateTransferGas(ctx context.Context, from, to, amount string, tok token.Token) (draft.GasEstimate, error) {
	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return draft.GasEstimate{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "suggest gas tip")
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return draft.GasEstimate{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "fetch head block")
	}
	baseFee := head.BaseFee
	if baseFee == nil {
		baseFee = big.NewInt(0)
	}
	// Double the base fee so the quote survives a few full blocks.
	maxFee := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	msg, err := c.transferCallMsg(from, to, amount, tok)
	if err != nil {
		return draft.GasEstimate{}, err
	}
	gasLimit, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return draft.GasEstimate{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "estimate gas")
	}

	cost := new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), maxFee)
	return draft.GasEstimate{
		GasLimit:             fmt.Sprintf("%d", gasLimit),
		MaxFeePerGas:         maxFee.String(),
		MaxPriorityFeePerGas: tip.String(),
		EstimatedCost:        formatUnits(cost, token.Decimals),
	}, nil
}

// PendingRewards reads the earned view on the rewards contract. Networks
// without a rewards deployment report zero.
func (c *Client) PendingRewards(ctx context.Context, address string) (*big.Int, error) {
	rewards := strings.TrimSpace(c.cfg.Staking.Rewards)
	if rewards == "" {
		return big.NewInt(0), nil
	}
	data, err := packEarned(common.HexToAddress(address))
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "pack earned")
	}
	contractAddr := common.HexToAddress(rewards)
	output, err := c.eth.CallContract(ctx, gethcore.CallMsg{To: &contractAddr, Data: data}, nil)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "call earned")
	}
	pending, err := unpackUint256("earned", output)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeRPCFailure, err, "decode earned")
	}
	return pending, nil
}

// StakingSupported reports whether the network configuration carries
// staking contracts.
func (c *Client) StakingSupported() bool {
	return c.cfg.StakingSupported()
}

// SwapSupported reports whether the pair is routed on this network.
func (c *Client) SwapSupported(from, to token.Token) bool {
	return c.cfg.SwapSupported(from, to)
}

func (c *Client) transferCallMsg(from, to, amount string, tok token.Token) (gethcore.CallMsg, error) {
	wei, err := token.ToWei(amount, token.Decimals)
	if err != nil {
		return gethcore.CallMsg{}, xerrors.Wrap(xerrors.CodeInvalidArgument, err, "parse transfer amount")
	}
	sender := common.HexToAddress(from)

	if tok == token.Native {
		recipient := common.HexToAddress(to)
		return gethcore.CallMsg{From: sender, To: &recipient, Value: wei}, nil
	}

	contract, ok := c.cfg.TokenContract(tok)
	if !ok {
		return gethcore.CallMsg{}, xerrors.New(xerrors.CodeInvalidArgument, fmt.Sprintf("no contract configured for %s", tok))
	}
	data, err := packTransfer(common.HexToAddress(to), wei)
	if err != nil {
		return gethcore.CallMsg{}, xerrors.Wrap(xerrors.CodeRPCFailure, err, "pack transfer")
	}
	contractAddr := common.HexToAddress(contract)
	return gethcore.CallMsg{From: sender, To: &contractAddr, Data: data}, nil
}

// formatUnits renders a smallest-unit integer as a decimal token amount,
// trimming trailing zeros.
func formatUnits(wei *big.Int, decimals int) string {
	if wei == nil {
		return "0"
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	text := new(big.Rat).SetFrac(wei, scale).FloatString(decimals)
	text = strings.TrimRight(text, "0")
	text = strings.TrimSuffix(text, ".")
	if text == "" || text == "-" {
		return "0"
	}
	return text
}
