package celo

import (
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// erc20ABI covers the fragment of the ERC-20 interface the interpreter
// needs, plus the earned view exposed by the rewards contract.
const erc20ABI = `[
  {"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
  {"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
  {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"earned","outputs":[{"name":"","type":"uint256"}],"type":"function"}
]`

var (
	parsedABIOnce sync.Once
	parsedABI     abi.ABI
	parsedABIErr  error
)

func tokenABI() (abi.ABI, error) {
	parsedABIOnce.Do(func() {
		parsedABI, parsedABIErr = abi.JSON(strings.NewReader(erc20ABI))
	})
	return parsedABI, parsedABIErr
}

func packBalanceOf(owner common.Address) ([]byte, error) {
	parsed, err := tokenABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("balanceOf", owner)
}

func packTransfer(to common.Address, value *big.Int) ([]byte, error) {
	parsed, err := tokenABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("transfer", to, value)
}

func packEarned(account common.Address) ([]byte, error) {
	parsed, err := tokenABI()
	if err != nil {
		return nil, err
	}
	return parsed.Pack("earned", account)
}

func unpackUint256(method string, data []byte) (*big.Int, error) {
	parsed, err := tokenABI()
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack(method, data)
	if err != nil {
		return nil, err
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("unexpected %s output arity: %d", method, len(values))
	}
	value, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected %s output type %T", method, values[0])
	}
	return value, nil
}
