// Package wallettest provides an in-memory wallet.Provider for tests.
package wallettest

import (
	"context"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/quantumauth-io/quantum-bridge-client/internal/constants"
	"github.com/quantumauth-io/quantum-bridge-client/internal/networks"
	"github.com/quantumauth-io/quantum-bridge-client/internal/wallet"
)

// Provider is a scriptable wallet. Zero values behave like an unlocked
// wallet with no accounts on chain 0x1.
type Provider struct {
	wallet.Notifier

	mu sync.Mutex

	AccountList []string
	Chain       string
	Known       map[string]bool // registered chains; nil means every chain is known
	Balances    map[string]*big.Int

	RequestErr  error
	AccountsErr error
	ChainErr    error
	BalanceErr  error
	SwitchErr   error
	AddErr      error
	SendErr     error
	ReceiptErr  error

	ReceiptStatus uint64
	NextHash      common.Hash

	SwitchCalls []string
	AddCalls    []networks.NetworkDescriptor
	Sent        []wallet.TxRequest

	// EmitChainOnSwitch fires chainChanged after a successful switch, like a real wallet.
	EmitChainOnSwitch bool
}

var _ wallet.Provider = (*Provider)(nil)

func New(accounts ...string) *Provider {
	return &Provider{
		AccountList:   accounts,
		Chain:         "0x1",
		Balances:      map[string]*big.Int{},
		ReceiptStatus: types.ReceiptStatusSuccessful,
		NextHash:      common.HexToHash("0xabc123"),
	}
}

func (p *Provider) SetBalance(address string, wei *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Balances == nil {
		p.Balances = map[string]*big.Int{}
	}
	p.Balances[strings.ToLower(address)] = wei
}

func (p *Provider) RequestAccounts(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.RequestErr != nil {
		return nil, p.RequestErr
	}
	return append([]string(nil), p.AccountList...), nil
}

func (p *Provider) Accounts(context.Context) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.AccountsErr != nil {
		return nil, p.AccountsErr
	}
	return append([]string(nil), p.AccountList...), nil
}

func (p *Provider) ChainID(context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ChainErr != nil {
		return "", p.ChainErr
	}
	return p.Chain, nil
}

func (p *Provider) Balance(_ context.Context, address string) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.BalanceErr != nil {
		return nil, p.BalanceErr
	}
	if b, ok := p.Balances[strings.ToLower(address)]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (p *Provider) SwitchChain(_ context.Context, chainIdHex string) error {
	p.mu.Lock()
	p.SwitchCalls = append(p.SwitchCalls, chainIdHex)
	if p.SwitchErr != nil {
		err := p.SwitchErr
		p.mu.Unlock()
		return err
	}
	want := networks.NormalizeChainIDHex(chainIdHex)
	if p.Known != nil && !p.Known[want] {
		p.mu.Unlock()
		return wallet.NewProviderError(constants.ProviderCodeUnrecognizedChain, "Unrecognized chain ID "+chainIdHex)
	}
	p.Chain = want
	emit := p.EmitChainOnSwitch
	p.mu.Unlock()

	if emit {
		p.NotifyChain(want)
	}
	return nil
}

func (p *Provider) AddChain(_ context.Context, n networks.NetworkDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AddCalls = append(p.AddCalls, n)
	if p.AddErr != nil {
		return p.AddErr
	}
	if p.Known != nil {
		p.Known[networks.NormalizeChainIDHex(n.ChainID)] = true
	}
	p.Chain = networks.NormalizeChainIDHex(n.ChainID)
	return nil
}

func (p *Provider) SendTransaction(_ context.Context, tx wallet.TxRequest) (common.Hash, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.SendErr != nil {
		return common.Hash{}, p.SendErr
	}
	p.Sent = append(p.Sent, tx)
	return p.NextHash, nil
}

func (p *Provider) WaitForReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ReceiptErr != nil {
		return nil, p.ReceiptErr
	}
	return &types.Receipt{
		Status:      p.ReceiptStatus,
		TxHash:      hash,
		BlockNumber: big.NewInt(1),
		GasUsed:     21_000,
	}, nil
}

func (p *Provider) SetAccounts(accounts ...string) {
	p.mu.Lock()
	p.AccountList = accounts
	p.mu.Unlock()
}

func (p *Provider) SetChain(chainIdHex string) {
	p.mu.Lock()
	p.Chain = chainIdHex
	p.mu.Unlock()
}

func (p *Provider) SwitchCallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.SwitchCalls)
}

func (p *Provider) AddCallList() []networks.NetworkDescriptor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]networks.NetworkDescriptor(nil), p.AddCalls...)
}

func (p *Provider) SentList() []wallet.TxRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]wallet.TxRequest(nil), p.Sent...)
}
