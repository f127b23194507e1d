package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/peter-kozarec/btlite/pkg/common"
)

var (
	ErrDuplicateContract = errors.New("contract is already present in contract table")
	ErrInvalidContract   = errors.New("invalid contract")
)

// ContractStore is an in-memory common.ContractLookup keyed case-insensitively.
type ContractStore struct {
	contracts map[string]common.Contract
}

func NewContractStore(contracts ...common.Contract) (*ContractStore, error) {
	s := &ContractStore{
		contracts: make(map[string]common.Contract, len(contracts)),
	}
	for _, contract := range contracts {
		if err := s.Add(contract); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *ContractStore) Add(contract common.Contract) error {
	if contract.Symbol == "" {
		return fmt.Errorf("contract without symbol: %w", ErrInvalidContract)
	}
	if contract.Multiplier <= 0 {
		return fmt.Errorf("contract %s has multiplier %v: %w", contract.Symbol, contract.Multiplier, ErrInvalidContract)
	}
	if contract.TickSize < 0 {
		return fmt.Errorf("contract %s has tick size %v: %w", contract.Symbol, contract.TickSize, ErrInvalidContract)
	}

	key := strings.ToUpper(contract.Symbol)
	if _, ok := s.contracts[key]; ok {
		return fmt.Errorf("unable to add contract %s: %w", contract.Symbol, ErrDuplicateContract)
	}
	contract.Symbol = key
	s.contracts[key] = contract
	return nil
}

func (s *ContractStore) Get(symbol string) (common.Contract, error) {
	contract, ok := s.contracts[strings.ToUpper(symbol)]
	if !ok {
		return common.Contract{}, fmt.Errorf("unable to get contract with symbol %s: %w", symbol, common.ErrSymbolNotPresent)
	}
	return contract, nil
}

func (s *ContractStore) MustGet(symbol string) common.Contract {
	contract, err := s.Get(symbol)
	if err != nil {
		panic(err.Error())
	}
	return contract
}

func (s *ContractStore) Len() int {
	return len(s.contracts)
}
