// Package reward implements the chain's reward arithmetic: deposit interest
// priced by accumulated-rate ratios, epoch-based secondary issuance, and
// second-phase withdrawal settlements. All divisions are integer floor
// divisions; the chain's consensus truncates the same way and totals must
// match it bit for bit.
package reward

import (
	"fmt"

	"github.com/holiman/uint256"
)

// SecondaryEpochReward is the fixed secondary issuance per epoch, in shannons.
const SecondaryEpochReward uint64 = 61_369_863_013_698

// DepositReward returns the unclaimed interest of a deposit:
// floor(free * arSettle / arDeposit) - free. The result is zero when the rate
// has not moved or when the quotient would fall below the principal.
func DepositReward(free uint64, arDeposit, arSettle uint64) (uint64, error) {
	if arDeposit == 0 {
		return 0, fmt.Errorf("accumulated rate at deposit is zero")
	}

	total := new(uint256.Int).Mul(uint256.NewInt(free), uint256.NewInt(arSettle))
	total.Div(total, uint256.NewInt(arDeposit))

	principal := uint256.NewInt(free)
	if total.Cmp(principal) <= 0 {
		return 0, nil
	}
	total.Sub(total, principal)
	if !total.IsUint64() {
		return 0, fmt.Errorf("reward %s overflows uint64", total.Dec())
	}
	return total.Uint64(), nil
}

// PerBlockSecondary returns the secondary issuance of one block. The epoch
// reward's remainder goes to the first (reward mod length) blocks of the
// epoch, so the per-epoch sum equals the epoch reward exactly.
func PerBlockSecondary(epochReward uint64, index, length uint64) (uint64, error) {
	if length == 0 {
		return 0, fmt.Errorf("epoch length is zero")
	}
	per := epochReward / length
	if index < epochReward%length {
		per++
	}
	return per, nil
}

// MinerSecondary returns the miner's share of a block's secondary issuance:
// floor(perBlock * U / C) over the previous block's accounting field. The
// one-block lag is part of consensus, not an off-by-one.
func MinerSecondary(perBlock uint64, prevUnissued, prevCirculating uint64) (uint64, error) {
	if prevCirculating == 0 {
		return 0, fmt.Errorf("circulating capacity is zero")
	}
	share := new(uint256.Int).Mul(uint256.NewInt(perBlock), uint256.NewInt(prevUnissued))
	share.Div(share, uint256.NewInt(prevCirculating))
	if !share.IsUint64() {
		return 0, fmt.Errorf("miner share %s overflows uint64", share.Dec())
	}
	return share.Uint64(), nil
}

// SettlementReward returns the second-phase settlement gain of a withdrawal:
// the output's capacity minus the consumed prepare cell's capacity, zero when
// not positive.
func SettlementReward(outputCapacity, inputCapacity uint64) uint64 {
	if outputCapacity > inputCapacity {
		return outputCapacity - inputCapacity
	}
	return 0
}
