package reward

import (
	"fmt"

	"github.com/goodnatureofminers/chainaudit7000-backend/internal/codec"
	"github.com/goodnatureofminers/chainaudit7000-backend/internal/model"
)

// MinerSecondaryAuditor measures the miner's secondary payout per block for
// range aggregation.
type MinerSecondaryAuditor struct {
	EpochReward uint64
}

// Audit returns the miner secondary payout of the block at height, which
// depends on the parent header's accounting field.
func (a MinerSecondaryAuditor) Audit(height uint64, header, parent model.Header) (uint64, error) {
	epoch, err := codec.DecodeEpoch(uint64(header.Epoch))
	if err != nil {
		return 0, fmt.Errorf("block %d: %w", height, err)
	}
	perBlock, err := PerBlockSecondary(a.EpochReward, epoch.Index, epoch.Length)
	if err != nil {
		return 0, fmt.Errorf("block %d: %w", height, err)
	}
	prev, err := codec.DecodeAccountingField(parent.Accounting)
	if err != nil {
		return 0, fmt.Errorf("block %d parent: %w", height, err)
	}
	payout, err := MinerSecondary(perBlock, prev.UnissuedSecondary, prev.Circulating)
	if err != nil {
		return 0, fmt.Errorf("block %d: %w", height, err)
	}
	return payout, nil
}

// SecondaryIssuanceAuditor measures the gross secondary issuance per block.
type SecondaryIssuanceAuditor struct {
	EpochReward uint64
}

// Audit returns the block's gross secondary issuance; the parent header is
// unused for this measure.
func (a SecondaryIssuanceAuditor) Audit(height uint64, header, _ model.Header) (uint64, error) {
	epoch, err := codec.DecodeEpoch(uint64(header.Epoch))
	if err != nil {
		return 0, fmt.Errorf("block %d: %w", height, err)
	}
	perBlock, err := PerBlockSecondary(a.EpochReward, epoch.Index, epoch.Length)
	if err != nil {
		return 0, fmt.Errorf("block %d: %w", height, err)
	}
	return perBlock, nil
}
