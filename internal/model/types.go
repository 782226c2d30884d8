// Package model defines the chain data structures exchanged with the node's
// JSON-RPC API. Numeric fields use the node's 0x-hex quantity encoding.
package model

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ScriptHashType selects how a script's code hash is resolved on chain.
type ScriptHashType string

const (
	HashTypeData  ScriptHashType = "data"
	HashTypeType  ScriptHashType = "type"
	HashTypeData1 ScriptHashType = "data1"
	HashTypeData2 ScriptHashType = "data2"
)

// Script locks or types a cell. It occupies 32 (code hash) + 1 (hash type) +
// len(args) bytes of the cell's capacity.
type Script struct {
	CodeHash hexutil.Bytes  `json:"code_hash"`
	HashType ScriptHashType `json:"hash_type"`
	Args     hexutil.Bytes  `json:"args"`
}

// Equal reports whether two scripts are byte-for-byte identical.
func (s Script) Equal(o Script) bool {
	return s.HashType == o.HashType &&
		bytes.Equal(s.CodeHash, o.CodeHash) &&
		bytes.Equal(s.Args, o.Args)
}

// Header is a block header. The Accounting field carries the packed 32-byte
// stake accounting structure decoded by the codec package.
type Header struct {
	Hash       hexutil.Bytes  `json:"hash"`
	Number     hexutil.Uint64 `json:"number"`
	Epoch      hexutil.Uint64 `json:"epoch"`
	ParentHash hexutil.Bytes  `json:"parent_hash"`
	Timestamp  hexutil.Uint64 `json:"timestamp"`
	Accounting hexutil.Bytes  `json:"dao"`
}

// OutPoint references a transaction output.
type OutPoint struct {
	TxHash hexutil.Bytes  `json:"tx_hash"`
	Index  hexutil.Uint64 `json:"index"`
}

// CellInput consumes a previous output.
type CellInput struct {
	PreviousOutput OutPoint       `json:"previous_output"`
	Since          hexutil.Uint64 `json:"since"`
}

// CellOutput declares a cell's capacity in shannons and its scripts.
type CellOutput struct {
	Capacity hexutil.Uint64 `json:"capacity"`
	Lock     Script         `json:"lock"`
	Type     *Script        `json:"type"`
}

// Transaction is a confirmed transaction body.
type Transaction struct {
	Hash        hexutil.Bytes   `json:"hash"`
	Inputs      []CellInput     `json:"inputs"`
	Outputs     []CellOutput    `json:"outputs"`
	OutputsData []hexutil.Bytes `json:"outputs_data"`
}

// TxStatus reports where a transaction landed.
type TxStatus struct {
	Status    string        `json:"status"`
	BlockHash hexutil.Bytes `json:"block_hash"`
}

// TxWithStatus pairs a transaction with its confirmation status.
type TxWithStatus struct {
	Transaction *Transaction `json:"transaction"`
	TxStatus    TxStatus     `json:"tx_status"`
}

// IndexerTip is the highest block the node's cell index has processed.
type IndexerTip struct {
	BlockHash   hexutil.Bytes  `json:"block_hash"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
}
