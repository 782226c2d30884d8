package model

import "github.com/ethereum/go-ethereum/common/hexutil"

// ScriptType selects which script of a cell a search key matches against.
type ScriptType string

const (
	ScriptTypeLock ScriptType = "lock"
	ScriptTypeType ScriptType = "type"
)

// Order is the chain order of paged query results.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// SearchFilter narrows a paged query server-side.
type SearchFilter struct {
	BlockRange *[2]hexutil.Uint64 `json:"block_range,omitempty"`
}

// SearchKey is the filter of a paged cell or transaction query.
type SearchKey struct {
	Script           Script        `json:"script"`
	ScriptType       ScriptType    `json:"script_type"`
	ScriptSearchMode string        `json:"script_search_mode,omitempty"`
	Filter           *SearchFilter `json:"filter,omitempty"`
	WithData         *bool         `json:"with_data,omitempty"`
}

// LiveCell is one object of a paged cell query: an unspent cell and the block
// that confirmed it.
type LiveCell struct {
	OutPoint    OutPoint       `json:"out_point"`
	Output      CellOutput     `json:"output"`
	OutputData  hexutil.Bytes  `json:"output_data"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
	TxIndex     hexutil.Uint64 `json:"tx_index"`
}

// CellPage is one page of a cell query. An empty LastCursor ends the walk.
type CellPage struct {
	LastCursor string     `json:"last_cursor"`
	Objects    []LiveCell `json:"objects"`
}

// TxRecord is one object of a paged transaction query. A transaction appears
// once per matched input or output.
type TxRecord struct {
	TxHash      hexutil.Bytes  `json:"tx_hash"`
	BlockNumber hexutil.Uint64 `json:"block_number"`
	TxIndex     hexutil.Uint64 `json:"tx_index"`
	IOIndex     hexutil.Uint64 `json:"io_index"`
	IOType      string         `json:"io_type"`
}

// TxPage is one page of a transaction query.
type TxPage struct {
	LastCursor string     `json:"last_cursor"`
	Objects    []TxRecord `json:"objects"`
}
