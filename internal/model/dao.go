package model

import "github.com/ethereum/go-ethereum/common/hexutil"

// DefaultDAOCodeHash is the mainnet code hash of the deposit contract's type
// script.
var DefaultDAOCodeHash = hexutil.MustDecode("0x82d76d1b75fe2fd9a27dfbaa65a039221a380d76c926f378d3f81cf3e7e13f2e")

// DAOTypeScript builds the deposit contract's type script for the given code
// hash. Deposit cells carry this script with empty args.
func DAOTypeScript(codeHash hexutil.Bytes) Script {
	return Script{
		CodeHash: codeHash,
		HashType: HashTypeType,
		Args:     hexutil.Bytes{},
	}
}
