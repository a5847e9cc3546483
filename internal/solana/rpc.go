package solana

import "context"

// RPCClient defines Solana RPC HTTP interface.
type RPCClient interface {
	// GetTransaction retrieves a transaction by signature.
	GetTransaction(ctx context.Context, signature string) (*Transaction, error)

	// GetBlock retrieves a block by slot number.
	GetBlock(ctx context.Context, slot int64) (*Block, error)

	// GetSignaturesForAddress retrieves signatures for an address with pagination.
	GetSignaturesForAddress(ctx context.Context, address string, opts *SignaturesOpts) ([]SignatureInfo, error)
}

// Transaction represents a Solana transaction.
type Transaction struct {
	Slot      int64
	Signature string
	BlockTime int64 // Unix timestamp (seconds)
	Meta      *TransactionMeta
	Message   *TransactionMessage
}

// TransactionMeta contains transaction metadata.
type TransactionMeta struct {
	Err                   interface{}
	LogMessages           []string
	Fee                   uint64
	ComputeUnitsConsumed  *uint32
}

// MessageHeader carries the three counts a validator uses to decide which
// account-key indices are signers and which are writable. See
// https://docs.solana.com/developing/programming-model/transactions#message-header-format.
type MessageHeader struct {
	NumRequiredSignatures       int
	NumReadonlySignedAccounts   int
	NumReadonlyUnsignedAccounts int
}

// CompiledInstruction references program and account indices into the
// enclosing message's AccountKeys, plus base58/base64-encoded instruction
// data (left undecoded here; only the Compute Budget decoder cares about
// its contents).
type CompiledInstruction struct {
	ProgramIDIndex int
	Accounts       []int
	Data           string
}

// TransactionMessage contains parsed transaction message.
type TransactionMessage struct {
	AccountKeys  []string
	Header       MessageHeader
	Instructions []CompiledInstruction
}

// IsMaybeWritable reports whether the account at AccountKeys[idx] is
// writable per the message header layout: account keys are ordered
// [signed-writable][signed-readonly][unsigned-writable][unsigned-readonly].
// Returns false for an out-of-range index rather than panicking, since
// callers resolve indices out of untrusted RPC payloads.
func (m *TransactionMessage) IsMaybeWritable(idx int) bool {
	if idx < 0 || idx >= len(m.AccountKeys) {
		return false
	}
	numAccounts := len(m.AccountKeys)
	h := m.Header

	if idx < h.NumRequiredSignatures {
		// Signed account: writable unless in the trailing readonly-signed range.
		return idx < h.NumRequiredSignatures-h.NumReadonlySignedAccounts
	}
	// Unsigned account: writable unless in the trailing readonly-unsigned range.
	return idx < numAccounts-h.NumReadonlyUnsignedAccounts
}
