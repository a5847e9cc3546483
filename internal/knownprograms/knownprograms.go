// Package knownprograms is a static lookup table mapping well-known Solana
// program IDs and accounts to human-readable labels. It carries no state and
// no behavior beyond lookups; the Slot Decoder and the account_metadata
// upsert path consult it when they can.
package knownprograms

// programs maps program IDs to their human-readable label.
var programs = map[string]string{
	// DEX / AMM
	"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8": "Raydium AMM",
	"CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK": "Raydium CLMM",
	"routeUGWgWzqBWFcrCfv8tritsqukccJPu3q5GPP3xS":  "Raydium Route",
	"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYC1LDsqNuNmM":   "Orca Whirlpool",
	"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP":  "Orca Swap V2",
	"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4":   "Jupiter V6",
	"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB":   "Jupiter V4",
	"PhoeNiXZ8ByJGLkxNfZRnkUfjvmuYqLR89jjFHGqdXY":   "Phoenix DEX",
	"LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo":   "Meteora DLMM",
	"Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UG":   "Meteora Pools",
	"srmqPvymJeFKQ4zGQed1GFppgkRHL9kaELCbyksJtPX":   "Serum DEX V3",
	"opnb2LAfJYbRMAHHvqjCwQxanZn7ReEHp1k81EohpZb":   "Openbook V2",

	// Lending / borrowing
	"So1endDq2YkqhipRh3WViPa8hdiSpxWy6z3Z6tMCpAo":  "Solend",
	"MFv2hWf31Z9kbCa1snEPYctwafyhdvnV7FZnsebVacA":  "Marginfi",
	"KLend2g3cP87ber41yPrLSQn3UNsXM3x4vjGj8AvH7p":  "Kamino Lend",
	"DjVE6JNiYqPL2QXyCUUh8rNjHrbz9hXHNYt99MQ59qw1": "Drift",

	// Staking / liquid staking
	"MarBmsSgKXdrN1egZf5sqe1TMai9K1rChYNDJgjq7aD": "Marinade",
	"SPo1eCN1YNa4YhkYDgG9sP1xFYT8p3YYryNVvPbja71": "Jito Stake Pool",
	"LST8uQcJ8uKhRxrAKq4pEjTxrJS2a3eVv2zXwQVxonr": "Sanctum LST",

	// NFT / Metaplex
	"metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s": "Metaplex Token Metadata",
	"M2mx93ekt1fmXSVkTrUL9xVFHkmME8HTUi5Cyc5aF7K": "Magic Eden V2",
	"TSWAPaqyCSx2KABk68Shruf4rp7CxcNi8hAsbdwmHbN": "Tensor Swap",
	"TCMPhJdwDryooaGtiocG1u3xcYbRpiJzb283XfCZsDp": "Tensor Compressed",

	// Infrastructure
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA":  "Token Program",
	"TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb":  "Token-2022",
	"ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL": "Associated Token",
	"11111111111111111111111111111111":             "System Program",
	"ComputeBudget111111111111111111111111111111":  "Compute Budget",
	"memo1UhkJRfHyvLMcVucJwxXeuD728EqVDDwQDxFMNo":   "Memo",

	// Oracles
	"FsJ3A3u2vn5cTVofAjvy6y5kwABJAqYWpe4975bi2epH": "Pyth Oracle",
	"SW1TCH7qEPTdLsDHRgPuMQjbQxKdH2aBStViMFnt64f":  "Switchboard V2",

	// Governance
	"GovER5Lthms3bLBqWub97yVrMmEogzX7xNjdXpPPCVZw": "Realms Governance",
	"jdaoMN6xD3oSJz4VtCNqUhYHxsDK6EvPeQi14ZFKBuR":  "Jupiter DAO",
}

// accounts maps known high-contention accounts (pools, vaults) to labels.
var accounts = map[string]string{
	"58oQChx4yWmvKdwLLZzBi4ChoCc2fqCUWBkwMihLYQo2": "Raydium SOL-USDC",
	"8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj": "Raydium SOL-USDC AMM",
	"JUPjXmP6pxXbcFqWLt2cxLPPvNhqDqXYX9LMqM16TgP":  "Jupiter Fee Account",
	"7qbRF6YsyGuLUVs6Y1q64bdVrfe4ZcUUz1JRdoVNUJnm": "Orca SOL-USDC Whirlpool",
}

// SystemProgram is the Solana system program ID.
const SystemProgram = "11111111111111111111111111111111"

// ComputeBudgetProgram is the compute-budget program ID.
const ComputeBudgetProgram = "ComputeBudget111111111111111111111111111111"

// ProgramLabel returns the human-readable label for a program ID, if known.
func ProgramLabel(id string) (string, bool) {
	label, ok := programs[id]
	return label, ok
}

// IsKnownProgram reports whether id is a recognized program.
func IsKnownProgram(id string) bool {
	_, ok := programs[id]
	return ok
}

// AccountLabel returns the human-readable label for a known account, if any.
func AccountLabel(pubkey string) (string, bool) {
	label, ok := accounts[pubkey]
	return label, ok
}

// IsInfrastructureProgram reports whether id is one of the programs excluded
// from "first non-infrastructure program" resolution (system + compute budget).
func IsInfrastructureProgram(id string) bool {
	return id == SystemProgram || id == ComputeBudgetProgram
}
