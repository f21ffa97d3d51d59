// Package dex holds the static registry of known DEX program IDs on Solana.
// The live tracker uses it to decide whether a transaction involved a swap
// venue at all before running balance-delta analysis.
package dex

// programsByDEX maps venue name to its known program accounts.
var programsByDEX = map[string][]string{
	"Jupiter": {
		"JUP2jxvXaqu7NQY1GmNF4m1vodw12LVXYxbFL2uJvfo",
		"JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4",
		"JUP4Fb2cqiRUcaTHdrPC8h2gNsA2ETXiPDD33WcGuJB",
		"JSW99DKmxNyREQM14SQLDykeBvEUG63TeohrvmofEiw",
	},
	"Daos": {"5jnapfrAN47UYkLkEf7HnprPPBCQLvkYWGZDeKkaP5hv"},
	"Orca": {
		"whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc",
		"9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP",
	},
	"Meteora": {
		"Eo7WjKq67rjJQSZxS6z3YkapzY3eMj6Xy8X5EQVn5UaB",
		"LBUZKhRxPF3XUpBCjp4YzTKgLccjZhTSDM9YuVaPwxo",
	},
	"Raydium": {
		"routeUGWgWzqBWFcrCfv8tritsqukccJPu3q5GPP3xS",
		"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8",
		"CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK",
		"5quBtoiQqxF9Jv6KYKctB59NT3gtJD2Y65kdnB1Uev3h",
		"CPMMoo8L3F4NbTegBCKVNunggL7H1ZpdTHKxQB5qKP1C",
	},
	"BlazeStake": {"SPoo1Ku8WFXoNDMHPsrGSTSG1Y47rzgn41SLUNakuHy"},
	"Photon":     {"BSfD6SHZigAfDWSjzD5Q41jw8LmKwtmjskPH9XW1mrRW"},
	"Pump": {
		"6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P",
		"pAMMBay6oceH9fJKBRHGP5D4bD4sWpmSwMn52FMfXEA",
	},
	"Moonshot": {"MoonCVVNZFSYkqNXP6bxHLPL6QQJiMagDL3qcqUQTrG"},
	"ApePro":   {"JSW99DKmxNyREQM14SQLDykeBvEUG63TeohrvmofEiw"},
	"Unknown": {
		"6gaWw2aeS8osc6kEVYckkgFzsdwfaV8rpiDHvFdaw9oc",
		"Evo1ve6p41CUZSdh7WCofrStMdhzUKAVcjWDNhet9Nkp",
		"MaestroAAe9ge5HTc64VbBQZ6fP77pwvrhM8i1XWSAx",
		"6m2CDdhRgxpH4WjvdzxAYbGxwdGUz5MziiL5jek2kBma",
		"b1oomGGqPKGD6errbyfbVMBuzSC8WtAAYo8MwNafWW1",
		"j1o2qRpjcyUwEvwtcfhEQefh773ZgjxcVRry7LDqg5X",
		"AMM55ShdkoGRB5jVYPjWziwk8m5MpwyDgsMWHaMSQWH6",
		"SSwpkEEcbUqx4vtoEByFjSkhKdCT862DNVb52nZg1UZ",
		"PSwapMdSai8tjrEXcxFeQth87xC4rRsa4VA5mhGhXkP",
		"SSwapUtytfBdBn1b9NUGG6foMVPtcWgpRU32HToDUZr",
		"MERLuDFBMmsHnsBPZw2sDQZHvXFMwp8EdjudcU2HKky",
		"BXxgGt3akAghZviYHLh8KUh6vhXBht5wf86De6huTp95",
	},
}

// nameByProgram is the reverse index, built once at init.
var nameByProgram = func() map[string]string {
	m := make(map[string]string)
	for name, programs := range programsByDEX {
		for _, p := range programs {
			// First registration wins; ApePro shares a program with Jupiter.
			if _, ok := m[p]; !ok {
				m[p] = name
			}
		}
	}
	return m
}()

// Name returns the venue name for a program ID, or "Unknown DEX" when the
// program is not registered.
func Name(programID string) string {
	if name, ok := nameByProgram[programID]; ok {
		return name
	}
	return "Unknown DEX"
}

// IsProgram reports whether the program ID belongs to a known DEX.
func IsProgram(programID string) bool {
	_, ok := nameByProgram[programID]
	return ok
}

// FirstProgram returns the first known DEX program among the given account
// keys, or "" when none is present.
func FirstProgram(accountKeys []string) string {
	for _, key := range accountKeys {
		if IsProgram(key) {
			return key
		}
	}
	return ""
}
