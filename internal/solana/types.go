package solana

import "encoding/json"

// JSON-RPC envelope types.

type request struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a typed JSON-RPC error. The retry package classifies it as
// transient or terminal from the code, so callers never have to pattern
// match on message text.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return e.Message
}

// SignatureInfo is one entry from getSignaturesForAddress.
type SignatureInfo struct {
	Signature string      `json:"signature"`
	Slot      int64       `json:"slot"`
	BlockTime *int64      `json:"blockTime"`
	Err       interface{} `json:"err"`
}

// Transaction is the decoded getTransaction payload: the parts of a
// jsonParsed transaction the tracker actually consumes, validated at this
// boundary so the rest of the core never touches loosely-typed payloads.
type Transaction struct {
	Slot        int64
	BlockTime   *int64
	AccountKeys []string
	Meta        *TransactionMeta
}

// Failed reports whether the transaction recorded an on-chain error.
func (t *Transaction) Failed() bool {
	return t.Meta == nil || t.Meta.Err != nil
}

// TransactionMeta carries pre/post balance snapshots.
type TransactionMeta struct {
	Err               interface{}    `json:"err"`
	Fee               uint64         `json:"fee"`
	PreBalances       []int64        `json:"preBalances"`
	PostBalances      []int64        `json:"postBalances"`
	PreTokenBalances  []TokenBalance `json:"preTokenBalances"`
	PostTokenBalances []TokenBalance `json:"postTokenBalances"`
	LogMessages       []string       `json:"logMessages"`
}

// TokenBalance is one SPL token-account balance snapshot entry.
type TokenBalance struct {
	AccountIndex  int           `json:"accountIndex"`
	Mint          string        `json:"mint"`
	Owner         string        `json:"owner"`
	UITokenAmount UITokenAmount `json:"uiTokenAmount"`
}

// UITokenAmount is the human-scaled amount attached to a token balance.
type UITokenAmount struct {
	UIAmount *float64 `json:"uiAmount"`
	Decimals int      `json:"decimals"`
	Amount   string   `json:"amount"`
}

// Value returns the scaled amount, 0 when the node omitted it.
func (a UITokenAmount) Value() float64 {
	if a.UIAmount == nil {
		return 0
	}
	return *a.UIAmount
}

// TokenAccount is one token account returned by getTokenAccountsByOwner.
type TokenAccount struct {
	Pubkey   string
	UIAmount float64
}

// Raw wire shapes for jsonParsed payloads, decoded only inside this package.

type rawTransaction struct {
	Slot        int64  `json:"slot"`
	BlockTime   *int64 `json:"blockTime"`
	Transaction struct {
		Message struct {
			AccountKeys []struct {
				Pubkey string `json:"pubkey"`
			} `json:"accountKeys"`
		} `json:"message"`
	} `json:"transaction"`
	Meta *TransactionMeta `json:"meta"`
}

type rawTokenAccounts struct {
	Value []struct {
		Pubkey  string `json:"pubkey"`
		Account struct {
			Data struct {
				Parsed struct {
					Info struct {
						TokenAmount UITokenAmount `json:"tokenAmount"`
					} `json:"info"`
				} `json:"parsed"`
			} `json:"data"`
		} `json:"account"`
	} `json:"value"`
}

type rawBalance struct {
	Value int64 `json:"value"`
}

type rawAccountInfo struct {
	Value *struct {
		Data []string `json:"data"` // [base64 payload, "base64"]
	} `json:"value"`
}
