// Package token resolves mint addresses to symbol/name. Resolution never
// fails the caller: unknown mints degrade to a truncated-address placeholder.
package token

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/program/metaplex/tokenmeta"

	"github.com/b9b4ymiN/botwallet/internal/model"
	"github.com/b9b4ymiN/botwallet/internal/solana"
)

// Resolver is the lookup capability handed to the classifier.
type Resolver interface {
	Resolve(ctx context.Context, mintAddress string) model.TokenInfo
}

// knownTokens is the static allow-list fast path.
var knownTokens = map[string]model.TokenInfo{
	"So11111111111111111111111111111111111111112": {Symbol: "SOL", Name: "Solana"},
	"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {Symbol: "USDC", Name: "USD Coin"},
	"Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB": {Symbol: "USDT", Name: "Tether"},
	"JUPyiwrYFCKSxgErm6QdRTxgj4BA6uEjVrDPctE9D2Ad": {Symbol: "JUP", Name: "Jupiter"},
}

// Service resolves mints against the allow-list, then on-chain Metaplex
// metadata, caching what it learns for the process lifetime.
type Service struct {
	client solana.ChainClient
	logger *slog.Logger

	mu       sync.RWMutex
	resolved map[string]model.TokenInfo
}

// NewService creates a resolver backed by the given chain client.
func NewService(client solana.ChainClient, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:   client,
		logger:   logger,
		resolved: make(map[string]model.TokenInfo),
	}
}

// Resolve maps a mint address to token info. Order: allow-list, process
// cache, on-chain metadata, placeholder. Never returns an error.
func (s *Service) Resolve(ctx context.Context, mintAddress string) model.TokenInfo {
	if info, ok := knownTokens[mintAddress]; ok {
		info.Address = mintAddress
		return info
	}

	s.mu.RLock()
	info, ok := s.resolved[mintAddress]
	s.mu.RUnlock()
	if ok {
		return info
	}

	if info, ok := s.fetchMetadata(ctx, mintAddress); ok {
		s.mu.Lock()
		s.resolved[mintAddress] = info
		s.mu.Unlock()
		return info
	}

	return placeholder(mintAddress)
}

// fetchMetadata reads the Metaplex metadata PDA for the mint.
func (s *Service) fetchMetadata(ctx context.Context, mintAddress string) (model.TokenInfo, bool) {
	mint := common.PublicKeyFromString(mintAddress)
	metadataPDA, err := tokenmeta.GetTokenMetaPubkey(mint)
	if err != nil {
		s.logger.Warn("metadata PDA derivation failed", "mint", mintAddress, "err", err)
		return model.TokenInfo{}, false
	}

	data, err := s.client.GetAccountInfo(ctx, metadataPDA.ToBase58())
	if err != nil {
		s.logger.Warn("metadata account fetch failed", "mint", mintAddress, "err", err)
		return model.TokenInfo{}, false
	}
	if data == nil {
		return model.TokenInfo{}, false
	}

	meta, err := tokenmeta.MetadataDeserialize(data)
	if err != nil {
		s.logger.Warn("metadata decode failed", "mint", mintAddress, "err", err)
		return model.TokenInfo{}, false
	}

	symbol := cleanMetaString(meta.Data.Symbol)
	if symbol == "" {
		return model.TokenInfo{}, false
	}
	return model.TokenInfo{
		Symbol:  symbol,
		Name:    cleanMetaString(meta.Data.Name),
		Address: mintAddress,
	}, true
}

// Metaplex strings are fixed-width, NUL padded.
func cleanMetaString(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "\x00", ""))
}

func placeholder(mintAddress string) model.TokenInfo {
	short := mintAddress
	if len(short) > 4 {
		short = short[:4]
	}
	return model.TokenInfo{Symbol: short + "...", Address: mintAddress}
}
