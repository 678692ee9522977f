package entropy

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"
	"yieldpool/internal/config"

	"github.com/xssnick/tonutils-go/liteclient"
	"github.com/xssnick/tonutils-go/ton"
)

var log = config.InitLogger()

// MasterchainClient is the part of the lite API the source needs.
type MasterchainClient interface {
	CurrentMasterchainInfo(ctx context.Context) (*ton.BlockIDExt, error)
}

// TonSource uses the latest TON masterchain block as entropy. The block is
// unknown before it is produced and public afterwards, so draws can be
// replayed from the recorded seed. A block producer can still bias it.
type TonSource struct {
	api     MasterchainClient
	timeout time.Duration
}

func NewTonSource(api MasterchainClient) *TonSource {
	return &TonSource{api: api, timeout: 10 * time.Second}
}

// DialTon connects to the lite servers listed in the global config at url.
func DialTon(ctx context.Context, url string) (*TonSource, error) {
	client := liteclient.NewConnectionPool()
	cfg, err := liteclient.GetConfigFromUrl(ctx, url)
	if err != nil {
		log.Error("Failed to get ton config: ", err)
		return nil, err
	}
	if err := client.AddConnectionsFromConfig(ctx, cfg); err != nil {
		log.Error("Failed to add connections to config server: ", err)
		return nil, err
	}
	api := ton.NewAPIClient(client)
	api.SetTrustedBlockFromConfig(cfg)
	return NewTonSource(api), nil
}

// Entropy returns seqno || root hash || file hash of the last masterchain block.
func (s *TonSource) Entropy(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	block, err := s.api.CurrentMasterchainInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get masterchain info: %w", err)
	}
	if block == nil || len(block.RootHash) == 0 {
		return nil, fmt.Errorf("masterchain block without root hash")
	}

	out := make([]byte, 4, 4+len(block.RootHash)+len(block.FileHash))
	binary.BigEndian.PutUint32(out, block.SeqNo)
	out = append(out, block.RootHash...)
	out = append(out, block.FileHash...)
	return out, nil
}
