package networks

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

type ProbeResult struct {
	RPCURL        string `json:"rpcUrl"`
	ChainIDHex    string `json:"chainIdHex"`
	ClientVersion string `json:"clientVersion,omitempty"`
	LatestBlock   uint64 `json:"latestBlock,omitempty"`
}

const probeTimeout = 7 * time.Second

// ProbeRPC asks an RPC endpoint which chain it serves. Only eth_chainId is
// required; the other fields are best effort.
func ProbeRPC(ctx context.Context, rpcURL string) (ProbeResult, error) {
	out := ProbeResult{RPCURL: strings.TrimSpace(rpcURL)}
	if out.RPCURL == "" {
		return out, errors.New("missing rpcUrl")
	}

	u, err := url.Parse(out.RPCURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return out, errors.Newf("invalid rpcUrl %q", out.RPCURL)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return out, errors.Newf("unsupported rpcUrl scheme: %s", u.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	client, err := rpc.DialContext(ctx, out.RPCURL)
	if err != nil {
		return out, errors.Wrapf(err, "dial %s", out.RPCURL)
	}
	defer client.Close()

	var chainID hexutil.Big
	if err := client.CallContext(ctx, &chainID, "eth_chainId"); err != nil {
		return out, errors.Wrap(err, "eth_chainId")
	}
	out.ChainIDHex = NormalizeChainIDHex(chainID.String())

	var clientVersion string
	if err := client.CallContext(ctx, &clientVersion, "web3_clientVersion"); err == nil {
		out.ClientVersion = strings.TrimSpace(clientVersion)
	}

	var block hexutil.Uint64
	if err := client.CallContext(ctx, &block, "eth_blockNumber"); err == nil {
		out.LatestBlock = uint64(block)
	}

	return out, nil
}
