package types

// Network identifies the chain a payment settles on. The value travels in the
// optional X-402-Network header and selects the verifier backend.
type Network string

const (
	// Solana networks
	NetworkMainnetBeta Network = "mainnet-beta"
	NetworkDevnet      Network = "devnet"
	NetworkTestnet     Network = "testnet"

	// EVM networks, for USDC settled off Solana
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia"
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy"
)

// DefaultNetwork is assumed when a challenge omits X-402-Network.
const DefaultNetwork = NetworkMainnetBeta

// EVMChainIDs maps EVM network names to their chain ids.
var EVMChainIDs = map[Network]int64{
	NetworkBase:        8453,
	NetworkBaseSepolia: 84532,
	NetworkPolygon:     137,
	NetworkPolygonAmoy: 80002,
}

func (n Network) IsSolana() bool {
	return n == NetworkMainnetBeta || n == NetworkDevnet || n == NetworkTestnet
}

func (n Network) IsEVM() bool {
	_, ok := EVMChainIDs[n]
	return ok
}

func (n Network) IsTestnet() bool {
	return n == NetworkDevnet || n == NetworkTestnet ||
		n == NetworkBaseSepolia || n == NetworkPolygonAmoy
}

func (n Network) String() string {
	return string(n)
}
