package catalog

// staticSchema is a hand-authored description and input schema for a known
// tool. Tools absent from this table fall back to a permissive generic
// schema and stay callable without argument validation.
type staticSchema struct {
	description string
	properties  map[string]any
	required    []string
}

func prop(typ, desc string) map[string]any {
	return map[string]any{"type": typ, "description": desc}
}

// amount fields accept both string and number so callers can pass wei
// values that exceed float precision as strings
func amountProp(desc string) map[string]any {
	return map[string]any{"type": []string{"string", "number"}, "description": desc}
}

func chainProp(desc string) map[string]any {
	return map[string]any{
		"type":        "string",
		"enum":        []string{"mainnet", "testnet"},
		"description": desc,
	}
}

var staticSchemas = map[string]staticSchema{
	"signer_create-wallet": {
		description: "Create a new wallet in the local keystore. Automatically enables chain operations without exposing the private key. Uses SIGNER_PASSWORD from environment for encryption. Returns wallet label and address only.",
		properties: map[string]any{
			"label": prop("string", "Unique label/name for the wallet"),
		},
		required: []string{"label"},
	},
	"signer_import-private-key": {
		description: "Import an existing private key into the local keystore. Uses SIGNER_PASSWORD from environment for encryption. (development only)",
		properties: map[string]any{
			"label":       prop("string", "Unique label/name for the wallet"),
			"private-key": prop("string", "Private key to import (hex format)"),
		},
		required: []string{"label", "private-key"},
	},
	"signer_list-wallets": {
		description: "List all wallets in the local keystore. Returns array of wallets with labels and addresses.",
		properties:  map[string]any{},
	},
	"signer_get-address": {
		description: "Get the address for a wallet by label",
		properties: map[string]any{
			"label": prop("string", "Wallet label to look up"),
		},
		required: []string{"label"},
	},
	"signer_sign-tx": {
		description: "Sign a transaction and return the raw signed transaction hex. Uses SIGNER_PASSWORD from environment.",
		properties: map[string]any{
			"label": prop("string", "Wallet label to sign with"),
			"tx":    prop("string", "JSON transaction object to sign"),
		},
		required: []string{"label", "tx"},
	},
	"signer_send-tx": {
		description: "Sign and broadcast a transaction, or broadcast a pre-signed raw transaction. Uses SIGNER_PASSWORD from environment.",
		properties: map[string]any{
			"label": prop("string", "Wallet label to sign with (not required if providing raw)"),
			"tx":    prop("string", "JSON transaction object to sign (not required if providing raw)"),
			"raw":   prop("string", "Pre-signed raw transaction hex (if already signed)"),
			"chain": chainProp("Which chain to broadcast to (default: mainnet)"),
		},
	},
	"signer_sign-typed-data": {
		description: "Sign EIP-712 typed data (for permit signatures, etc). Uses SIGNER_PASSWORD from environment.",
		properties: map[string]any{
			"label":      prop("string", "Wallet label to sign with"),
			"typed-data": prop("string", "JSON EIP-712 typed data to sign"),
		},
		required: []string{"label", "typed-data"},
	},
	"bsc_get-balance": {
		description: "Get native BNB balance for an address on BSC",
		properties: map[string]any{
			"address": prop("string", "Wallet address to check (0x... format)"),
			"chain":   chainProp("Which BSC network to query (default: mainnet)"),
		},
		required: []string{"address"},
	},
	"bsc_get-token-balance": {
		description: "Get ERC-20 token balance for an address on BSC",
		properties: map[string]any{
			"address": prop("string", "Wallet address to check (0x... format)"),
			"token":   prop("string", "Token contract address (0x... format)"),
			"chain":   chainProp("Which BSC network to query (default: mainnet)"),
		},
		required: []string{"address", "token"},
	},
	"bsc_allowance": {
		description: "Get ERC-20 token allowance for an owner/spender pair",
		properties: map[string]any{
			"token":   prop("string", "Token contract address (0x... format)"),
			"owner":   prop("string", "Token owner address (0x... format)"),
			"spender": prop("string", "Spender address to check allowance for (0x... format)"),
			"chain":   chainProp("Which BSC network to query (default: mainnet)"),
		},
		required: []string{"token", "owner", "spender"},
	},
	"bsc_approve": {
		description: "Approve an ERC-20 token spender for a specific amount. Uses the wallet's private key from environment.",
		properties: map[string]any{
			"token":          prop("string", "Token contract address (0x... format)"),
			"spender":        prop("string", "Spender address to approve (0x... format)"),
			"amount":         amountProp("Amount to approve in the token's smallest unit"),
			"broadcast":      prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional, uses network gas price if not provided)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"token", "spender", "amount"},
	},
	"bsc_send-native": {
		description: "Send native BNB to an address. Uses the wallet's private key from environment.",
		properties: map[string]any{
			"to":             prop("string", "Recipient address (0x... format)"),
			"amount-eth":     amountProp("Amount to send in BNB (e.g., 0.01 for 0.01 BNB)"),
			"broadcast":      prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional, uses network gas price if not provided)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"to", "amount-eth"},
	},
	"bsc_send-erc20": {
		description: "Send ERC-20 tokens to an address. Uses the wallet's private key from environment.",
		properties: map[string]any{
			"token":          prop("string", "Token contract address (0x... format)"),
			"to":             prop("string", "Recipient address (0x... format)"),
			"amount":         amountProp("Amount to send in the token's smallest unit"),
			"broadcast":      prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional, uses network gas price if not provided)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"token", "to", "amount"},
	},
	"bsc_gas-price": {
		description: "Get current gas price on the BSC network",
		properties: map[string]any{
			"chain": chainProp("Which BSC network to query (default: mainnet)"),
		},
	},
	"bsc_wrap-bnb": {
		description: "Wrap native BNB to WBNB. Required before adding liquidity on PancakeSwap with BNB pairs.",
		properties: map[string]any{
			"amount":         amountProp("Amount of native BNB to wrap in wei"),
			"broadcast":      prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"amount"},
	},
	"bsc_unwrap-bnb": {
		description: "Unwrap WBNB back to native BNB. Use after selling tokens to convert WBNB to spendable BNB.",
		properties: map[string]any{
			"amount":         amountProp("Amount of WBNB to unwrap in wei"),
			"broadcast":      prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"amount"},
	},
	"bsc_nonce": {
		description: "Get transaction count (nonce) for an address on BSC",
		properties: map[string]any{
			"address": prop("string", "Wallet address to check (0x... format)"),
			"chain":   chainProp("Which BSC network to query (default: mainnet)"),
		},
		required: []string{"address"},
	},
	"pancakeswap_get-pair-info": {
		description: "Get PancakeSwap V2 pair address and reserves for a token pair. For BNB pairs, use the WBNB contract address.",
		properties: map[string]any{
			"token-a": prop("string", "First token contract address (0x... format)"),
			"token-b": prop("string", "Second token contract address (0x... format)"),
			"chain":   chainProp("Which BSC network to query (default: mainnet)"),
		},
		required: []string{"token-a", "token-b"},
	},
	"pancakeswap_quote-out": {
		description: "Quote output amount for a swap given an input amount. Useful for price checking before swapping. For BNB swaps, use the WBNB contract address.",
		properties: map[string]any{
			"amount-in": amountProp("Input amount in the token's smallest unit"),
			"token-in":  prop("string", "Input token contract address (0x... format)"),
			"token-out": prop("string", "Output token contract address (0x... format)"),
			"path":      prop("string", "JSON array of token addresses for a multi-hop swap"),
			"chain":     chainProp("Which BSC network to query (default: mainnet)"),
		},
		required: []string{"amount-in"},
	},
	"pancakeswap_quote-in": {
		description: "Quote required input amount for a swap given a desired output amount. Useful for exact-output swaps. For BNB swaps, use the WBNB contract address.",
		properties: map[string]any{
			"amount-out": amountProp("Desired output amount in the token's smallest unit"),
			"token-in":   prop("string", "Input token contract address (0x... format)"),
			"token-out":  prop("string", "Output token contract address (0x... format)"),
			"path":       prop("string", "JSON array of token addresses for a multi-hop swap"),
			"chain":      chainProp("Which BSC network to query (default: mainnet)"),
		},
		required: []string{"amount-out"},
	},
	"pancakeswap_swap-auto": {
		description: "Smart swap with native BNB support. When the path starts with WBNB the tool uses the native BNB balance directly; token-to-token swaps handle approvals automatically. Recalculates the minimum output from a fresh quote plus slippage.",
		properties: map[string]any{
			"amount-in":      amountProp("Exact input amount in the token's smallest unit"),
			"path":           prop("string", "JSON array of token addresses defining the swap path"),
			"to":             prop("string", "Recipient address for output tokens (0x... format)"),
			"slippage":       prop("number", "Slippage tolerance percentage (1-3% stablecoins, 5-10% major tokens, 20-30% small-cap tokens)"),
			"amount-out-min": amountProp("Ignored; always recalculated from a fresh quote plus slippage"),
			"broadcast":      prop("boolean", "Whether to broadcast transactions (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"amount-in", "path", "to"},
	},
	"pancakeswap_swap-exact-tokens": {
		description: "Advanced manual swap for exact tokens. Requires manual approval and slippage calculation; most callers should use swap-auto instead.",
		properties: map[string]any{
			"amount-in":      amountProp("Exact input amount in the token's smallest unit"),
			"amount-out-min": amountProp("Minimum output amount for slippage protection, calculated from a quote-out result"),
			"path":           prop("string", "JSON array of token addresses defining the swap path"),
			"to":             prop("string", "Recipient address for output tokens (0x... format)"),
			"broadcast":      prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional, uses network gas price if not provided)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"amount-in", "path", "to"},
	},
	"pancakeswap_add-liquidity-v2": {
		description: "Add liquidity to a PancakeSwap V2 pair with automatic approval handling for both tokens. For BNB pairs, use the WBNB contract address.",
		properties: map[string]any{
			"token-a":          prop("string", "First token contract address (0x... format)"),
			"token-b":          prop("string", "Second token contract address (0x... format)"),
			"amount-a-desired": amountProp("Desired amount of token A in smallest unit"),
			"amount-b-desired": amountProp("Desired amount of token B in smallest unit"),
			"amount-a-min":     amountProp("Minimum amount of token A (slippage protection, default: 0)"),
			"amount-b-min":     amountProp("Minimum amount of token B (slippage protection, default: 0)"),
			"to":               prop("string", "Recipient address for LP tokens (0x... format)"),
			"broadcast":        prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei":   prop("number", "Gas price in Gwei (optional)"),
			"chain":            chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"token-a", "token-b", "amount-a-desired", "amount-b-desired", "to"},
	},
	"pancakeswap_remove-liquidity-v2": {
		description: "Remove liquidity from a PancakeSwap V2 pair. For BNB pairs, use the WBNB contract address.",
		properties: map[string]any{
			"token-a":        prop("string", "First token contract address (0x... format)"),
			"token-b":        prop("string", "Second token contract address (0x... format)"),
			"liquidity":      amountProp("Amount of LP tokens to burn"),
			"amount-a-min":   amountProp("Minimum amount of token A to receive (slippage protection, default: 0)"),
			"amount-b-min":   amountProp("Minimum amount of token B to receive (slippage protection, default: 0)"),
			"to":             prop("string", "Recipient address for withdrawn tokens (0x... format)"),
			"broadcast":      prop("boolean", "Whether to broadcast transaction (default: true)"),
			"gas-price-gwei": prop("number", "Gas price in Gwei (optional)"),
			"chain":          chainProp("Which BSC network to use (default: mainnet)"),
		},
		required: []string{"token-a", "token-b", "liquidity", "to"},
	},
	"coinmarketcap_get-price": {
		description: "Get latest price and market data for a cryptocurrency: price, volume, market cap, price changes, supply data, and rank.",
		properties: map[string]any{
			"symbol":  prop("string", "Cryptocurrency symbol (e.g., BTC, ETH, BNB). Use this OR slug, not both."),
			"slug":    prop("string", "Cryptocurrency slug (e.g., bitcoin, ethereum). Use this OR symbol, not both."),
			"convert": prop("string", "Currency to convert to (default: USD). Examples: USD, EUR, BTC"),
		},
	},
	"coinmarketcap_get-info": {
		description: "Get comprehensive information about a cryptocurrency: description, website, social links, contract addresses, platform info, tags, and market data.",
		properties: map[string]any{
			"symbol":  prop("string", "Cryptocurrency symbol (e.g., BTC, ETH, BNB). Use this OR slug, not both."),
			"slug":    prop("string", "Cryptocurrency slug (e.g., bitcoin, ethereum). Use this OR symbol, not both."),
			"convert": prop("string", "Currency to convert to for price data (default: USD). Examples: USD, EUR, BTC"),
		},
	},
	"coinmarketcap_search": {
		description: "Search for cryptocurrencies by name or symbol.",
		properties: map[string]any{
			"query": prop("string", "Search query (cryptocurrency name or symbol)"),
			"limit": amountProp("Maximum number of results to return (default: 10)"),
		},
		required: []string{"query"},
	},
	"coinmarketcap_global-metrics": {
		description: "Get global cryptocurrency market metrics including total market cap, volume, and BTC dominance.",
		properties: map[string]any{
			"convert": prop("string", "Currency to convert to (default: USD). Examples: USD, EUR, BTC"),
		},
	},
}
