package univ3

// Minimal ABI fragments: QuoterV2.quoteExactInputSingle for simulated
// quotes and SwapRouter.exactInputSingle for execution.

const quoterV2ABI = `[
  {"inputs":[{"components":[
     {"internalType":"address","name":"tokenIn","type":"address"},
     {"internalType":"address","name":"tokenOut","type":"address"},
     {"internalType":"uint256","name":"amountIn","type":"uint256"},
     {"internalType":"uint24","name":"fee","type":"uint24"},
     {"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
   "internalType":"struct IQuoterV2.QuoteExactInputSingleParams","name":"params","type":"tuple"}],
   "name":"quoteExactInputSingle",
   "outputs":[
     {"internalType":"uint256","name":"amountOut","type":"uint256"},
     {"internalType":"uint160","name":"sqrtPriceX96After","type":"uint160"},
     {"internalType":"uint32","name":"initializedTicksCrossed","type":"uint32"},
     {"internalType":"uint256","name":"gasEstimate","type":"uint256"}],
   "stateMutability":"nonpayable","type":"function"}
]`

const routerABI = `[
  {"inputs":[{"components":[
     {"internalType":"address","name":"tokenIn","type":"address"},
     {"internalType":"address","name":"tokenOut","type":"address"},
     {"internalType":"uint24","name":"fee","type":"uint24"},
     {"internalType":"address","name":"recipient","type":"address"},
     {"internalType":"uint256","name":"deadline","type":"uint256"},
     {"internalType":"uint256","name":"amountIn","type":"uint256"},
     {"internalType":"uint256","name":"amountOutMinimum","type":"uint256"},
     {"internalType":"uint160","name":"sqrtPriceLimitX96","type":"uint160"}],
   "internalType":"struct ISwapRouter.ExactInputSingleParams","name":"params","type":"tuple"}],
   "name":"exactInputSingle",
   "outputs":[{"internalType":"uint256","name":"amountOut","type":"uint256"}],
   "stateMutability":"payable","type":"function"}
]`
