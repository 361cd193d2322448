package feed

import "fmt"

// SuccessReply formats the reply posted after a successful token launch.
func SuccessReply(handle, tokenName, ticker, mintAddress, txSignature string) string {
	pumpURL := fmt.Sprintf("https://pump.fun/%s", mintAddress)
	txURL := fmt.Sprintf("https://solscan.io/tx/%s", txSignature)
	return fmt.Sprintf(`✅ Token deployed successfully

🪙 %s ($%s)
%s

🔗 Solana tx
%s

Created via @%s`, tokenName, ticker, pumpURL, txURL, handle)
}

// RejectReply formats the reply posted when a mentioning comment did not
// carry a usable command.
func RejectReply(handle, reason string) string {
	return fmt.Sprintf(`❌ Could not read a deploy command

%s

Use: @%s deploy NAME $TICKER (ticker 3-10 letters/numbers)`, reason, handle)
}

// FailureReply formats the reply posted after a failed launch attempt.
func FailureReply(handle, errorMessage string) string {
	return fmt.Sprintf(`❌ Token deployment failed

Error: %s

Please try again or contact @%s for support.`, errorMessage, handle)
}
