// Package idhash computes deterministic record identifiers.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeDeploymentID computes a deterministic deployment_id using SHA256.
// Formula: SHA256(comment_id|token_name|ticker)
// Returns hex-encoded hash (64 characters).
//
// The comment ID alone determines the deployment identity (at most one
// deployment per comment); name and ticker are included so a record can be
// tied back to the exact parsed command.
func ComputeDeploymentID(commentID, tokenName, ticker string) string {
	data := fmt.Sprintf("%s|%s|%s", commentID, tokenName, ticker)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
