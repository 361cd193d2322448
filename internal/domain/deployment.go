package domain

// DeploymentStatus is the terminal status of a deployment attempt.
type DeploymentStatus string

const (
	DeploymentSuccess DeploymentStatus = "SUCCESS"
	DeploymentFailed  DeploymentStatus = "FAILED"
)

// DeploymentRecord is the durable record of one deployment attempt.
// Corresponds to deployments table in PostgreSQL. Append-only.
type DeploymentRecord struct {
	DeploymentID string // PRIMARY KEY, deterministic hash
	CommentID    string
	CommentText  string
	PostURL      string
	Username     string // creator handle
	TokenName    string
	Ticker       string
	MintAddress  string // empty on failure
	TxSignature  string // empty on failure
	TokenURL     string // public listing URL (pump.fun/<mint>)
	MetadataURI  string // IPFS metadata reference
	ReplyID      string // notification reply ID, empty if reply failed
	Status       DeploymentStatus
	ErrorMessage string // opaque failure detail, empty on success
	DeployedAt   int64  // Unix timestamp in milliseconds
	CreatedAt    int64  // record creation timestamp (ms)
}

// DeploymentStats summarizes the deployment history.
type DeploymentStats struct {
	TotalDeployments      int64
	SuccessfulDeployments int64
	FailedDeployments     int64
	TotalCreators         int64
}
