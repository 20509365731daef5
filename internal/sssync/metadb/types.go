package metadb

// RefKind distinguishes the kinds of named pointers the refs table can hold.
// The reference design only ever stores Branch, but the column is kept open
// for future kinds (tags, etc.) the way the original schema leaves it a
// free-form string.
type RefKind string

// Branch is the only ref kind the core currently produces.
const Branch RefKind = "branch"

// RemoteKind identifies the transport a Remote's location is resolved with.
type RemoteKind string

const (
	RemoteS3    RemoteKind = "s3"
	RemoteLocal RemoteKind = "local"
)

// StagingKind distinguishes a staged addition from a staged deletion.
type StagingKind string

const (
	StagingAddition StagingKind = "addition"
	StagingDeletion StagingKind = "deletion"
)

// MigrationKind is the direction of blob transfer a Migration performs.
type MigrationKind string

const (
	MigrationUpload   MigrationKind = "upload"
	MigrationDownload MigrationKind = "download"
)

// MigrationState and TransferState share the same vocabulary; transfers add
// no Canceled state because only whole migrations are cancelable.
type MigrationState string

const (
	MigrationWaiting  MigrationState = "waiting"
	MigrationRunning  MigrationState = "running"
	MigrationComplete MigrationState = "complete"
	MigrationCanceled MigrationState = "canceled"
	MigrationFailed   MigrationState = "failed"
)

type TransferState string

const (
	TransferWaiting  TransferState = "waiting"
	TransferRunning  TransferState = "running"
	TransferComplete TransferState = "complete"
	TransferFailed   TransferState = "failed"
)

// Commit is an immutable record naming a flat tree of paths to blobs.
type Commit struct {
	Hash                 string
	Message              string
	Author               string
	CreatedUnixTimestamp int64
	ParentHash           string // empty means no parent
}

// HasParent reports whether c names a parent commit.
func (c Commit) HasParent() bool {
	return c.ParentHash != ""
}

// TreeFile is one path entry of a commit's flattened tree.
type TreeFile struct {
	Path       string
	FileHash   string
	SizeBytes  int64
	CommitHash string
}

// Reference is a named pointer to a commit hash.
type Reference struct {
	Name   string
	Kind   RefKind
	Hash   string
	Remote string // empty means local
}

// Remote describes a configured transfer endpoint.
type Remote struct {
	Name     string
	Kind     RemoteKind
	Location string
}

// StagedFile is the payload of a staged addition.
type StagedFile struct {
	Path                string
	FileHash            string
	SizeBytes           int64
	ModifiedTimeSeconds int64
}

// StagedChange is either a staged addition or a staged deletion, keyed by
// path. Kind discriminates which fields are meaningful: a Deletion carries
// only Path.
type StagedChange struct {
	Kind StagingKind
	StagedFile
}

// Migration is a durable, named batch of per-blob transfers.
type Migration struct {
	ID             int64
	Kind           MigrationKind
	RemoteName     string
	RemoteKind     RemoteKind
	RemoteLocation string
	State          MigrationState
}

// Transfer is a single blob's work item inside a Migration.
type Transfer struct {
	MigrationID int64
	ObjectHash  string
	State       TransferState
	Kind        MigrationKind
}
