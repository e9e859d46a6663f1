package entities

// IssueType classifies the problem a patch resolves
type IssueType string

// Issue types
const (
	IssueDefect      IssueType = "defect"
	IssueEnhancement IssueType = "enhancement"
)

// Issue is the problem a local patch addresses
type Issue struct {
	Type        IssueType
	Name        string
	Description string

	// SourceName and SourceURL point at the upstream report, if any
	SourceName string
	SourceURL  string
}

// Patch is a local modification applied on top of a dependency
type Patch struct {
	// Path is slash separated and relative to the source directory
	Path    string
	Content string

	// URL links Path in the project repository
	URL   string
	Issue *Issue
}

// Commit is a git format-patch file carried by the port
type Commit struct {
	UID         string
	URL         string
	AuthorName  string
	AuthorEmail string
	Message     string
}

// SourceArchive is a prebuilt archive a subproject downloads
type SourceArchive struct {
	Name   string
	URL    string
	SHA256 string
}
