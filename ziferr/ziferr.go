// Package ziferr defines the sentinel error taxonomy shared across the
// release-upgrade engine. Callers match kinds with errors.Is/errors.As;
// callers that need the underlying cause unwrap further with errors.Cause.
package ziferr

import "fmt"

// Kind identifies the category of a failure, independent of the message
// wrapped around it.
type Kind int

const (
	// Unknown is the zero value; never returned deliberately.
	Unknown Kind = iota
	// DownloadFailed covers any failure fetching a remote resource after
	// mirrors are exhausted.
	DownloadFailed
	// InvalidMetadata covers malformed repomd.xml, metalink, treeinfo or
	// releases.txt content.
	InvalidMetadata
	// LowDiskSpace is returned by preflight checks when a target
	// filesystem lacks the required free space.
	LowDiskSpace
	// NotFound covers missing files, missing releases, missing packages.
	NotFound
	// NotSupported covers operations a given Kind of upgrade does not
	// perform (e.g. filesystem checks in Minimal mode).
	NotSupported
	// NoUuidForRoot is returned when blkid cannot resolve a UUID for the
	// root filesystem device.
	NoUuidForRoot
	// SetupInvalid covers preflight contract violations (unset config,
	// invalid combination of options).
	SetupInvalid
	// SpawnFailed covers a failure starting or running an external tool.
	SpawnFailed
	// WriteFailed covers failures writing local files (kickstart, boot
	// entries, repo metadata).
	WriteFailed
	// Cancelled is returned when a progress.Node's cancellation token has
	// fired.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case DownloadFailed:
		return "download failed"
	case InvalidMetadata:
		return "invalid metadata"
	case LowDiskSpace:
		return "low disk space"
	case NotFound:
		return "not found"
	case NotSupported:
		return "not supported"
	case NoUuidForRoot:
		return "no uuid for root"
	case SetupInvalid:
		return "setup invalid"
	case SpawnFailed:
		return "spawn failed"
	case WriteFailed:
		return "write failed"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Error pairs a Kind with the underlying cause. The cause is typically
// already annotated with github.com/pkg/errors context by the caller.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Cause returns the wrapped cause, so github.com/pkg/errors.Cause walks
// through an *Error to the underlying error.
func (e *Error) Cause() error { return e.Err }

// Is allows errors.Is(err, ziferr.Sentinel(kind)) by comparing Kind when
// the target is also an *Error; the target's wrapped cause is ignored.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New constructs an *Error of the given Kind wrapping err.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Sentinel returns a comparable *Error with no wrapped cause, suitable as
// an errors.Is target: ziferr.Is(err, ziferr.LowDiskSpace).
func Sentinel(kind Kind) *Error { return &Error{Kind: kind} }

// Is reports whether err's chain contains an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			if e.Kind == kind {
				return true
			}
			err = e.Err
			continue
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// LowDiskSpaceDetail carries the specific numbers for a LowDiskSpace
// failure so callers can render a precise message.
type LowDiskSpaceDetail struct {
	Path      string
	Required  uint64
	Available uint64
}

func (d *LowDiskSpaceDetail) Error() string {
	return fmt.Sprintf("%s: need %d bytes free, have %d", d.Path, d.Required, d.Available)
}
