package errkind

import "errors"

// Kind classifies failures for the retry layer and the sync executor.
// Critical kinds abort the run; per-track kinds mark a single track failed;
// non-fatal kinds downgrade a track to partial success.
type Kind int

const (
	Unknown Kind = iota
	Config
	Manifest
	Auth
	SourceTransient
	SourcePermanent
	Resolver
	Download
	Tagger
	Lyrics
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "config"
	case Manifest:
		return "manifest"
	case Auth:
		return "auth"
	case SourceTransient:
		return "source_transient"
	case SourcePermanent:
		return "source_permanent"
	case Resolver:
		return "resolver"
	case Download:
		return "download"
	case Tagger:
		return "tagger"
	case Lyrics:
		return "lyrics"
	default:
		return "unknown"
	}
}

func (k Kind) Critical() bool {
	switch k {
	case Config, Manifest, Auth:
		return true
	default:
		return false
	}
}

func (k Kind) NonFatal() bool {
	return k == Tagger || k == Lyrics
}

type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Of reports the kind recorded on err, or Unknown when err carries none.
func Of(err error) Kind {
	var kerr *Error
	if errors.As(err, &kerr) {
		return kerr.Kind
	}
	return Unknown
}

func Is(err error, kind Kind) bool {
	return Of(err) == kind
}
