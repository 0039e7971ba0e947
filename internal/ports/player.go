package ports

import (
	"context"

	"github.com/mizukiro/anibridge/internal/domain"
)

// EndReason is how a playback ended, as reported by a backend.
type EndReason string

const (
	EndFinished  EndReason = "finished"
	EndDismissed EndReason = "dismissed"
	EndError     EndReason = "error"
)

// PlayerBackend is the contract any rendering player (native player, overlay
// player, external app, cast receiver) must satisfy for the session
// coordinator to drive it. The coordinator never cares which one renders.
type PlayerBackend interface {
	// Play starts (or hands off) playback. ResumeSeconds > 0 means the
	// backend must seek there before entering steady playback.
	Play(ctx context.Context, req domain.PlaybackRequest) error

	// Position reports the current playhead. ok is false while the backend
	// has no finite duration yet; callers skip that sample.
	Position() (currentSeconds, durationSeconds float64, ok bool)

	Seek(seconds float64) error

	// Done delivers exactly one EndReason per Play, then the channel is
	// replaced on the next Play.
	Done() <-chan EndReason

	Stop()
}

// CastPayload is the data contract handed to a cast receiver. The cast SDK
// session lifecycle itself lives outside this module.
type CastPayload struct {
	MediaURL      string  `json:"mediaUrl"`
	ContentType   string  `json:"contentType"`
	Title         string  `json:"title"`
	Subtitle      string  `json:"subtitle,omitempty"`
	ThumbnailURL  string  `json:"thumbnailUrl,omitempty"`
	ResumeSeconds float64 `json:"resumeSeconds"`
}

// DownloadRequest is the data contract handed to an external download
// manager. File I/O is out of scope here.
type DownloadRequest struct {
	URL      string
	Title    string
	Progress func(fraction float64)
	Done     func(err error)
}

type DownloadManager interface {
	Enqueue(ctx context.Context, req DownloadRequest) error
}
