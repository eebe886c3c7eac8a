// internal/app/system/limits/limits.go
package limits

import "time"

// Request body size limits. Bodies past the limit are rejected before
// decoding.
const (
	// MaxJSONBody covers ordinary create/update requests.
	MaxJSONBody = 1 << 20 // 1 MB

	// MaxLessonContentBody covers lesson create/edit, which carry rich text.
	MaxLessonContentBody = 4 << 20 // 4 MB
)

// Text length limits after sanitizing.
const (
	MaxChatMessageLen = 4000
	MaxCommentLen     = 8000
	MaxFeedbackLen    = 8000
)

// Posting limits for chat messages and comments, per user.
const (
	PostsPerWindow = 30
	PostWindow     = time.Minute
)
