package storage

import (
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/alnah/go-html2pdf/internal/fileutil"
)

// fallbackStem names files whose source yields no usable characters.
const fallbackStem = "document"

// NewName builds "<ulid>-<sanitized stem><ext>".
// The ULID encodes now at millisecond precision followed by monotonic
// entropy, so names sort by creation time and never collide within a process.
func NewName(now time.Time, stem, ext string) string {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy())
	return strings.ToLower(id.String()) + "-" + fileutil.SanitizeName(stem, fallbackStem) + ext
}
