package transcript

import (
	"strings"

	"github.com/voxnote/voxnote/internal/store"
)

// Merge joins slice texts in chunk order into a single transcript string.
// Slices must already be ordered by chunk index. Runs of whitespace are
// collapsed to single spaces, so empty slices never leave gaps behind.
func Merge(slices []*store.Slice) string {
	parts := make([]string, 0, len(slices))
	for _, sl := range slices {
		parts = append(parts, sl.Text)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
