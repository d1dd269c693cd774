package srctree

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// Edit replaces the bytes [Lo,Hi) with Text. Gen is the generation of
// the tree the offsets were computed against; Apply rejects the edit on
// any other generation.
type Edit struct {
	Gen  int
	Lo   int
	Hi   int
	Text string
}

func (e Edit) String() string {
	return fmt.Sprintf("gen%d [%d,%d) %q", e.Gen, e.Lo, e.Hi, e.Text)
}

// Insert builds a zero-width edit placing text at offset lo of the tree.
func Insert(t *Tree, lo int, text string) Edit {
	return Edit{Gen: t.Gen, Lo: lo, Hi: lo, Text: text}
}

// Diff renders a unified diff between two generations of the same file.
func Diff(before, after *Tree) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before.Src)),
		B:        difflib.SplitLines(string(after.Src)),
		FromFile: fmt.Sprintf("%s (original)", before.Path),
		ToFile:   fmt.Sprintf("%s (migrated)", after.Path),
		Context:  3,
	})
}
