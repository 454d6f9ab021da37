package library

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeFilenameReplacesUnsafeChars(t *testing.T) {
	require.Equal(t, "a_b_c_d_e_f_g_h_i_j.pdf", SanitizeFilename(`a<b>c:d"e/f\g|h?i*j.pdf`))
}

func TestSanitizeFilenameCollapsesWhitespace(t *testing.T) {
	require.Equal(t, "my_book_title.epub", SanitizeFilename("my  book \t title.epub"))
}

func TestSanitizeFilenameCapsLength(t *testing.T) {
	long := strings.Repeat("x", 150) + ".pdf"
	got := SanitizeFilename(long)
	require.Len(t, []rune(got), 100)
}

func TestSanitizeFilenameKeepsPlainNames(t *testing.T) {
	require.Equal(t, "report.pdf", SanitizeFilename("report.pdf"))
}
