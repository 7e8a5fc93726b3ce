package scheduler

import (
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"github.com/vnykmshr/taskflow/internal/testutil"
)

// The package comment embeds a usage example with a cron expression; it must
// stay inside the comment and remain an expression the scheduler accepts.
func TestPackageDocUsageExample(t *testing.T) {
	f, err := parser.ParseFile(token.NewFileSet(), "doc.go", nil, parser.ParseComments)
	testutil.AssertNoError(t, err)

	if f.Doc == nil {
		t.Fatal("doc.go has no package comment")
	}
	doc := f.Doc.Text()
	if !strings.HasPrefix(doc, "Package scheduler ") {
		t.Errorf("package comment starts with %q", strings.SplitN(doc, "\n", 2)[0])
	}
	if !strings.Contains(doc, `"@every 10m"`) {
		t.Fatal("usage example expression missing from package comment")
	}

	s := newTestScheduler(t, Config{})
	testutil.AssertNoError(t, s.ValidateExpression("@every 10m"))
}
