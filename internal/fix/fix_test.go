package fix

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/complyscan/complyscan/internal/controls"
	"github.com/complyscan/complyscan/internal/types"
)

func violation(controlID, path string, line int) types.Violation {
	return types.Violation{
		ID:         "v-1",
		ControlID:  controlID,
		FilePath:   path,
		LineNumber: line,
		Severity:   types.SevHigh,
	}
}

func TestStepWalksStagesInOrder(t *testing.T) {
	content := "def admin(request):\n    return data\n"
	s := NewState(violation(controls.AccessControl, "views.py", 1), content, types.FrameworkFlask)
	assert.Equal(t, StageParse, s.Stage)

	s = Step(s)
	assert.Equal(t, StageAnalyze, s.Stage)
	s = Step(s)
	assert.Equal(t, StageGenerateFixes, s.Stage)
	s = Step(s)
	assert.Equal(t, StageValidate, s.Stage)
	s = Step(s)
	assert.Equal(t, StageDone, s.Stage)
	assert.False(t, s.Degraded)

	// stepping a done state is a no-op
	assert.Equal(t, s, Step(s))
}

func TestAccessControlPython(t *testing.T) {
	content := "def admin(request):\n    return data\n"
	f := Run(violation(controls.AccessControl, "views.py", 1), content, types.FrameworkDjango)

	assert.Equal(t, types.TrustReview, f.TrustLevel)
	assert.Equal(t, "def admin(request):", f.OriginalCode)
	assert.Equal(t, "@login_required\ndef admin(request):", f.FixedCode)
	assert.Contains(t, f.Explanation, "login_required")
	assert.Nil(t, f.AppliedAt, "fix generation never marks a fix applied")
	assert.Empty(t, f.GitCommitSHA)
}

func TestAccessControlExpress(t *testing.T) {
	content := "app.get('/admin', adminHandler)\n"
	f := Run(violation(controls.AccessControl, "routes.js", 1), content, types.FrameworkExpress)

	assert.Equal(t, types.TrustReview, f.TrustLevel)
	assert.Equal(t, "app.get('/admin', requireAuth, adminHandler)", f.FixedCode)
}

func TestSecretPython(t *testing.T) {
	content := "import os\npassword = \"hunter2\"\n"
	f := Run(violation(controls.Secrets, "settings.py", 2), content, types.FrameworkDjango)

	assert.Equal(t, types.TrustReview, f.TrustLevel)
	assert.Equal(t, `password = os.environ["PASSWORD"]`, f.FixedCode)
	assert.Contains(t, f.Explanation, "PASSWORD")
}

func TestSecretJS(t *testing.T) {
	content := "const apiKey = 'sk-123456';\n"
	f := Run(violation(controls.Secrets, "config.js", 1), content, types.FrameworkExpress)

	assert.Equal(t, types.TrustReview, f.TrustLevel)
	assert.Equal(t, "const apiKey = process.env.APIKEY;", f.FixedCode)
}

func TestAuditLoggingInsertsLogLine(t *testing.T) {
	content := "    user.save()\n"
	f := Run(violation(controls.AuditLogging, "models.py", 1), content, types.FrameworkDjango)

	require.Equal(t, types.TrustReview, f.TrustLevel)
	lines := strings.Split(f.FixedCode, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "    user.save()", lines[0])
	assert.Equal(t, `    logger.info("audit: user.save")`, lines[1])
}

func TestResilienceWrapsPython(t *testing.T) {
	content := "    resp = requests.get(url)\n"
	f := Run(violation(controls.Resilience, "client.py", 1), content, types.FrameworkFlask)

	require.Equal(t, types.TrustReview, f.TrustLevel)
	assert.True(t, strings.HasPrefix(f.FixedCode, "    try:\n"))
	assert.Contains(t, f.FixedCode, "        resp = requests.get(url)")
	assert.Contains(t, f.FixedCode, "    except Exception:")
	assert.Contains(t, f.FixedCode, "raise")
}

func TestResilienceWrapsJS(t *testing.T) {
	content := "  const res = await fetch(url);\n"
	f := Run(violation(controls.Resilience, "client.js", 1), content, types.FrameworkExpress)

	require.Equal(t, types.TrustReview, f.TrustLevel)
	assert.Contains(t, f.FixedCode, "try {")
	assert.Contains(t, f.FixedCode, "} catch (err) {")
	assert.Contains(t, f.FixedCode, "throw err;")
}

func TestDegradesToManual(t *testing.T) {
	cases := []struct {
		name    string
		v       types.Violation
		content string
	}{
		{"line out of range", violation(controls.Secrets, "a.py", 99), "x = 1\n"},
		{"empty file", violation(controls.Secrets, "a.py", 1), ""},
		{"missing file path", violation(controls.Secrets, "", 1), "x = 1\n"},
		{"unfixable shape", violation(controls.Secrets, "a.py", 1), "load_creds()\n"},
		{"unknown control", violation("data-retention", "a.py", 1), "x = 1\n"},
		{"blank violation line", violation(controls.Secrets, "a.py", 1), "\nx = 1\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Run(tc.v, tc.content, types.FrameworkUnknown)
			assert.Equal(t, types.TrustManual, f.TrustLevel)
			assert.Empty(t, f.FixedCode)
			assert.Contains(t, f.Explanation, "Manual remediation required")
		})
	}
}

func TestEveryRunYieldsExactlyOneFix(t *testing.T) {
	f := Run(violation(controls.AccessControl, "views.py", 1), "def f(request):\n", types.FrameworkFlask)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "v-1", f.ViolationID)
}
