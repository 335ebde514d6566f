package fix

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/complyscan/complyscan/internal/controls"
)

// A generator turns the analyzed state into a replacement for the
// violating line. ok is false when the code does not match a shape the
// generator can fix.
type generator func(s State) (fixed, explanation string, ok bool)

var generators = map[string]generator{
	controls.AccessControl: fixAccessControl,
	controls.Secrets:       fixSecret,
	controls.AuditLogging:  fixAuditLogging,
	controls.Resilience:    fixResilience,
}

var (
	pyHandlerRe  = regexp.MustCompile(`^\s*def\s+\w+\s*\(`)
	jsRouteRe    = regexp.MustCompile("^(\\s*[\\w.$]+\\.(?:get|post|put|patch|delete|all)\\(\\s*(?:'[^']*'|\"[^\"]*\"|`[^`]*`)\\s*,)")
	assignRe     = regexp.MustCompile(`^(\s*)((?:const\s+|let\s+|var\s+)?)([A-Za-z_][A-Za-z0-9_]*)(\s*[:=]+\s*)(['"][^'"]*['"])(;?)\s*$`)
	calledFuncRe = regexp.MustCompile(`([\w.]+)\s*\(`)
)

func fixAccessControl(s State) (string, string, bool) {
	line := s.original
	if s.Framework.IsPythonFamily() || strings.HasSuffix(s.Violation.FilePath, ".py") {
		if !pyHandlerRe.MatchString(line) {
			return "", "", false
		}
		fixed := s.indent + "@login_required\n" + line
		return fixed, "Added a @login_required decorator so the handler rejects " +
			"unauthenticated requests. Make sure the decorator is imported.", true
	}
	if m := jsRouteRe.FindStringSubmatch(line); m != nil {
		fixed := jsRouteRe.ReplaceAllString(line, "${1} requireAuth,")
		return fixed, "Inserted the requireAuth middleware into the route chain so " +
			"the endpoint verifies the caller before running the handler.", true
	}
	return "", "", false
}

func fixSecret(s State) (string, string, bool) {
	m := assignRe.FindStringSubmatch(s.original)
	if m == nil {
		return "", "", false
	}
	indent, decl, name, eq, semi := m[1], m[2], m[3], m[4], m[6]
	envKey := strings.ToUpper(name)
	var fixed string
	if s.Framework.IsPythonFamily() || strings.HasSuffix(s.Violation.FilePath, ".py") {
		fixed = fmt.Sprintf(`%s%s%sos.environ["%s"]`, indent, name, eq, envKey)
		return fixed, fmt.Sprintf("Replaced the hardcoded value with a lookup of the %s "+
			"environment variable. Add `import os` if missing and provision the "+
			"variable in your deployment environment.", envKey), true
	}
	fixed = fmt.Sprintf("%s%s%s%sprocess.env.%s%s", indent, decl, name, eq, envKey, semi)
	return fixed, fmt.Sprintf("Replaced the hardcoded value with process.env.%s. "+
		"Provision the variable in your deployment environment.", envKey), true
}

func fixAuditLogging(s State) (string, string, bool) {
	op := "data mutation"
	if m := calledFuncRe.FindStringSubmatch(s.original); m != nil {
		op = m[1]
	}
	if s.Framework.IsPythonFamily() || strings.HasSuffix(s.Violation.FilePath, ".py") {
		fixed := s.original + "\n" + s.indent + fmt.Sprintf(`logger.info("audit: %s")`, op)
		return fixed, "Added an audit log entry after the mutating call. Route it to " +
			"your audit sink and include the acting user where available.", true
	}
	fixed := s.original + "\n" + s.indent + fmt.Sprintf(`logger.info("audit: %s");`, op)
	return fixed, "Added an audit log entry after the mutating call. Route it to " +
		"your audit sink and include the acting user where available.", true
}

func fixResilience(s State) (string, string, bool) {
	trimmed := strings.TrimSpace(s.original)
	op := "call"
	if m := calledFuncRe.FindStringSubmatch(trimmed); m != nil {
		op = m[1]
	}
	ind := s.indent
	if s.Framework.IsPythonFamily() || strings.HasSuffix(s.Violation.FilePath, ".py") {
		fixed := ind + "try:\n" +
			ind + "    " + trimmed + "\n" +
			ind + "except Exception:\n" +
			ind + fmt.Sprintf("    logger.exception(\"%s failed\")\n", op) +
			ind + "    raise"
		return fixed, "Wrapped the external call in a try/except block that records " +
			"the failure before propagating it.", true
	}
	fixed := ind + "try {\n" +
		ind + "  " + trimmed + "\n" +
		ind + "} catch (err) {\n" +
		ind + fmt.Sprintf("  logger.error(\"%s failed\", err);\n", op) +
		ind + "  throw err;\n" +
		ind + "}"
	return fixed, "Wrapped the external call in a try/catch block that records " +
		"the failure before propagating it.", true
}
