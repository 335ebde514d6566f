package rules

import (
	"regexp"

	"github.com/complyscan/complyscan/internal/types"
)

// patternSet holds the compiled patterns one detector family operates on.
// Families are Python-style (Django, Flask) and JS-style (Express,
// Next/React); per-framework sets differ only in their auth markers.
type patternSet struct {
	// access control
	routeDef   *regexp.Regexp // handler definition taking a request-like parameter
	authMarker *regexp.Regexp // auth decorator/middleware on the preceding line(s)
	inlineAuth *regexp.Regexp // auth reference on the definition line itself

	// secrets
	secretAssign *regexp.Regexp // credential-named assignment with a string literal RHS
	providerKey  *regexp.Regexp // recognizable provider key prefixes
	envLookup    *regexp.Regexp // environment lookups are not hardcoded secrets

	// audit logging
	mutationCall *regexp.Regexp // create/update/delete style calls and raw SQL mutations
	loggingCall  *regexp.Regexp

	// resilience
	outboundCall *regexp.Regexp // network/database calls
	errorBlock   *regexp.Regexp // try:/try { opener in the lookback window
	errorInline  *regexp.Regexp // same-line handling (.catch, err callback)
}

var pythonBase = patternSet{
	routeDef:     regexp.MustCompile(`^\s*def\s+\w+\s*\(\s*(self\s*,\s*)?(request|req)\b`),
	authMarker:   regexp.MustCompile(`@(login_required|permission_required|user_passes_test|requires_auth|auth_required|jwt_required|roles_required)`),
	inlineAuth:   regexp.MustCompile(`(?i)(is_authenticated|has_perm|check_permission|current_user)`),
	secretAssign: regexp.MustCompile(`(?i)^\s*\w*(password|passwd|pwd|api_?key|access_?key|secret|token)\w*\s*[:=]\s*["'][^"']+["']`),
	providerKey:  regexp.MustCompile(`(AKIA[0-9A-Z]{16}|sk-[A-Za-z0-9]{20,}|ghp_[A-Za-z0-9]{36}|xox[bpoa]-[A-Za-z0-9-]{10,}|AIza[0-9A-Za-z_-]{35})`),
	envLookup:    regexp.MustCompile(`os\.(environ|getenv)`),
	mutationCall: regexp.MustCompile(`(?i)(\.\s*(save|delete|create|update|bulk_create|bulk_update)\s*\(|\bexecute\s*\(\s*["'](INSERT|UPDATE|DELETE)\b|\b(INSERT\s+INTO|UPDATE\s+\w+\s+SET|DELETE\s+FROM)\b)`),
	loggingCall:  regexp.MustCompile(`(?i)(logger\.|logging\.|log\.|audit)`),
	outboundCall: regexp.MustCompile(`(requests\.(get|post|put|patch|delete|head)|urllib\.request|httpx\.|cursor\.execute|session\.(query|execute)|\.objects\.(get|filter|create|update))`),
	errorBlock:   regexp.MustCompile(`^\s*try\s*:`),
	errorInline:  regexp.MustCompile(`\bexcept\b`),
}

var jsBase = patternSet{
	routeDef:     regexp.MustCompile(`(app|router)\.(get|post|put|patch|delete|all)\s*\(|function\s+\w*[Hh]andler\w*\s*\(\s*req\b|\(\s*req\s*,\s*res\b`),
	authMarker:   regexp.MustCompile(`(requireAuth|ensureAuthenticated|isAuthenticated|passport\.authenticate|authMiddleware|verifyToken|withAuth|getServerSession)`),
	inlineAuth:   regexp.MustCompile(`(requireAuth|ensureAuthenticated|isAuthenticated|passport\.authenticate|authMiddleware|verifyToken|withAuth|getServerSession)`),
	secretAssign: regexp.MustCompile("(?i)^\\s*(const|let|var)?\\s*\\w*(password|passwd|pwd|api_?key|access_?key|secret|token)\\w*\\s*[:=]\\s*[\"'`][^\"'`]+[\"'`]"),
	providerKey:  regexp.MustCompile(`(AKIA[0-9A-Z]{16}|sk-[A-Za-z0-9]{20,}|ghp_[A-Za-z0-9]{36}|xox[bpoa]-[A-Za-z0-9-]{10,}|AIza[0-9A-Za-z_-]{35})`),
	envLookup:    regexp.MustCompile(`process\.env`),
	mutationCall: regexp.MustCompile(`(?i)(\.\s*(save|create|insertOne|insertMany|updateOne|updateMany|deleteOne|deleteMany|findByIdAndUpdate|findByIdAndDelete|destroy)\s*\(|\bquery\s*\(\s*["'` + "`" + `](INSERT|UPDATE|DELETE)\b)`),
	loggingCall:  regexp.MustCompile(`(?i)(logger\.|winston|console\.(log|info|warn|error)|audit)`),
	outboundCall: regexp.MustCompile(`(\bfetch\s*\(|axios\.(get|post|put|patch|delete|request)|http[s]?\.(get|request)|pool\.query|db\.query|client\.query|prisma\.\w+\.(findMany|findUnique|create|update|delete))`),
	errorBlock:   regexp.MustCompile(`\btry\s*\{`),
	errorInline:  regexp.MustCompile(`\.catch\s*\(|,\s*\(?err\b|catch\s*\(`),
}

// Framework-specific sets reuse the family base and narrow the auth markers
// where the framework has a canonical idiom.
var (
	djangoSet = func() patternSet {
		ps := pythonBase
		ps.authMarker = regexp.MustCompile(`@(login_required|permission_required|user_passes_test|method_decorator)`)
		return ps
	}()
	flaskSet = func() patternSet {
		ps := pythonBase
		ps.authMarker = regexp.MustCompile(`@(login_required|jwt_required|auth\.login_required|requires_auth|roles_required)`)
		return ps
	}()
	expressSet   = jsBase
	nextReactSet = func() patternSet {
		ps := jsBase
		ps.authMarker = regexp.MustCompile(`(getServerSession|withAuth|useSession|getToken|unstable_getServerSession)`)
		ps.inlineAuth = ps.authMarker
		return ps
	}()
)

var setsByFramework = map[types.Framework]*patternSet{
	types.FrameworkDjango:    &djangoSet,
	types.FrameworkFlask:     &flaskSet,
	types.FrameworkExpress:   &expressSet,
	types.FrameworkNextReact: &nextReactSet,
}

// setFor returns the pattern set for a framework. An unknown framework
// degrades to the most permissive family base for the file's extension.
func setFor(fw types.Framework, path string) *patternSet {
	if ps, ok := setsByFramework[fw]; ok {
		return ps
	}
	switch fb := types.FrameworkForPath(path); {
	case fb.IsPythonFamily():
		return &pythonBase
	case fb == types.FrameworkExpress || fb == types.FrameworkNextReact:
		return &jsBase
	}
	return &pythonBase
}
