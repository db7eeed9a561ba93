package scanner

var (
	pythonExts = []string{".py", ".pyw"}
	jsExts     = []string{".js", ".jsx", ".ts", ".tsx"}
	javaExts   = []string{".java"}
)

// DefaultRules returns the built-in rule table in evaluation order.
// Language-agnostic credential rules come first so they win ties.
func DefaultRules() []Rule {
	return []Rule{
		// Credentials
		{
			ID:       "PRIVATE_KEY",
			Severity: SeverityHigh,
			Message:  "Private key material detected",
			Pattern:  `-----BEGIN (?:RSA|EC|OPENSSH|DSA|PRIVATE) PRIVATE KEY-----`,
			Secret:   true,
		},
		{
			ID:            "AWS_ACCESS_KEY",
			Severity:      SeverityHigh,
			Message:       "Possible AWS access key detected",
			Pattern:       `\bAKIA[0-9A-Z]{16}\b`,
			CaseSensitive: true,
			Secret:        true,
		},
		{
			ID:       "BASIC_AUTH_URL",
			Severity: SeverityMedium,
			Message:  "Credentials embedded in URL",
			Pattern:  `https?://[^/\s:@]+:[^/\s:@]+@`,
			Secret:   true,
		},
		{
			ID:       "HARDCODED_SECRET",
			Severity: SeverityMedium,
			Message:  "Possible hardcoded secret detected",
			Pattern:  `\b(?:api|secret|token|key|password|passwd)\b[^=\n]*=\s*['"][^'"\s]{8,}['"]`,
			Secret:   true,
		},

		// Python
		{
			ID:         "PY_SHELL_TRUE",
			Severity:   SeverityHigh,
			Message:    "subprocess with shell=True can enable command injection",
			Pattern:    `\bshell\s*=\s*True\b`,
			Extensions: pythonExts,
		},
		{
			ID:         "PY_EVAL",
			Severity:   SeverityHigh,
			Message:    "Use of eval() can lead to code execution vulnerabilities",
			Pattern:    `\beval\s*\(`,
			Extensions: pythonExts,
		},
		{
			ID:         "PY_EXEC",
			Severity:   SeverityHigh,
			Message:    "Use of exec() can lead to code execution vulnerabilities",
			Pattern:    `\bexec\s*\(`,
			Extensions: pythonExts,
		},
		{
			ID:         "PY_WEAK_HASH",
			Severity:   SeverityMedium,
			Message:    "Weak hash function (md5/sha1) detected",
			Pattern:    `\b(md5|sha1)\s*\(`,
			Extensions: pythonExts,
		},

		// JavaScript / TypeScript
		{
			ID:         "JS_EVAL",
			Severity:   SeverityHigh,
			Message:    "Use of eval() can lead to code execution vulnerabilities",
			Pattern:    `\beval\s*\(`,
			Extensions: jsExts,
		},
		{
			ID:         "JS_NEW_FUNCTION",
			Severity:   SeverityHigh,
			Message:    "Use of new Function() can lead to code execution vulnerabilities",
			Pattern:    `\bnew\s+Function\s*\(`,
			Extensions: jsExts,
		},
		{
			ID:         "JS_CHILD_PROCESS_EXEC",
			Severity:   SeverityHigh,
			Message:    "child_process exec can enable command injection",
			Pattern:    `\bchild_process\.(?:exec|execSync)\s*\(`,
			Extensions: jsExts,
		},
		{
			ID:         "JS_SHELL_TRUE",
			Severity:   SeverityHigh,
			Message:    "spawn/exec with shell:true can enable command injection",
			Pattern:    `\bshell\s*:\s*true\b`,
			Extensions: jsExts,
		},

		// Java
		{
			ID:         "JAVA_RUNTIME_EXEC",
			Severity:   SeverityHigh,
			Message:    "Runtime.exec can enable command injection",
			Pattern:    `\bRuntime\.getRuntime\(\)\.exec\s*\(`,
			Extensions: javaExts,
		},
		{
			ID:         "JAVA_PROCESS_BUILDER",
			Severity:   SeverityHigh,
			Message:    "ProcessBuilder can execute system commands",
			Pattern:    `\bnew\s+ProcessBuilder\s*\(`,
			Extensions: javaExts,
		},
		{
			ID:         "JAVA_DESERIALIZATION",
			Severity:   SeverityMedium,
			Message:    "ObjectInputStream can be unsafe with untrusted data",
			Pattern:    `\bnew\s+ObjectInputStream\s*\(`,
			Extensions: javaExts,
		},
		{
			ID:            "JAVA_WEAK_HASH",
			Severity:      SeverityMedium,
			Message:       "Weak hash function (MD5/SHA1) detected",
			Pattern:       `\bMessageDigest\.getInstance\s*\(\s*"(?:MD5|SHA1)"\s*\)`,
			Extensions:    javaExts,
			CaseSensitive: true,
		},
	}
}
