// Package scanner matches source files against an ordered catalog of
// pattern rules and reports one finding per matching line.
//
// # Rules
//
// A Rule is plain data: an ID, a severity, a message, a regular expression
// and an optional set of file extensions it applies to. DefaultRules returns
// the built-in table; NewCatalog compiles it together with any extra rules
// from configuration. The catalog is never mutated after construction and is
// safe to share between goroutines.
//
// Rule order matters. For every non-blank line the engine evaluates the
// candidate rules in catalog order and stops at the first match, so a line
// never produces more than one finding.
//
// # Degraded mode
//
// Files whose content exceeds Config.MaxFileChars are scanned with the
// secret-detection subset only (rules flagged Secret). Minified and generated
// files tend to be huge single lines where the language rules are both slow
// and noisy.
//
// # Usage
//
//	catalog, err := scanner.NewCatalog(scanner.DefaultRules())
//	if err != nil {
//	    return err
//	}
//	engine := scanner.NewEngine(catalog, scanner.DefaultConfig())
//	findings := engine.Scan(payload.Files)
package scanner
