package analysis

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/brennhill/revagent/internal/llm"
)

// CryptoRules is the {MD5/SHA-1/DES/RC4 -> severity, ECB mode, short
// key, missing padding} rule set from spec §4.L, evaluated
// deterministically before the LLM pass.
var CryptoRules = []Rule{
	{Pattern: regexp.MustCompile(`(?i)\bmd5\b`), Tag: "MD5", Severity: "high"},
	{Pattern: regexp.MustCompile(`(?i)\bsha-?1\b`), Tag: "SHA-1", Severity: "high"},
	{Pattern: regexp.MustCompile(`(?i)\bdes\b`), Tag: "DES", Severity: "critical"},
	{Pattern: regexp.MustCompile(`(?i)\brc4\b`), Tag: "RC4", Severity: "critical"},
	{Pattern: regexp.MustCompile(`(?i)mode\s*[:=]\s*["']?ecb`), Tag: "ECB-mode", Severity: "high"},
	{Pattern: regexp.MustCompile(`(?i)\baes-?128\b`), Tag: "short-key-aes128", Severity: "medium"},
	{Pattern: regexp.MustCompile(`(?i)padding\s*[:=]\s*["']?none`), Tag: "missing-padding", Severity: "medium"},
}

// CryptoFindings is detect_crypto's return shape (spec §4.L).
type CryptoFindings struct {
	Algorithms      []string
	Libraries       []string
	Confidence      float64
	SecurityIssues  []CryptoIssue
	Strength        string
}

// CryptoIssue is one entry of CryptoFindings.SecurityIssues.
type CryptoIssue struct {
	Tag      string
	Severity string
}

var knownCryptoLibraries = []string{"crypto-js", "forge", "sjcl", "jsencrypt", "tweetnacl", "webcrypto"}

// DetectCrypto runs the deterministic rule table over code, without
// calling the LLM; CryptoFacade.Detect wraps this and adds the
// provider's narrative strength assessment.
func DetectCrypto(code string) CryptoFindings {
	var findings CryptoFindings
	seen := map[string]bool{}
	for _, r := range CryptoRules {
		if !r.Pattern.MatchString(code) {
			continue
		}
		if !seen[r.Tag] {
			seen[r.Tag] = true
			findings.Algorithms = append(findings.Algorithms, r.Tag)
		}
		findings.SecurityIssues = append(findings.SecurityIssues, CryptoIssue{Tag: r.Tag, Severity: r.Severity})
	}
	for _, lib := range knownCryptoLibraries {
		if strings.Contains(strings.ToLower(code), lib) {
			findings.Libraries = append(findings.Libraries, lib)
		}
	}
	if len(findings.Algorithms) > 0 {
		findings.Confidence = 0.8
	}
	findings.Strength = strengthFromIssues(findings.SecurityIssues)
	return findings
}

func strengthFromIssues(issues []CryptoIssue) string {
	for _, i := range issues {
		if i.Severity == "critical" {
			return "weak"
		}
	}
	for _, i := range issues {
		if i.Severity == "high" {
			return "questionable"
		}
	}
	if len(issues) > 0 {
		return "acceptable"
	}
	return "unknown"
}

// CryptoFacade implements detect_crypto (spec §4.L).
type CryptoFacade struct {
	Provider llm.Provider
}

// Detect runs the deterministic pass, then asks the provider to
// corroborate and fill in narrative detail.
func (f *CryptoFacade) Detect(ctx context.Context, code string) (CryptoFindings, string, error) {
	findings := DetectCrypto(code)
	prompt := fmt.Sprintf("Cryptographic algorithms detected deterministically: %v. "+
		"Review the following code and confirm or refine this assessment, noting any "+
		"issues the rule-based pass would miss.\n\n%s", findings.Algorithms, code)
	narrative, err := chat(ctx, f.Provider, "You are a cryptography security reviewer.", prompt)
	if err != nil {
		return findings, "", err
	}
	return findings, narrative, nil
}
