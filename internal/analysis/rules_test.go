package analysis

import "testing"

func TestDetectCryptoFindsKnownWeakAlgorithms(t *testing.T) {
	code := `// built on top of crypto-js
function hash(s) { return CryptoJS.MD5(s).toString(); }`
	findings := DetectCrypto(code)

	if len(findings.Algorithms) != 1 || findings.Algorithms[0] != "MD5" {
		t.Fatalf("Algorithms = %v, want [MD5]", findings.Algorithms)
	}
	if len(findings.Libraries) != 1 || findings.Libraries[0] != "crypto-js" {
		t.Fatalf("Libraries = %v, want [crypto-js]", findings.Libraries)
	}
	if findings.Confidence != 0.8 {
		t.Fatalf("Confidence = %v, want 0.8", findings.Confidence)
	}
	if findings.Strength != "questionable" {
		t.Fatalf("Strength = %q, want questionable (MD5 is severity=high)", findings.Strength)
	}
}

func TestDetectCryptoDESIsWeak(t *testing.T) {
	findings := DetectCrypto(`const cipher = forge.cipher.createCipher('DES-CBC', key)`)
	if findings.Strength != "weak" {
		t.Fatalf("Strength = %q, want weak (DES is severity=critical)", findings.Strength)
	}
}

func TestDetectCryptoNoMatchesIsUnknownWithZeroConfidence(t *testing.T) {
	findings := DetectCrypto(`function add(a, b) { return a + b; }`)
	if len(findings.Algorithms) != 0 {
		t.Fatalf("Algorithms = %v, want none", findings.Algorithms)
	}
	if findings.Confidence != 0 {
		t.Fatalf("Confidence = %v, want 0", findings.Confidence)
	}
	if findings.Strength != "unknown" {
		t.Fatalf("Strength = %q, want unknown", findings.Strength)
	}
}

func TestDetectCryptoDeduplicatesRepeatedAlgorithmMentions(t *testing.T) {
	findings := DetectCrypto(`md5(md5(md5(x)))`)
	if len(findings.Algorithms) != 1 {
		t.Fatalf("Algorithms = %v, want a single deduplicated MD5 entry", findings.Algorithms)
	}
}

func TestDetectObfuscationTagsHexIdentObfuscator(t *testing.T) {
	tags := DetectObfuscation(`var _0xabc123 = ["a", "b"]; function _0xdef456(i){return _0xabc123[i];}`)
	if len(tags) != 1 || tags[0] != "javascript-obfuscator" {
		t.Fatalf("tags = %v, want [javascript-obfuscator]", tags)
	}
}

func TestDetectObfuscationTagsPacker(t *testing.T) {
	tags := DetectObfuscation(`eval(function(p,a,c,k,e,d){return p}('x',1,1,'x'.split('|'),0,{}))`)
	found := false
	for _, tag := range tags {
		if tag == "packer" {
			found = true
		}
	}
	if !found {
		t.Fatalf("tags = %v, want packer among them", tags)
	}
}

func TestDetectObfuscationNoTagsForPlainCode(t *testing.T) {
	tags := DetectObfuscation(`function greet(name) { return "hello " + name; }`)
	if len(tags) != 0 {
		t.Fatalf("tags = %v, want none for unobfuscated code", tags)
	}
}

func TestConfidenceFromTagCount(t *testing.T) {
	cases := []struct {
		n    int
		want float64
	}{
		{0, 0.3},
		{1, 0.6},
		{2, 0.85},
		{5, 0.85},
	}
	for _, c := range cases {
		if got := confidenceFromTagCount(c.n); got != c.want {
			t.Errorf("confidenceFromTagCount(%d) = %v, want %v", c.n, got, c.want)
		}
	}
}
