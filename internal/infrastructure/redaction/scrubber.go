// Package redaction removes credentials that visitors paste into contact
// messages before the messages are stored or delivered.
package redaction

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"github.com/zricethezav/gitleaks/v8/config"
	"github.com/zricethezav/gitleaks/v8/detect"
)

const redacted = "[REDACTED]"

// Scrubber replaces secrets in free text.
// All fields are read-only after construction, making it safe for concurrent use.
type Scrubber struct {
	// nil when gitleaks is disabled
	detector *detect.Detector
	patterns []*regexp.Regexp
	salt     string
	hashMode bool
}

// Config holds the configuration for the Scrubber.
type Config struct {
	// Extra patterns to redact (e.g. "INT-[A-Z0-9]{16}")
	Patterns []string
	// Salt keys the HMAC used in hash mode
	Salt string
	// HashMode replaces secrets with a short HMAC instead of [REDACTED], so
	// repeated leaks of the same secret can be correlated
	HashMode bool
	// DisableGitleaks limits detection to the built-in and extra patterns
	DisableGitleaks bool
}

// New creates a Scrubber.
func New(cfg Config) (*Scrubber, error) {
	if cfg.HashMode && cfg.Salt == "" {
		return nil, fmt.Errorf("hash mode requires a salt")
	}

	s := &Scrubber{
		salt:     cfg.Salt,
		hashMode: cfg.HashMode,
		patterns: make([]*regexp.Regexp, 0, len(defaultPatterns)+len(cfg.Patterns)),
	}

	if !cfg.DisableGitleaks {
		detector, err := newGitleaksDetector()
		if err != nil {
			return nil, err
		}
		s.detector = detector
	}

	for _, p := range append(append([]string(nil), defaultPatterns...), cfg.Patterns...) {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to compile pattern %s: %w", p, err)
		}
		s.patterns = append(s.patterns, re)
	}

	return s, nil
}

// newGitleaksDetector loads the gitleaks default rule set.
func newGitleaksDetector() (*detect.Detector, error) {
	v := viper.New()
	v.SetConfigType("toml")
	if err := v.ReadConfig(strings.NewReader(config.DefaultConfig)); err != nil {
		return nil, fmt.Errorf("failed to read gitleaks config: %w", err)
	}

	var vc config.ViperConfig
	if err := v.Unmarshal(&vc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal gitleaks config: %w", err)
	}

	cfg, err := vc.Translate()
	if err != nil {
		return nil, fmt.Errorf("failed to translate gitleaks config: %w", err)
	}

	return detect.NewDetector(cfg), nil
}

// Scrub returns input with every detected secret replaced, and the number of
// replacements made.
func (s *Scrubber) Scrub(input string) (string, int) {
	if input == "" {
		return "", 0
	}

	result := input
	count := 0

	if s.detector != nil {
		for _, finding := range s.detector.Detect(detect.Fragment{Raw: result}) {
			if finding.Secret == "" || !strings.Contains(result, finding.Secret) {
				continue
			}
			count += strings.Count(result, finding.Secret)
			result = strings.ReplaceAll(result, finding.Secret, s.replacement(finding.Secret))
		}
	}

	for _, re := range s.patterns {
		result = re.ReplaceAllStringFunc(result, func(match string) string {
			if isReplacement(match) {
				return match
			}
			count++
			return s.replacement(match)
		})
	}

	return result, count
}

func (s *Scrubber) replacement(secret string) string {
	if s.hashMode {
		return s.hash(secret)
	}
	return redacted
}

// hash returns a truncated HMAC-SHA256 of the secret: [hmac:0123456789abcdef].
func (s *Scrubber) hash(secret string) string {
	mac := hmac.New(sha256.New, []byte(s.salt))
	mac.Write([]byte(secret))
	return fmt.Sprintf("[hmac:%s]", hex.EncodeToString(mac.Sum(nil))[:16])
}

func isReplacement(s string) bool {
	return s == redacted || (strings.HasPrefix(s, "[hmac:") && strings.HasSuffix(s, "]"))
}

// defaultPatterns catch common credentials even with gitleaks disabled.
var defaultPatterns = []string{
	// AWS access key id
	`\b((?:AKIA|ABIA|ACCA|ASIA)[0-9A-Z]{16})\b`,
	// PEM private key header
	`-----BEGIN [A-Z ]+ PRIVATE KEY-----`,
	// GitHub token
	`gh[pousr]_[A-Za-z0-9_]{36,255}`,
	// Slack token
	`xox[baprs]-[0-9a-zA-Z-]{10,72}`,
}
