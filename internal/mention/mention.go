// Package mention parses @username tokens and rewrites them across platforms.
package mention

import (
	"context"
	"log/slog"
	"regexp"

	"github.com/synclinear/syncd/internal/identity"
	"github.com/synclinear/syncd/internal/platform"
)

// Token is one parsed @username occurrence. Tokens are ephemeral: they only
// exist while a body is being rewritten.
type Token struct {
	Username string
	Offset   int
}

// DefaultPattern matches an @ followed by a maximal run of word characters.
// Platform-specific username charsets can override it via NewRewriter.
var DefaultPattern = regexp.MustCompile(`@(\w+)`)

// Parse returns every mention token in text, in order of appearance.
// The offset is the byte position of the username (after the @).
func Parse(pattern *regexp.Regexp, text string) []Token {
	matches := pattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil
	}
	tokens := make([]Token, 0, len(matches))
	for _, m := range matches {
		// m[2]:m[3] is the first capture group (the username).
		tokens = append(tokens, Token{
			Username: text[m[2]:m[3]],
			Offset:   m[2],
		})
	}
	return tokens
}

// Translator maps usernames on a source platform to cross-platform pairs.
// *identity.Store satisfies it.
type Translator interface {
	MapUsernames(ctx context.Context, usernames []string, source platform.Platform) ([]identity.UsernamePair, error)
}

// Rewriter substitutes @mentions authored on one platform with the
// equivalent username on the other.
type Rewriter struct {
	translator Translator
	pattern    *regexp.Regexp
	logger     *slog.Logger
}

// NewRewriter creates a mention rewriter. A nil pattern uses DefaultPattern.
func NewRewriter(log *slog.Logger, translator Translator, pattern *regexp.Regexp) *Rewriter {
	if log == nil {
		log = slog.Default()
	}
	if pattern == nil {
		pattern = DefaultPattern
	}
	return &Rewriter{
		translator: translator,
		pattern:    pattern,
		logger:     log.With(slog.String("service", "mention")),
	}
}

// Rewrite replaces every mapped @mention in text with the username on the
// platform opposite source. Unmapped mentions stay exactly as authored.
// Substitution happens in a single pass over the original text, so a
// mapping's output can never be re-matched by another mapping and the
// rewrite round-trips when run again with the platform flipped.
//
// On translator failure the original text is returned together with the
// error; callers may keep the authored text and continue.
func (r *Rewriter) Rewrite(ctx context.Context, text string, source platform.Platform) (string, error) {
	if !r.pattern.MatchString(text) {
		return text, nil
	}

	tokens := Parse(r.pattern, text)
	seen := make(map[string]struct{}, len(tokens))
	usernames := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, ok := seen[tok.Username]; ok {
			continue
		}
		seen[tok.Username] = struct{}{}
		usernames = append(usernames, tok.Username)
	}

	pairs, err := r.translator.MapUsernames(ctx, usernames, source)
	if err != nil {
		return text, err
	}
	if len(pairs) == 0 {
		return text, nil
	}

	replacements := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		from, to := pair.LinearUsername, pair.GitHubUsername
		if source == platform.GitHub {
			from, to = pair.GitHubUsername, pair.LinearUsername
		}
		if from == "" || to == "" {
			continue
		}
		replacements[from] = to
	}

	rewritten := r.pattern.ReplaceAllStringFunc(text, func(match string) string {
		name := match[1:]
		if dest, ok := replacements[name]; ok {
			return "@" + dest
		}
		return match
	})

	r.logger.Debug("rewrote mentions",
		slog.String("source", string(source)),
		slog.Int("tokens", len(usernames)),
		slog.Int("mapped", len(replacements)),
	)
	return rewritten, nil
}
